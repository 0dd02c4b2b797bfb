package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
)

// Vendor is a platform-level fulfillment partner.
type Vendor struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	ContactEmail *string   `gorm:"column:contact_email"`
	Phone        *string   `gorm:"column:phone"`
	SLADays      int       `gorm:"column:sla_days;not null"`
	IsActive     bool      `gorm:"column:is_active;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *Vendor) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

// OrderVendorAssignment links an order to a vendor. POSentAt is derived on the
// first shipped or delivered transition and never written from input.
type OrderVendorAssignment struct {
	ID             uuid.UUID              `gorm:"type:uuid;primaryKey"`
	OrderID        uuid.UUID              `gorm:"column:order_id;type:uuid;not null;index"`
	VendorID       uuid.UUID              `gorm:"column:vendor_id;type:uuid;not null;index"`
	Status         enums.AssignmentStatus `gorm:"column:status;not null"`
	Cost           decimal.NullDecimal    `gorm:"column:cost;type:numeric(14,2)"`
	TrackingNumber *string                `gorm:"column:tracking_number"`
	POSentAt       *time.Time             `gorm:"column:po_sent_at"`
	AssignedBy     uuid.UUID              `gorm:"column:assigned_by;type:uuid;not null"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *OrderVendorAssignment) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
