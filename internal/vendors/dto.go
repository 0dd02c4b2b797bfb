package vendors

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
)

type VendorDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	ContactEmail *string   `json:"contact_email,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	SLADays      int       `json:"sla_days"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func vendorFromModel(v *models.Vendor) VendorDTO {
	return VendorDTO{
		ID:           v.ID,
		Name:         v.Name,
		ContactEmail: v.ContactEmail,
		Phone:        v.Phone,
		SLADays:      v.SLADays,
		IsActive:     v.IsActive,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

type AssignmentDTO struct {
	ID             uuid.UUID              `json:"id"`
	OrderID        uuid.UUID              `json:"order_id"`
	VendorID       uuid.UUID              `json:"vendor_id"`
	Status         enums.AssignmentStatus `json:"status"`
	Cost           *decimal.Decimal       `json:"cost,omitempty"`
	TrackingNumber *string                `json:"tracking_number,omitempty"`
	POSentAt       *time.Time             `json:"po_sent_at,omitempty"`
	AssignedBy     uuid.UUID              `json:"assigned_by"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

func assignmentFromModel(a *models.OrderVendorAssignment) AssignmentDTO {
	dto := AssignmentDTO{
		ID:             a.ID,
		OrderID:        a.OrderID,
		VendorID:       a.VendorID,
		Status:         a.Status,
		TrackingNumber: a.TrackingNumber,
		POSentAt:       a.POSentAt,
		AssignedBy:     a.AssignedBy,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
	if a.Cost.Valid {
		cost := a.Cost.Decimal
		dto.Cost = &cost
	}
	return dto
}

type CreateVendorInput struct {
	Name         string
	ContactEmail *string
	Phone        *string
	SLADays      int
}

// UpdateVendorInput is a partial update; nil fields are left alone.
type UpdateVendorInput struct {
	Name         *string
	ContactEmail *string
	Phone        *string
	SLADays      *int
	IsActive     *bool
}

type AssignInput struct {
	OrderID  uuid.UUID
	VendorID uuid.UUID
	Cost     *decimal.Decimal
}

// UpdateAssignmentInput carries the fields a vendor update may change.
// po_sent_at is derived and has no input field.
type UpdateAssignmentInput struct {
	Status         *enums.AssignmentStatus
	TrackingNumber *string
}
