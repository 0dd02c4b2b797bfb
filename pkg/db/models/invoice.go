package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/types"
)

// Invoice is issued once per order, or once per campaign when consolidated.
type Invoice struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey"`
	CompanyID     uuid.UUID           `gorm:"column:company_id;type:uuid;not null;index"`
	Kind          enums.InvoiceKind   `gorm:"column:kind;not null"`
	OrderID       *uuid.UUID          `gorm:"column:order_id;type:uuid;uniqueIndex:ux_invoices_order_id"`
	CampaignID    *uuid.UUID          `gorm:"column:campaign_id;type:uuid;uniqueIndex:ux_invoices_campaign_id"`
	InvoiceNumber string              `gorm:"column:invoice_number;not null;uniqueIndex:ux_invoices_invoice_number"`
	Status        enums.InvoiceStatus `gorm:"column:status;not null"`
	Currency      string              `gorm:"column:currency;not null"`
	Subtotal      decimal.Decimal     `gorm:"column:subtotal;type:numeric(14,2);not null"`
	TaxRate       decimal.Decimal     `gorm:"column:tax_rate;type:numeric(6,4);not null"`
	CGSTAmount    decimal.Decimal     `gorm:"column:cgst_amount;type:numeric(14,2);not null"`
	SGSTAmount    decimal.Decimal     `gorm:"column:sgst_amount;type:numeric(14,2);not null"`
	TaxAmount     decimal.Decimal     `gorm:"column:tax_amount;type:numeric(14,2);not null"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:numeric(14,2);not null"`
	LineItems     types.InvoiceLines  `gorm:"column:line_items;type:jsonb;not null"`
	IssuedAt      time.Time           `gorm:"column:issued_at;not null"`
	DueDate       time.Time           `gorm:"column:due_date;not null"`
	PaidAt        *time.Time          `gorm:"column:paid_at"`
	CreatedBy     uuid.UUID           `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
