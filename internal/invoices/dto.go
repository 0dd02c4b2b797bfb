package invoices

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/pagination"
	"github.com/angelmondragon/giftdesk-backend/pkg/types"
)

type InvoiceDTO struct {
	ID            uuid.UUID           `json:"id"`
	CompanyID     uuid.UUID           `json:"company_id"`
	Kind          enums.InvoiceKind   `json:"kind"`
	OrderID       *uuid.UUID          `json:"order_id,omitempty"`
	CampaignID    *uuid.UUID          `json:"campaign_id,omitempty"`
	InvoiceNumber string              `json:"invoice_number"`
	Status        enums.InvoiceStatus `json:"status"`
	Currency      string              `json:"currency"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	TaxRate       decimal.Decimal     `json:"tax_rate"`
	CGSTAmount    decimal.Decimal     `json:"cgst_amount"`
	SGSTAmount    decimal.Decimal     `json:"sgst_amount"`
	TaxAmount     decimal.Decimal     `json:"tax_amount"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	LineItems     types.InvoiceLines  `json:"line_items"`
	IssuedAt      time.Time           `json:"issued_at"`
	DueDate       time.Time           `json:"due_date"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	CreatedBy     uuid.UUID           `json:"created_by"`
	CreatedAt     time.Time           `json:"created_at"`
}

func FromModel(i *models.Invoice) InvoiceDTO {
	return InvoiceDTO{
		ID:            i.ID,
		CompanyID:     i.CompanyID,
		Kind:          i.Kind,
		OrderID:       i.OrderID,
		CampaignID:    i.CampaignID,
		InvoiceNumber: i.InvoiceNumber,
		Status:        i.Status,
		Currency:      i.Currency,
		Subtotal:      i.Subtotal,
		TaxRate:       i.TaxRate,
		CGSTAmount:    i.CGSTAmount,
		SGSTAmount:    i.SGSTAmount,
		TaxAmount:     i.TaxAmount,
		TotalAmount:   i.TotalAmount,
		LineItems:     i.LineItems,
		IssuedAt:      i.IssuedAt,
		DueDate:       i.DueDate,
		PaidAt:        i.PaidAt,
		CreatedBy:     i.CreatedBy,
		CreatedAt:     i.CreatedAt,
	}
}

type ListFilters struct {
	CompanyID *uuid.UUID
	Status    *enums.InvoiceStatus
	Kind      *enums.InvoiceKind
}

type ListInput struct {
	Filters    ListFilters
	Pagination pagination.Params
}
