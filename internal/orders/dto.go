package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/pagination"
	"github.com/angelmondragon/giftdesk-backend/pkg/types"
)

type OrderItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type OrderDTO struct {
	ID                  uuid.UUID         `json:"id"`
	CompanyID           uuid.UUID         `json:"company_id"`
	CreatedBy           *uuid.UUID        `json:"created_by,omitempty"`
	CampaignID          *uuid.UUID        `json:"campaign_id,omitempty"`
	CampaignRecipientID *uuid.UUID        `json:"campaign_recipient_id,omitempty"`
	Status              enums.OrderStatus `json:"status"`
	Total               decimal.Decimal   `json:"total"`
	Currency            string            `json:"currency"`
	ShippingAddress     *types.Address    `json:"shipping_address,omitempty"`
	Notes               *string           `json:"notes,omitempty"`
	Items               []OrderItemDTO    `json:"items"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

func FromModel(o *models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemDTO{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
			LineTotal:   it.LineTotal(),
		})
	}
	return OrderDTO{
		ID:                  o.ID,
		CompanyID:           o.CompanyID,
		CreatedBy:           o.CreatedBy,
		CampaignID:          o.CampaignID,
		CampaignRecipientID: o.CampaignRecipientID,
		Status:              o.Status,
		Total:               o.Total,
		Currency:            o.Currency,
		ShippingAddress:     o.ShippingAddress,
		Notes:               o.Notes,
		Items:               items,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}

// ListFilters narrows the order listing. CompanyID only applies to super admins.
type ListFilters struct {
	CompanyID  *uuid.UUID
	Status     *enums.OrderStatus
	CampaignID *uuid.UUID
}

type ListInput struct {
	Filters    ListFilters
	Pagination pagination.Params
}

type ItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateInput places a manual order. Prices are copied from the products at
// the time of the order.
type CreateInput struct {
	CompanyID       *uuid.UUID
	Items           []ItemInput
	ShippingAddress *types.Address
	Notes           *string
}
