package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/pagination"
)

// ProductDTO is the API shape of a catalog entry. A nil CompanyID marks a
// platform-global product.
type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	CompanyID   *uuid.UUID      `json:"company_id,omitempty"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	SKU         *string         `json:"sku,omitempty"`
	Category    *string         `json:"category,omitempty"`
	ImageURL    *string         `json:"image_url,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Stock       int             `json:"stock"`
	IsGlobal    bool            `json:"is_global"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func FromModel(p *models.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		CompanyID:   p.CompanyID,
		Name:        p.Name,
		Description: p.Description,
		SKU:         p.SKU,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
		Price:       p.Price,
		Currency:    p.Currency,
		Stock:       p.Stock,
		IsGlobal:    p.CompanyID == nil,
		DeletedAt:   p.DeletedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ListInput narrows the catalog listing.
type ListInput struct {
	CompanyID     *uuid.UUID
	IncludeGlobal bool
	Category      string
	Query         string
	Pagination    pagination.Params
}

// CreateInput creates a product. Only super admins may leave CompanyID nil,
// which creates a platform-global product.
type CreateInput struct {
	CompanyID   *uuid.UUID
	Name        string
	Description *string
	SKU         *string
	Category    *string
	ImageURL    *string
	Price       decimal.Decimal
	Currency    string
	Stock       int
}

type UpdateInput struct {
	Name        *string
	Description *string
	SKU         *string
	Category    *string
	ImageURL    *string
	Price       *decimal.Decimal
	Stock       *int
}
