package redemption

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/types"
)

// Selection is what the recipient submits.
type Selection struct {
	ProductID       uuid.UUID
	ShippingAddress *types.Address
	Preferences     map[string]any
}

type Branding struct {
	Name           string  `json:"name"`
	LogoURL        *string `json:"logo_url,omitempty"`
	BrandColor     string  `json:"brand_color,omitempty"`
	WelcomeMessage string  `json:"welcome_message,omitempty"`
}

func brandingFromModel(c *models.Company) Branding {
	return Branding{
		Name:           c.Name,
		LogoURL:        c.LogoURL,
		BrandColor:     c.Settings.BrandColor,
		WelcomeMessage: c.Settings.WelcomeMessage,
	}
}

type ProductOption struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Category    *string         `json:"category,omitempty"`
	ImageURL    *string         `json:"image_url,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
}

func productOption(p models.Product) ProductOption {
	return ProductOption{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
		Price:       p.Price,
		Currency:    p.Currency,
	}
}

// LookupResult is the public view behind a gift link. Products are only
// listed while the link can still be redeemed.
type LookupResult struct {
	State             string          `json:"state"`
	RecipientName     string          `json:"recipient_name"`
	CampaignName      string          `json:"campaign_name"`
	CampaignEndsAt    *time.Time      `json:"campaign_ends_at,omitempty"`
	LinkExpiresAt     *time.Time      `json:"link_expires_at,omitempty"`
	SelectedProductID *uuid.UUID      `json:"selected_product_id,omitempty"`
	Company           Branding        `json:"company"`
	Products          []ProductOption `json:"products"`
}

type RedeemResult struct {
	OrderID     uuid.UUID         `json:"order_id"`
	Status      enums.OrderStatus `json:"status"`
	ProductName string            `json:"product_name"`
	Total       decimal.Decimal   `json:"total"`
	Currency    string            `json:"currency"`
}
