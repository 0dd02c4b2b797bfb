package companies

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/types"
)

type CompanyDTO struct {
	ID              uuid.UUID             `json:"id"`
	Name            string                `json:"name"`
	Domain          *string               `json:"domain,omitempty"`
	Subdomain       *string               `json:"subdomain,omitempty"`
	StoreIdentifier string                `json:"store_identifier"`
	LogoURL         *string               `json:"logo_url,omitempty"`
	Budget          decimal.Decimal       `json:"budget"`
	Currency        string                `json:"currency"`
	BillingAddress  *types.Address        `json:"billing_address,omitempty"`
	TaxID           *string               `json:"tax_id,omitempty"`
	Settings        types.CompanySettings `json:"settings"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

func FromModel(c *models.Company) CompanyDTO {
	return CompanyDTO{
		ID:              c.ID,
		Name:            c.Name,
		Domain:          c.Domain,
		Subdomain:       c.Subdomain,
		StoreIdentifier: c.StoreIdentifier,
		LogoURL:         c.LogoURL,
		Budget:          c.Budget,
		Currency:        c.Currency,
		BillingAddress:  c.BillingAddress,
		TaxID:           c.TaxID,
		Settings:        c.Settings,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// PublicStoreDTO is what an anonymous visitor of a company store sees.
type PublicStoreDTO struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	StoreIdentifier string    `json:"store_identifier"`
	LogoURL         *string   `json:"logo_url,omitempty"`
	BrandColor      string    `json:"brand_color,omitempty"`
	WelcomeMessage  string    `json:"welcome_message,omitempty"`
}

// SelectableCompany is one entry of the company picker.
type SelectableCompany struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type CreateInput struct {
	Name            string
	StoreIdentifier string
	Domain          *string
	Subdomain       *string
	Budget          decimal.Decimal
	Currency        string
	BillingAddress  *types.Address
	TaxID           *string
	Settings        *types.CompanySettings
}

// UpdateInput is a partial update; nil fields are left alone.
type UpdateInput struct {
	Name           *string
	Domain         *string
	Subdomain      *string
	Budget         *decimal.Decimal
	Currency       *string
	BillingAddress *types.Address
	TaxID          *string
}

// SettingsInput is a partial settings update merged into the stored document.
type SettingsInput struct {
	StoreEnabled     *bool
	AllowWalletTopup *bool
	BrandColor       *string
	WelcomeMessage   *string
}

type LogoUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}
