package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/pkg/types"
)

// Company is the tenant root.
type Company struct {
	ID              uuid.UUID             `gorm:"type:uuid;primaryKey"`
	Name            string                `gorm:"column:name;not null"`
	Domain          *string               `gorm:"column:domain"`
	Subdomain       *string               `gorm:"column:subdomain;uniqueIndex:ux_companies_subdomain"`
	StoreIdentifier string                `gorm:"column:store_identifier;not null;uniqueIndex:ux_companies_store_identifier"`
	LogoURL         *string               `gorm:"column:logo_url"`
	Budget          decimal.Decimal       `gorm:"column:budget;type:numeric(14,2);not null"`
	Currency        string                `gorm:"column:currency;not null"`
	BillingAddress  *types.Address        `gorm:"column:billing_address;type:jsonb"`
	TaxID           *string               `gorm:"column:tax_id"`
	Settings        types.CompanySettings `gorm:"column:settings;type:jsonb;not null"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Company) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
