package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/types"
)

type Campaign struct {
	ID          uuid.UUID            `gorm:"type:uuid;primaryKey"`
	CompanyID   uuid.UUID            `gorm:"column:company_id;type:uuid;not null;index"`
	Name        string               `gorm:"column:name;not null"`
	Description *string              `gorm:"column:description"`
	Status      enums.CampaignStatus `gorm:"column:status;not null"`
	Budget      decimal.Decimal      `gorm:"column:budget;type:numeric(14,2);not null"`
	StartsAt    *time.Time           `gorm:"column:starts_at"`
	EndsAt      *time.Time           `gorm:"column:ends_at"`
	LaunchedAt  *time.Time           `gorm:"column:launched_at"`
	CreatedBy   uuid.UUID            `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Campaign) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CampaignProduct is one entry in a campaign's selectable product set.
type CampaignProduct struct {
	CampaignID uuid.UUID `gorm:"column:campaign_id;type:uuid;primaryKey"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// CampaignRecipient holds a single-use gift link. A non-nil OrderID marks the
// link as spent.
type CampaignRecipient struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey"`
	CampaignID        uuid.UUID      `gorm:"column:campaign_id;type:uuid;not null;uniqueIndex:ux_campaign_recipients_email,priority:1"`
	Name              string         `gorm:"column:name;not null"`
	Email             string         `gorm:"column:email;not null;uniqueIndex:ux_campaign_recipients_email,priority:2"`
	Designation       *string        `gorm:"column:designation"`
	Department        *string        `gorm:"column:department"`
	Phone             *string        `gorm:"column:phone"`
	GiftLinkToken     string         `gorm:"column:gift_link_token;not null;uniqueIndex:ux_campaign_recipients_token"`
	LinkExpiresAt     *time.Time     `gorm:"column:link_expires_at;index"`
	OrderID           *uuid.UUID     `gorm:"column:order_id;type:uuid"`
	SelectedProductID *uuid.UUID     `gorm:"column:selected_product_id;type:uuid"`
	ShippingAddress   *types.Address `gorm:"column:shipping_address;type:jsonb"`
	Preferences       types.JSONMap  `gorm:"column:preferences;type:jsonb"`
	GiftSelectedAt    *time.Time     `gorm:"column:gift_selected_at"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (r *CampaignRecipient) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// IsRedeemed reports whether the gift link has been spent.
func (r CampaignRecipient) IsRedeemed() bool {
	return r.OrderID != nil
}

// IsExpired reports whether the link is past its expiry at now.
func (r CampaignRecipient) IsExpired(now time.Time) bool {
	return r.LinkExpiresAt != nil && now.After(*r.LinkExpiresAt)
}
