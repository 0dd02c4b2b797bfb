package campaigns

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/pagination"
	"github.com/angelmondragon/giftdesk-backend/pkg/types"
)

type CampaignDTO struct {
	ID          uuid.UUID            `json:"id"`
	CompanyID   uuid.UUID            `json:"company_id"`
	Name        string               `json:"name"`
	Description *string              `json:"description,omitempty"`
	Status      enums.CampaignStatus `json:"status"`
	Budget      decimal.Decimal      `json:"budget"`
	StartsAt    *time.Time           `json:"starts_at,omitempty"`
	EndsAt      *time.Time           `json:"ends_at,omitempty"`
	LaunchedAt  *time.Time           `json:"launched_at,omitempty"`
	CreatedBy   uuid.UUID            `json:"created_by"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func FromModel(c *models.Campaign) CampaignDTO {
	return CampaignDTO{
		ID:          c.ID,
		CompanyID:   c.CompanyID,
		Name:        c.Name,
		Description: c.Description,
		Status:      c.Status,
		Budget:      c.Budget,
		StartsAt:    c.StartsAt,
		EndsAt:      c.EndsAt,
		LaunchedAt:  c.LaunchedAt,
		CreatedBy:   c.CreatedBy,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// RecipientDTO is the HR view of a recipient. The gift URL is included so HR
// can resend a link by hand.
type RecipientDTO struct {
	ID                uuid.UUID      `json:"id"`
	CampaignID        uuid.UUID      `json:"campaign_id"`
	Name              string         `json:"name"`
	Email             string         `json:"email"`
	Designation       *string        `json:"designation,omitempty"`
	Department        *string        `json:"department,omitempty"`
	Phone             *string        `json:"phone,omitempty"`
	GiftURL           string         `json:"gift_url"`
	LinkExpiresAt     *time.Time     `json:"link_expires_at,omitempty"`
	State             string         `json:"state"`
	OrderID           *uuid.UUID     `json:"order_id,omitempty"`
	SelectedProductID *uuid.UUID     `json:"selected_product_id,omitempty"`
	ShippingAddress   *types.Address `json:"shipping_address,omitempty"`
	GiftSelectedAt    *time.Time     `json:"gift_selected_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// Gift link states derived from a recipient row.
const (
	LinkIssued   = "issued"
	LinkRedeemed = "redeemed"
	LinkExpired  = "expired"
)

// LinkState derives the public state of a gift link at now.
func LinkState(r models.CampaignRecipient, now time.Time) string {
	switch {
	case r.IsRedeemed():
		return LinkRedeemed
	case r.IsExpired(now):
		return LinkExpired
	default:
		return LinkIssued
	}
}

// GiftURL builds the public redemption link for token.
func GiftURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/gift/" + token
}

func recipientFromModel(r models.CampaignRecipient, baseURL string, now time.Time) RecipientDTO {
	return RecipientDTO{
		ID:                r.ID,
		CampaignID:        r.CampaignID,
		Name:              r.Name,
		Email:             r.Email,
		Designation:       r.Designation,
		Department:        r.Department,
		Phone:             r.Phone,
		GiftURL:           GiftURL(baseURL, r.GiftLinkToken),
		LinkExpiresAt:     r.LinkExpiresAt,
		State:             LinkState(r, now),
		OrderID:           r.OrderID,
		SelectedProductID: r.SelectedProductID,
		ShippingAddress:   r.ShippingAddress,
		GiftSelectedAt:    r.GiftSelectedAt,
		CreatedAt:         r.CreatedAt,
	}
}

type CreateInput struct {
	CompanyID   *uuid.UUID
	Name        string
	Description *string
	Budget      decimal.Decimal
	StartsAt    *time.Time
	EndsAt      *time.Time
}

type ListInput struct {
	CompanyID  *uuid.UUID
	Status     *enums.CampaignStatus
	Pagination pagination.Params
}

// ImportResult reports how many rows became recipients. Skipped counts blank
// or duplicate rows in the file plus emails already on the campaign.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// LaunchResult is returned by Launch.
type LaunchResult struct {
	Campaign  CampaignDTO `json:"campaign"`
	LinksSent int         `json:"links_sent"`
}
