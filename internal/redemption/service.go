// Package redemption runs the public gift-link flow: a recipient opens the
// link, picks one product from the campaign set and the link is spent.
package redemption

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/internal/audit"
	"github.com/angelmondragon/giftdesk-backend/internal/campaigns"
	"github.com/angelmondragon/giftdesk-backend/pkg/db"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/giftdesk-backend/pkg/types"
	"github.com/angelmondragon/giftdesk-backend/pkg/visibility"
)

const invalidLinkMessage = "invalid or expired link"

type Service interface {
	Lookup(ctx context.Context, token string) (*LookupResult, error)
	Redeem(ctx context.Context, token string, sel Selection) (*RedeemResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Outbox outboxEmitter
	Audit  audit.Recorder
	Now    func() time.Time
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxEmitter
	audit  audit.Recorder
	now    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("redemption repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Audit == nil {
		params.Audit = audit.Nop{}
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{repo: params.Repo, tx: params.Tx, outbox: params.Outbox, audit: params.Audit, now: params.Now}, nil
}

// Lookup never spends the link. Unknown tokens are NotFound; known tokens
// always resolve so the page can explain why a link no longer works.
func (s *service) Lookup(ctx context.Context, token string) (*LookupResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, access.NotFound("gift link")
	}
	recipient, err := s.repo.FindRecipientByToken(ctx, token)
	if err != nil {
		return nil, access.LoadError(err, "gift link")
	}
	campaign, err := s.repo.FindCampaign(ctx, recipient.CampaignID)
	if err != nil {
		return nil, access.LoadError(err, "gift link")
	}
	if campaign.Status == enums.CampaignStatusDraft {
		return nil, access.NotFound("gift link")
	}
	company, err := s.repo.FindCompany(ctx, campaign.CompanyID)
	if err != nil {
		return nil, access.LoadError(err, "gift link")
	}

	state := s.state(recipient, campaign)
	out := &LookupResult{
		State:             state,
		RecipientName:     recipient.Name,
		CampaignName:      campaign.Name,
		CampaignEndsAt:    campaign.EndsAt,
		LinkExpiresAt:     recipient.LinkExpiresAt,
		SelectedProductID: recipient.SelectedProductID,
		Company:           brandingFromModel(company),
		Products:          []ProductOption{},
	}
	if state != campaigns.LinkIssued {
		return out, nil
	}
	products, err := s.repo.CampaignProducts(ctx, campaign.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load campaign products")
	}
	for _, p := range products {
		if visibility.IsOwnedOrGlobal(p, campaign.CompanyID) {
			out.Products = append(out.Products, productOption(p))
		}
	}
	return out, nil
}

// state folds campaign closure into the link state: a closed campaign's links
// read as expired.
func (s *service) state(r *models.CampaignRecipient, c *models.Campaign) string {
	st := campaigns.LinkState(*r, s.now())
	if st == campaigns.LinkIssued && c.Status != enums.CampaignStatusActive {
		return campaigns.LinkExpired
	}
	return st
}

func (s *service) Redeem(ctx context.Context, token string, sel Selection) (*RedeemResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, access.Conflict(invalidLinkMessage)
	}
	recipient, err := s.repo.FindRecipientByToken(ctx, token)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, access.Conflict(invalidLinkMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gift link")
	}
	campaign, err := s.repo.FindCampaign(ctx, recipient.CampaignID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load campaign")
	}
	if s.state(recipient, campaign) != campaigns.LinkIssued {
		return nil, access.Conflict(invalidLinkMessage)
	}

	addr, err := validateSelection(sel)
	if err != nil {
		return nil, err
	}
	product, err := s.selectableProduct(ctx, campaign, sel.ProductID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:                  uuid.New(),
		CompanyID:           campaign.CompanyID,
		CampaignID:          &campaign.ID,
		CampaignRecipientID: &recipient.ID,
		Status:              enums.OrderStatusPending,
		Total:               product.Price.Round(2),
		Currency:            product.Currency,
		ShippingAddress:     addr,
		Items: []models.OrderItem{{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    1,
			Price:       product.Price,
		}},
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create gift order")
		}
		marked, err := repo.MarkRedeemed(ctx, recipient.ID, Mark{
			OrderID:         order.ID,
			ProductID:       product.ID,
			ShippingAddress: addr,
			Preferences:     types.JSONMap(sel.Preferences),
			SelectedAt:      now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark gift link redeemed")
		}
		if !marked {
			return access.Conflict(invalidLinkMessage)
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventGiftRedeemed,
			AggregateType: enums.AggregateCampaignRecipient,
			AggregateID:   recipient.ID,
			Data: payloads.GiftRedeemedEvent{
				RecipientID:  recipient.ID,
				CampaignID:   campaign.ID,
				OrderID:      order.ID,
				CompanyID:    campaign.CompanyID,
				Email:        recipient.Email,
				Name:         recipient.Name,
				ProductName:  product.Name,
				CampaignName: campaign.Name,
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redeem gift")
	}

	s.audit.Record(ctx, nil, audit.Entry{
		Action:       "gift.redeemed",
		ResourceType: "campaign_recipient",
		ResourceID:   recipient.ID.String(),
		CompanyID:    &campaign.CompanyID,
		Details: map[string]any{
			"order_id":    order.ID.String(),
			"product_id":  product.ID.String(),
			"campaign_id": campaign.ID.String(),
		},
	})
	return &RedeemResult{
		OrderID:     order.ID,
		Status:      order.Status,
		ProductName: product.Name,
		Total:       order.Total,
		Currency:    order.Currency,
	}, nil
}

func (s *service) selectableProduct(ctx context.Context, campaign *models.Campaign, productID uuid.UUID) (*models.Product, error) {
	inSet, err := s.repo.InCampaign(ctx, campaign.ID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check campaign products")
	}
	if !inSet {
		return nil, pkgerrors.Validation("product_id", "product is not part of this campaign")
	}
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.Validation("product_id", "product is not available")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if err := visibility.EnsureProductSelectable(product, campaign.CompanyID); err != nil {
		return nil, err
	}
	return product, nil
}

func validateSelection(sel Selection) (*types.Address, error) {
	if sel.ProductID == uuid.Nil {
		return nil, pkgerrors.Validation("product_id", "product_id is required")
	}
	if sel.ShippingAddress == nil || sel.ShippingAddress.IsZero() {
		return nil, pkgerrors.Validation("shipping_address", "shipping address is required")
	}
	addr := sel.ShippingAddress.Normalize()
	if addr.City == "" || addr.PostalCode == "" {
		return nil, pkgerrors.Validation("shipping_address", "city and postal code are required")
	}
	return &addr, nil
}
