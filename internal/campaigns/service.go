package campaigns

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/internal/audit"
	"github.com/angelmondragon/giftdesk-backend/internal/recipients"
	"github.com/angelmondragon/giftdesk-backend/pkg/db"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/giftdesk-backend/pkg/pagination"
	"github.com/angelmondragon/giftdesk-backend/pkg/security"
	"github.com/angelmondragon/giftdesk-backend/pkg/visibility"
)

const (
	giftTokenBytes      = 32
	maxCampaignProducts = 100
	defaultLinkTTL      = 720 * time.Hour
)

type Service interface {
	Create(ctx context.Context, actor *access.Actor, input CreateInput) (*CampaignDTO, error)
	List(ctx context.Context, actor *access.Actor, input ListInput) (*pagination.Page[CampaignDTO], error)
	Get(ctx context.Context, actor *access.Actor, id uuid.UUID) (*CampaignDTO, error)
	SetProducts(ctx context.Context, actor *access.Actor, id uuid.UUID, productIDs []uuid.UUID) ([]uuid.UUID, error)
	ListProducts(ctx context.Context, actor *access.Actor, id uuid.UUID) ([]models.Product, error)
	ImportRecipients(ctx context.Context, actor *access.Actor, id uuid.UUID, format recipients.Format, r io.Reader) (*ImportResult, error)
	ListRecipients(ctx context.Context, actor *access.Actor, id uuid.UUID, params pagination.Params) (*pagination.Page[RecipientDTO], error)
	Launch(ctx context.Context, actor *access.Actor, id uuid.UUID) (*LaunchResult, error)
	UpdateStatus(ctx context.Context, actor *access.Actor, id uuid.UUID, status enums.CampaignStatus) (*CampaignDTO, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type productLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type ServiceParams struct {
	Repo          *Repository
	DB            *db.Client
	Outbox        outboxEmitter
	Products      productLoader
	Audit         audit.Recorder
	LinkTTL       time.Duration
	PublicBaseURL string
	Now           func() time.Time
}

type service struct {
	repo     *Repository
	db       *db.Client
	outbox   outboxEmitter
	products productLoader
	audit    audit.Recorder
	linkTTL  time.Duration
	baseURL  string
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("campaign repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if strings.TrimSpace(params.PublicBaseURL) == "" {
		return nil, fmt.Errorf("public base url required")
	}
	if params.Audit == nil {
		params.Audit = audit.Nop{}
	}
	if params.LinkTTL <= 0 {
		params.LinkTTL = defaultLinkTTL
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:     params.Repo,
		db:       params.DB,
		outbox:   params.Outbox,
		products: params.Products,
		audit:    params.Audit,
		linkTTL:  params.LinkTTL,
		baseURL:  params.PublicBaseURL,
		now:      params.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor *access.Actor, input CreateInput) (*CampaignDTO, error) {
	if err := access.RequireRole(actor, enums.AppRoleCompanyHR); err != nil {
		return nil, err
	}
	companyID := input.CompanyID
	if companyID == nil {
		companyID = actor.CompanyID
	}
	if companyID == nil {
		return nil, pkgerrors.Validation("company_id", "company is required")
	}
	if err := access.RequireTenant(actor, *companyID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.Validation("name", "name is required")
	}
	if input.Budget.IsNegative() {
		return nil, pkgerrors.Validation("budget", "budget cannot be negative")
	}
	now := s.now().UTC()
	if input.EndsAt != nil {
		if !input.EndsAt.After(now) {
			return nil, pkgerrors.Validation("ends_at", "ends_at must be in the future")
		}
		if input.StartsAt != nil && !input.EndsAt.After(*input.StartsAt) {
			return nil, pkgerrors.Validation("ends_at", "ends_at must be after starts_at")
		}
	}

	campaign := &models.Campaign{
		CompanyID:   *companyID,
		Name:        name,
		Description: input.Description,
		Status:      enums.CampaignStatusDraft,
		Budget:      input.Budget.Round(2),
		StartsAt:    utcPtr(input.StartsAt),
		EndsAt:      utcPtr(input.EndsAt),
		CreatedBy:   actor.UserID,
	}
	if err := s.repo.Create(ctx, campaign); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create campaign")
	}
	s.audit.Record(ctx, actor, audit.Entry{
		Action:       "campaign.created",
		ResourceType: "campaign",
		ResourceID:   campaign.ID.String(),
		CompanyID:    companyID,
		Details:      map[string]any{"name": name},
	})
	dto := FromModel(campaign)
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor *access.Actor, input ListInput) (*pagination.Page[CampaignDTO], error) {
	if err := access.RequireRole(actor, enums.AppRoleCompanyHR); err != nil {
		return nil, err
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.Validation("status", "unknown campaign status")
	}
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Validation("cursor", "invalid cursor")
	}
	rows, err := s.repo.ListScoped(ctx, actor, input.CompanyID, input.Status, cursor, input.Pagination.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list campaigns")
	}
	page := pagination.BuildPage(rows, input.Pagination.Limit, func(c models.Campaign) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	out := &pagination.Page[CampaignDTO]{NextCursor: page.NextCursor, Items: make([]CampaignDTO, 0, len(page.Items))}
	for i := range page.Items {
		out.Items = append(out.Items, FromModel(&page.Items[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor *access.Actor, id uuid.UUID) (*CampaignDTO, error) {
	campaign, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(campaign)
	return &dto, nil
}

// load applies the role and tenant checks shared by every campaign operation.
func (s *service) load(ctx context.Context, actor *access.Actor, id uuid.UUID) (*models.Campaign, error) {
	if err := access.RequireRole(actor, enums.AppRoleCompanyHR); err != nil {
		return nil, err
	}
	campaign, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, access.LoadError(err, "campaign")
	}
	if err := access.RequireTenant(actor, campaign.CompanyID); err != nil {
		return nil, err
	}
	return campaign, nil
}

func (s *service) SetProducts(ctx context.Context, actor *access.Actor, id uuid.UUID, productIDs []uuid.UUID) ([]uuid.UUID, error) {
	campaign, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if campaign.Status.IsTerminal() {
		return nil, access.StateConflict("campaign is " + campaign.Status.String())
	}

	ids := dedupe(productIDs)
	if len(ids) > maxCampaignProducts {
		return nil, pkgerrors.Validation("product_ids", fmt.Sprintf("at most %d products per campaign", maxCampaignProducts))
	}
	found, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	byID := make(map[uuid.UUID]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	for _, pid := range ids {
		p, ok := byID[pid]
		if !ok {
			return nil, pkgerrors.Validation("product_ids", "product "+pid.String()+" is not available")
		}
		if err := visibility.EnsureProductSelectable(&p, campaign.CompanyID); err != nil {
			return nil, err
		}
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).ReplaceProducts(ctx, campaign.ID, ids)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace campaign products")
	}
	s.audit.Record(ctx, actor, audit.Entry{
		Action:       "campaign.products_set",
		ResourceType: "campaign",
		ResourceID:   campaign.ID.String(),
		CompanyID:    &campaign.CompanyID,
		Details:      map[string]any{"count": len(ids)},
	})
	return ids, nil
}

func (s *service) ListProducts(ctx context.Context, actor *access.Actor, id uuid.UUID) ([]models.Product, error) {
	campaign, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListProducts(ctx, campaign.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list campaign products")
	}
	return rows, nil
}

func (s *service) ImportRecipients(ctx context.Context, actor *access.Actor, id uuid.UUID, format recipients.Format, r io.Reader) (*ImportResult, error) {
	campaign, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if campaign.Status.IsTerminal() {
		return nil, access.StateConflict("campaign is " + campaign.Status.String())
	}

	parsed, err := recipients.Parse(format, r)
	if err != nil {
		return nil, err
	}
	emails := make([]string, 0, len(parsed.Rows))
	for _, row := range parsed.Rows {
		emails = append(emails, row.Email)
	}
	existing, err := s.repo.ExistingEmails(ctx, campaign.ID, emails)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load existing recipients")
	}

	expiresAt := s.linkExpiry(campaign)
	result := &ImportResult{Skipped: parsed.Skipped}
	rows := make([]models.CampaignRecipient, 0, len(parsed.Rows))
	for _, row := range parsed.Rows {
		if _, dup := existing[row.Email]; dup {
			result.Skipped++
			continue
		}
		token, err := security.GenerateURLToken(giftTokenBytes)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate gift token")
		}
		rows = append(rows, models.CampaignRecipient{
			ID:            uuid.New(),
			CampaignID:    campaign.ID,
			Name:          row.Name,
			Email:         row.Email,
			Designation:   row.Designation,
			Department:    row.Department,
			Phone:         row.Phone,
			GiftLinkToken: token,
			LinkExpiresAt: &expiresAt,
		})
	}
	result.Imported = len(rows)
	if len(rows) == 0 {
		return result, nil
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateRecipients(ctx, rows); err != nil {
			if db.IsUniqueViolation(err, "") {
				return access.Conflict("recipients changed while importing; retry the upload")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create recipients")
		}
		// Links on a running campaign go out immediately.
		if campaign.Status != enums.CampaignStatusActive {
			return nil
		}
		for i := range rows {
			if err := s.emitIssued(ctx, tx, actor, campaign, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "import recipients")
	}

	s.audit.Record(ctx, actor, audit.Entry{
		Action:       "campaign.recipients_imported",
		ResourceType: "campaign",
		ResourceID:   campaign.ID.String(),
		CompanyID:    &campaign.CompanyID,
		Details:      map[string]any{"imported": result.Imported, "skipped": result.Skipped, "format": string(format)},
	})
	return result, nil
}

func (s *service) ListRecipients(ctx context.Context, actor *access.Actor, id uuid.UUID, params pagination.Params) (*pagination.Page[RecipientDTO], error) {
	campaign, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Validation("cursor", "invalid cursor")
	}
	rows, err := s.repo.ListRecipients(ctx, campaign.ID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recipients")
	}
	page := pagination.BuildPage(rows, params.Limit, func(r models.CampaignRecipient) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	now := s.now()
	out := &pagination.Page[RecipientDTO]{NextCursor: page.NextCursor, Items: make([]RecipientDTO, 0, len(page.Items))}
	for _, r := range page.Items {
		out.Items = append(out.Items, recipientFromModel(r, s.baseURL, now))
	}
	return out, nil
}

func (s *service) Launch(ctx context.Context, actor *access.Actor, id uuid.UUID) (*LaunchResult, error) {
	if err := access.RequireRole(actor, enums.AppRoleCompanyHR); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	var campaign *models.Campaign
	sent := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		c, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return access.LoadError(err, "campaign")
		}
		if err := access.RequireTenant(actor, c.CompanyID); err != nil {
			return err
		}
		if c.Status != enums.CampaignStatusDraft {
			return access.StateConflict("only draft campaigns can be launched")
		}
		products, err := repo.CountProducts(ctx, c.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count campaign products")
		}
		if products == 0 {
			return access.StateConflict("campaign has no products")
		}
		rows, err := repo.AllRecipients(ctx, c.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recipients")
		}
		if len(rows) == 0 {
			return access.StateConflict("campaign has no recipients")
		}

		updated, err := repo.UpdateStatus(ctx, c.ID, enums.CampaignStatusDraft, enums.CampaignStatusActive, &now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate campaign")
		}
		if !updated {
			return access.StateConflict("campaign status changed concurrently")
		}
		c.Status = enums.CampaignStatusActive
		c.LaunchedAt = &now

		for i := range rows {
			if rows[i].IsRedeemed() || rows[i].IsExpired(now) {
				continue
			}
			if err := s.emitIssued(ctx, tx, actor, c, &rows[i]); err != nil {
				return err
			}
			sent++
		}
		campaign = c
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "launch campaign")
	}

	s.audit.Record(ctx, actor, audit.Entry{
		Action:       "campaign.launched",
		ResourceType: "campaign",
		ResourceID:   campaign.ID.String(),
		CompanyID:    &campaign.CompanyID,
		Details:      map[string]any{"links_sent": sent},
	})
	return &LaunchResult{Campaign: FromModel(campaign), LinksSent: sent}, nil
}

// UpdateStatus closes a campaign. Activation goes through Launch.
func (s *service) UpdateStatus(ctx context.Context, actor *access.Actor, id uuid.UUID, status enums.CampaignStatus) (*CampaignDTO, error) {
	if status != enums.CampaignStatusCompleted && status != enums.CampaignStatusCancelled {
		return nil, pkgerrors.Validation("status", "status must be completed or cancelled")
	}
	campaign, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !canClose(campaign.Status, status) {
		return nil, access.StateConflict(fmt.Sprintf("campaign cannot move from %s to %s", campaign.Status, status))
	}
	updated, err := s.repo.UpdateStatus(ctx, campaign.ID, campaign.Status, status, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update campaign status")
	}
	if !updated {
		return nil, access.StateConflict("campaign status changed concurrently")
	}
	from := campaign.Status
	campaign.Status = status
	s.audit.Record(ctx, actor, audit.Entry{
		Action:       "campaign.status_changed",
		ResourceType: "campaign",
		ResourceID:   campaign.ID.String(),
		CompanyID:    &campaign.CompanyID,
		Details:      map[string]any{"from": from.String(), "to": status.String()},
	})
	dto := FromModel(campaign)
	return &dto, nil
}

func canClose(from, to enums.CampaignStatus) bool {
	switch from {
	case enums.CampaignStatusDraft:
		return to == enums.CampaignStatusCancelled
	case enums.CampaignStatusActive:
		return to == enums.CampaignStatusCompleted || to == enums.CampaignStatusCancelled
	}
	return false
}

func (s *service) emitIssued(ctx context.Context, tx *gorm.DB, actor *access.Actor, campaign *models.Campaign, r *models.CampaignRecipient) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventGiftLinkIssued,
		AggregateType: enums.AggregateCampaignRecipient,
		AggregateID:   r.ID,
		Actor:         actor.OutboxRef(),
		Data: payloads.GiftLinkIssuedEvent{
			RecipientID:   r.ID,
			CampaignID:    campaign.ID,
			CompanyID:     campaign.CompanyID,
			CampaignName:  campaign.Name,
			Email:         r.Email,
			Name:          r.Name,
			GiftURL:       GiftURL(s.baseURL, r.GiftLinkToken),
			LinkExpiresAt: r.LinkExpiresAt,
		},
	})
}

// linkExpiry is the campaign end when set, otherwise now plus the link TTL.
func (s *service) linkExpiry(campaign *models.Campaign) time.Time {
	if campaign.EndsAt != nil {
		return campaign.EndsAt.UTC()
	}
	return s.now().UTC().Add(s.linkTTL)
}

func asServiceError(err error, op string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
