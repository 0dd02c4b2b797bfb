package campaigns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/pagination"
)

const recipientBatchSize = 200

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, campaign *models.Campaign) error {
	return r.db.WithContext(ctx).Create(campaign).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := r.db.WithContext(ctx).First(&campaign, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&campaign, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *Repository) ListScoped(ctx context.Context, actor *access.Actor, companyID *uuid.UUID, status *enums.CampaignStatus, cursor *pagination.Cursor, limit int) ([]models.Campaign, error) {
	q := access.ScopeFilter(actor, r.db.WithContext(ctx).Model(&models.Campaign{}),
		access.Narrow(companyID), access.Column("campaigns.company_id"))
	if status != nil {
		q = q.Where("campaigns.status = ?", *status)
	}
	var rows []models.Campaign
	err := pagination.Apply(q, "campaigns", cursor, limit).Find(&rows).Error
	return rows, err
}

// UpdateStatus moves a campaign only when it is still in from.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.CampaignStatus, launchedAt *time.Time) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	if launchedAt != nil {
		updates["launched_at"] = *launchedAt
	}
	res := r.db.WithContext(ctx).Model(&models.Campaign{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

// ReplaceProducts swaps the campaign's product set for productIDs.
func (r *Repository) ReplaceProducts(ctx context.Context, campaignID uuid.UUID, productIDs []uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("campaign_id = ?", campaignID).Delete(&models.CampaignProduct{}).Error; err != nil {
		return err
	}
	if len(productIDs) == 0 {
		return nil
	}
	rows := make([]models.CampaignProduct, 0, len(productIDs))
	for _, id := range productIDs {
		rows = append(rows, models.CampaignProduct{CampaignID: campaignID, ProductID: id})
	}
	return db.Create(&rows).Error
}

// ListProducts returns the live products in the campaign's product set.
func (r *Repository) ListProducts(ctx context.Context, campaignID uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Joins("JOIN campaign_products cp ON cp.product_id = products.id").
		Where("cp.campaign_id = ? AND products.deleted_at IS NULL", campaignID).
		Order("products.name ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) CountProducts(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CampaignProduct{}).Where("campaign_id = ?", campaignID).Count(&count).Error
	return count, err
}

// HasProduct reports whether productID is in the campaign's product set.
func (r *Repository) HasProduct(ctx context.Context, campaignID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CampaignProduct{}).
		Where("campaign_id = ? AND product_id = ?", campaignID, productID).
		Count(&count).Error
	return count > 0, err
}

// ExistingEmails returns which of emails already belong to the campaign.
func (r *Repository) ExistingEmails(ctx context.Context, campaignID uuid.UUID, emails []string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	if len(emails) == 0 {
		return out, nil
	}
	var found []string
	err := r.db.WithContext(ctx).Model(&models.CampaignRecipient{}).
		Where("campaign_id = ? AND email IN ?", campaignID, emails).
		Pluck("email", &found).Error
	if err != nil {
		return nil, err
	}
	for _, e := range found {
		out[e] = struct{}{}
	}
	return out, nil
}

func (r *Repository) CreateRecipients(ctx context.Context, rows []models.CampaignRecipient) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&rows, recipientBatchSize).Error
}

func (r *Repository) ListRecipients(ctx context.Context, campaignID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.CampaignRecipient, error) {
	q := r.db.WithContext(ctx).Model(&models.CampaignRecipient{}).Where("campaign_recipients.campaign_id = ?", campaignID)
	var rows []models.CampaignRecipient
	err := pagination.Apply(q, "campaign_recipients", cursor, limit).Find(&rows).Error
	return rows, err
}

// AllRecipients loads every recipient of a campaign, oldest first.
func (r *Repository) AllRecipients(ctx context.Context, campaignID uuid.UUID) ([]models.CampaignRecipient, error) {
	var rows []models.CampaignRecipient
	err := r.db.WithContext(ctx).Where("campaign_id = ?", campaignID).Order("created_at ASC, id ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) CountRecipients(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CampaignRecipient{}).Where("campaign_id = ?", campaignID).Count(&count).Error
	return count, err
}

// ExpiringRecipient pairs an unredeemed recipient with its campaign name.
type ExpiringRecipient struct {
	models.CampaignRecipient
	CampaignName string
}

// ListExpiring returns unredeemed recipients of active campaigns whose links
// lapse in (now, now+window] and who have not been reminded yet.
func (r *Repository) ListExpiring(ctx context.Context, now time.Time, window time.Duration, limit int) ([]ExpiringRecipient, error) {
	var rows []ExpiringRecipient
	err := r.db.WithContext(ctx).
		Table("campaign_recipients").
		Select("campaign_recipients.*, campaigns.name AS campaign_name").
		Joins("JOIN campaigns ON campaigns.id = campaign_recipients.campaign_id").
		Where("campaigns.status = ?", enums.CampaignStatusActive).
		Where("campaign_recipients.order_id IS NULL").
		Where("campaign_recipients.link_expires_at > ? AND campaign_recipients.link_expires_at <= ?", now, now.Add(window)).
		Where("NOT EXISTS (SELECT 1 FROM outbox_events WHERE outbox_events.event_type = ? AND outbox_events.aggregate_id = campaign_recipients.id)", enums.EventGiftLinkExpiring).
		Order("campaign_recipients.link_expires_at ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
