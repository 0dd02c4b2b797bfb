package invoices

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/pagination"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, inv *models.Invoice) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	if err := r.db.WithContext(ctx).First(&inv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *Repository) ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Invoice{}).Where("order_id = ?", orderID).Count(&count).Error
	return count > 0, err
}

func (r *Repository) ExistsForCampaign(ctx context.Context, campaignID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Invoice{}).Where("campaign_id = ?", campaignID).Count(&count).Error
	return count > 0, err
}

func (r *Repository) ListScoped(ctx context.Context, actor *access.Actor, filters ListFilters, cursor *pagination.Cursor, limit int) ([]models.Invoice, error) {
	q := access.ScopeFilter(actor, r.db.WithContext(ctx).Model(&models.Invoice{}),
		access.Narrow(filters.CompanyID), access.Column("invoices.company_id"))
	if filters.Status != nil {
		q = q.Where("invoices.status = ?", *filters.Status)
	}
	if filters.Kind != nil {
		q = q.Where("invoices.kind = ?", *filters.Kind)
	}
	var rows []models.Invoice
	err := pagination.Apply(q, "invoices", cursor, limit).Find(&rows).Error
	return rows, err
}

// MarkPaid flips an issued invoice to paid. False means it was not issued.
func (r *Repository) MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ? AND status = ?", id, enums.InvoiceStatusIssued).
		Updates(map[string]any{"status": enums.InvoiceStatusPaid, "paid_at": at, "updated_at": at})
	return res.RowsAffected == 1, res.Error
}
