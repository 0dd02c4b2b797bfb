package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a gorm-backed order repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.created_at ASC, order_items.id ASC") }).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListScoped(ctx context.Context, actor *access.Actor, filters ListFilters, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	q := access.ScopeFilter(actor, r.db.WithContext(ctx).Model(&models.Order{}),
		access.Narrow(filters.CompanyID), access.Column("orders.company_id"))
	if filters.Status != nil {
		q = q.Where("orders.status = ?", *filters.Status)
	}
	if filters.CampaignID != nil {
		q = q.Where("orders.campaign_id = ?", *filters.CampaignID)
	}
	var rows []models.Order
	err := pagination.Apply(q, "orders", cursor, limit).Preload("Items").Find(&rows).Error
	return rows, err
}

func (r *repository) ListByCampaign(ctx context.Context, campaignID uuid.UUID, excludeCancelled bool) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Where("campaign_id = ?", campaignID)
	if excludeCancelled {
		q = q.Where("status <> ?", enums.OrderStatusCancelled)
	}
	var rows []models.Order
	err := q.Preload("Items").Order("created_at ASC, id ASC").Find(&rows).Error
	return rows, err
}

// UpdateStatus moves an order from one status to the next. It reports false
// when the order was no longer in from.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected == 1, res.Error
}
