package products

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
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

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// FindByID loads a product, soft-deleted or not.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads the live products among ids.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	if len(ids) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ? AND deleted_at IS NULL", ids).Find(&rows).Error
	return rows, err
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(updates).Error
}

// SoftDelete marks a live product deleted; it reports false when the product
// was already deleted.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", at)
	return res.RowsAffected == 1, res.Error
}

type listFilter struct {
	category string
	query    string
}

func (r *Repository) ListScoped(ctx context.Context, actor *access.Actor, input ListInput, cursor *pagination.Cursor) ([]models.Product, error) {
	opts := []access.ScopeOption{access.Narrow(input.CompanyID), access.Column("products.company_id")}
	if input.IncludeGlobal {
		opts = append(opts, access.IncludeGlobal())
	}
	q := access.ScopeFilter(actor, r.db.WithContext(ctx).Model(&models.Product{}), opts...).
		Where("products.deleted_at IS NULL")

	f := listFilter{category: strings.TrimSpace(input.Category), query: strings.TrimSpace(input.Query)}
	if f.category != "" {
		q = q.Where("LOWER(products.category) = ?", strings.ToLower(f.category))
	}
	if f.query != "" {
		like := "%" + strings.ToLower(f.query) + "%"
		q = q.Where("(LOWER(products.name) LIKE ? OR LOWER(COALESCE(products.sku, '')) LIKE ?)", like, like)
	}

	var rows []models.Product
	err := pagination.Apply(q, "products", cursor, input.Pagination.Limit).Find(&rows).Error
	return rows, err
}
