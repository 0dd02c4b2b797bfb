package companies

import (
	"context"

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

func (r *Repository) Create(ctx context.Context, company *models.Company) error {
	return r.db.WithContext(ctx).Create(company).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var company models.Company
	if err := r.db.WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *Repository) FindByStoreIdentifier(ctx context.Context, identifier string) (*models.Company, error) {
	var company models.Company
	if err := r.db.WithContext(ctx).Where("store_identifier = ?", identifier).First(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

// Exists reports whether a company row with id is present.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Company{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SubdomainTaken reports whether another company already uses subdomain.
func (r *Repository) SubdomainTaken(ctx context.Context, subdomain string, except uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Company{}).
		Where("subdomain = ? AND id <> ?", subdomain, except).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) Save(ctx context.Context, company *models.Company) error {
	return r.db.WithContext(ctx).Save(company).Error
}

func (r *Repository) ListScoped(ctx context.Context, actor *access.Actor, cursor *pagination.Cursor, limit int) ([]models.Company, error) {
	q := access.ScopeFilter(actor, r.db.WithContext(ctx).Model(&models.Company{}), access.Column("companies.id"))
	var rows []models.Company
	err := pagination.Apply(q, "companies", cursor, limit).Find(&rows).Error
	return rows, err
}

// ListSelectable returns every company visible to the picker flow, by name.
func (r *Repository) ListSelectable(ctx context.Context, actor *access.Actor) ([]models.Company, error) {
	q := access.ScopeFilter(actor, r.db.WithContext(ctx).Model(&models.Company{}),
		access.Column("companies.id"), access.AllowUnboundFallback())
	var rows []models.Company
	err := q.Select("id", "name").Order("name ASC").Find(&rows).Error
	return rows, err
}
