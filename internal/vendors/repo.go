package vendors

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
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

func (r *Repository) CreateVendor(ctx context.Context, v *models.Vendor) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *Repository) FindVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var v models.Vendor
	if err := r.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *Repository) UpdateVendor(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Vendor{}).Where("id = ?", id).Updates(updates).Error
}

func (r *Repository) ListVendors(ctx context.Context, activeOnly bool) ([]models.Vendor, error) {
	q := r.db.WithContext(ctx).Model(&models.Vendor{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var rows []models.Vendor
	err := q.Order("name ASC, id ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) CreateAssignment(ctx context.Context, a *models.OrderVendorAssignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *Repository) FindAssignmentForUpdate(ctx context.Context, id uuid.UUID) (*models.OrderVendorAssignment, error) {
	var a models.OrderVendorAssignment
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&a, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAssignment applies updates only while the row is still in from.
func (r *Repository) UpdateAssignment(ctx context.Context, id uuid.UUID, from enums.AssignmentStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.OrderVendorAssignment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

func (r *Repository) FindAssignment(ctx context.Context, id uuid.UUID) (*models.OrderVendorAssignment, error) {
	var a models.OrderVendorAssignment
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repository) ListAssignments(ctx context.Context, orderID uuid.UUID) ([]models.OrderVendorAssignment, error) {
	var rows []models.OrderVendorAssignment
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC, id ASC").Find(&rows).Error
	return rows, err
}
