package users

import (
	"context"
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

// WithTx binds the repository to an open transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByEmail expects email already lower-cased; emails are stored that way.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) first(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// RecordLogin stamps last_login_at and, when rehash is set, swaps in the
// upgraded password hash in the same statement.
func (r *Repository) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time, rehash string) error {
	updates := map[string]any{"last_login_at": at}
	if rehash != "" {
		updates["password_hash"] = rehash
	}
	return r.Update(ctx, id, updates)
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates).Error
}

// ListScoped pages users visible to actor.
func (r *Repository) ListScoped(ctx context.Context, actor *access.Actor, companyID *uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.User, error) {
	q := access.ScopeFilter(actor, r.db.WithContext(ctx).Model(&models.User{}), access.Narrow(companyID))
	var rows []models.User
	err := pagination.Apply(q, "users", cursor, limit).Find(&rows).Error
	return rows, err
}
