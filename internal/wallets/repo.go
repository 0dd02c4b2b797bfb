package wallets

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

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

// Owner is the slice of a user row the wallet rules need.
type Owner struct {
	ID              uuid.UUID
	CompanyID       *uuid.UUID
	CompanyCurrency *string
}

// FindOwner loads the user with its company's currency, if any.
func (r *Repository) FindOwner(ctx context.Context, userID uuid.UUID) (*Owner, error) {
	var owner Owner
	res := r.db.WithContext(ctx).
		Table("users").
		Select("users.id AS id, users.company_id AS company_id, companies.currency AS company_currency").
		Joins("LEFT JOIN companies ON companies.id = users.company_id").
		Where("users.id = ?", userID).
		Limit(1).
		Scan(&owner)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &owner, nil
}

func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	if err := r.db.WithContext(ctx).First(&w, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	if err := r.db.WithContext(ctx).First(&w, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) Create(ctx context.Context, w *models.Wallet) error {
	return r.db.WithContext(ctx).Create(w).Error
}

// Relabel changes the currency code only; the balance is not converted.
func (r *Repository) Relabel(ctx context.Context, id uuid.UUID, currency string) error {
	return r.db.WithContext(ctx).Model(&models.Wallet{}).Where("id = ?", id).
		Updates(map[string]any{"currency": currency, "updated_at": time.Now().UTC()}).Error
}

// Increment adds amount in SQL so concurrent credits never overwrite each other.
func (r *Repository) Increment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&models.Wallet{}).Where("id = ?", id).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *Repository) CreateTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *Repository) FindTransactionForUpdate(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error) {
	var row models.WalletTransaction
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// CompletePending flips a pending row to completed. False means it was
// already settled or failed.
func (r *Repository) CompletePending(ctx context.Context, id, confirmedBy uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.WalletTransaction{}).
		Where("id = ? AND status = ?", id, enums.WalletTxPending).
		Updates(map[string]any{
			"status":       enums.WalletTxCompleted,
			"confirmed_by": confirmedBy,
			"confirmed_at": at,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *Repository) ListTransactions(ctx context.Context, walletID uuid.UUID, status *enums.WalletTxStatus, cursor *pagination.Cursor, limit int) ([]models.WalletTransaction, error) {
	q := r.db.WithContext(ctx).Model(&models.WalletTransaction{}).Where("wallet_transactions.wallet_id = ?", walletID)
	if status != nil {
		q = q.Where("wallet_transactions.status = ?", *status)
	}
	var rows []models.WalletTransaction
	err := pagination.Apply(q, "wallet_transactions", cursor, limit).Find(&rows).Error
	return rows, err
}
