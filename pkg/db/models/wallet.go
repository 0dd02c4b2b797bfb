package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
)

// Wallet is the per-user balance. Currency follows the owning company.
type Wallet struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_wallets_user_id"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(14,2);not null"`
	Currency  string          `gorm:"column:currency;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *Wallet) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

// WalletTransaction is an append-only ledger row.
type WalletTransaction struct {
	ID          uuid.UUID            `gorm:"type:uuid;primaryKey"`
	WalletID    uuid.UUID            `gorm:"column:wallet_id;type:uuid;not null;index"`
	Type        enums.WalletTxType   `gorm:"column:type;not null"`
	Status      enums.WalletTxStatus `gorm:"column:status;not null;index"`
	Amount      decimal.Decimal      `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency    string               `gorm:"column:currency;not null"`
	Method      enums.PaymentMethod  `gorm:"column:method;not null"`
	Reference   *string              `gorm:"column:reference"`
	CreatedBy   uuid.UUID            `gorm:"column:created_by;type:uuid;not null"`
	ConfirmedBy *uuid.UUID           `gorm:"column:confirmed_by;type:uuid"`
	ConfirmedAt *time.Time           `gorm:"column:confirmed_at"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (t *WalletTransaction) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
