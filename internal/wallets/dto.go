package wallets

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/pagination"
)

type WalletDTO struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func walletFromModel(w *models.Wallet) WalletDTO {
	return WalletDTO{ID: w.ID, UserID: w.UserID, Balance: w.Balance, Currency: w.Currency, UpdatedAt: w.UpdatedAt}
}

type TransactionDTO struct {
	ID          uuid.UUID            `json:"id"`
	WalletID    uuid.UUID            `json:"wallet_id"`
	Type        enums.WalletTxType   `json:"type"`
	Status      enums.WalletTxStatus `json:"status"`
	Amount      decimal.Decimal      `json:"amount"`
	Currency    string               `json:"currency"`
	Method      enums.PaymentMethod  `json:"method"`
	Reference   *string              `json:"reference,omitempty"`
	CreatedBy   uuid.UUID            `json:"created_by"`
	ConfirmedBy *uuid.UUID           `json:"confirmed_by,omitempty"`
	ConfirmedAt *time.Time           `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

func transactionFromModel(t *models.WalletTransaction) TransactionDTO {
	return TransactionDTO{
		ID:          t.ID,
		WalletID:    t.WalletID,
		Type:        t.Type,
		Status:      t.Status,
		Amount:      t.Amount,
		Currency:    t.Currency,
		Method:      t.Method,
		Reference:   t.Reference,
		CreatedBy:   t.CreatedBy,
		ConfirmedBy: t.ConfirmedBy,
		ConfirmedAt: t.ConfirmedAt,
		CreatedAt:   t.CreatedAt,
	}
}

// CreditInput tops up a wallet. UserID defaults to the actor.
type CreditInput struct {
	UserID    *uuid.UUID
	Amount    decimal.Decimal
	Method    enums.PaymentMethod
	Reference *string
}

type CreditResult struct {
	Wallet      WalletDTO      `json:"wallet"`
	Transaction TransactionDTO `json:"transaction"`
}

type ListTransactionsInput struct {
	UserID     *uuid.UUID
	Status     *enums.WalletTxStatus
	Pagination pagination.Params
}
