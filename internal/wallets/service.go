package wallets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/internal/audit"
	"github.com/angelmondragon/giftdesk-backend/pkg/db"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/giftdesk-backend/pkg/pagination"
)

type Service interface {
	GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	GetWallet(ctx context.Context, actor *access.Actor, userID *uuid.UUID) (*WalletDTO, error)
	CreditWallet(ctx context.Context, actor *access.Actor, input CreditInput) (*CreditResult, error)
	ConfirmPendingTransaction(ctx context.Context, actor *access.Actor, txID uuid.UUID) (*CreditResult, error)
	ListTransactions(ctx context.Context, actor *access.Actor, input ListTransactionsInput) (*pagination.Page[TransactionDTO], error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ServiceParams struct {
	Repo            *Repository
	DB              *db.Client
	Outbox          outboxEmitter
	Audit           audit.Recorder
	Logger          *logger.Logger
	DefaultCurrency string
	Now             func() time.Time
}

type service struct {
	repo            *Repository
	db              *db.Client
	outbox          outboxEmitter
	audit           audit.Recorder
	logg            *logger.Logger
	defaultCurrency string
	now             func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	currency, err := enums.ParseCurrency(strings.ToUpper(strings.TrimSpace(params.DefaultCurrency)))
	if err != nil {
		return nil, fmt.Errorf("default wallet currency: %w", err)
	}
	if params.Audit == nil {
		params.Audit = audit.Nop{}
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:            params.Repo,
		db:              params.DB,
		outbox:          params.Outbox,
		audit:           params.Audit,
		logg:            params.Logger,
		defaultCurrency: string(currency),
		now:             params.Now,
	}, nil
}

// GetOrCreateWallet returns the user's wallet, creating it on first use. A
// wallet whose currency no longer matches the company's is relabelled in
// place; the balance keeps its numeric value.
func (s *service) GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	owner, err := s.repo.FindOwner(ctx, userID)
	if err != nil {
		return nil, access.LoadError(err, "user")
	}
	currency := s.defaultCurrency
	if owner.CompanyCurrency != nil && *owner.CompanyCurrency != "" {
		currency = *owner.CompanyCurrency
	}

	wallet, err := s.repo.FindByUserID(ctx, userID)
	switch {
	case err == nil:
	case db.IsNotFound(err):
		if wallet, err = s.create(ctx, userID, currency); err != nil {
			return nil, err
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}

	if wallet.Currency != currency {
		if err := s.repo.Relabel(ctx, wallet.ID, currency); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "relabel wallet currency")
		}
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"wallet_id": wallet.ID.String(),
			"from":      wallet.Currency,
			"to":        currency,
		})
		s.logg.Info(logCtx, "wallet.currency_relabelled")
		wallet.Currency = currency
	}
	return wallet, nil
}

// create inserts an empty wallet. Losing the insert race to a concurrent
// request is fine: the winner's row is read back.
func (s *service) create(ctx context.Context, userID uuid.UUID, currency string) (*models.Wallet, error) {
	wallet := &models.Wallet{UserID: userID, Balance: decimal.Zero, Currency: currency}
	err := s.repo.Create(ctx, wallet)
	if err == nil {
		return wallet, nil
	}
	if !db.IsUniqueViolation(err, "") {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet")
	}
	wallet, err = s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload wallet")
	}
	return wallet, nil
}

func (s *service) GetWallet(ctx context.Context, actor *access.Actor, userID *uuid.UUID) (*WalletDTO, error) {
	target, err := s.authorizeOwnerRead(ctx, actor, userID)
	if err != nil {
		return nil, err
	}
	wallet, err := s.GetOrCreateWallet(ctx, target)
	if err != nil {
		return nil, err
	}
	dto := walletFromModel(wallet)
	return &dto, nil
}

// authorizeOwnerRead allows the owner, HR of the owner's company, or a super
// admin.
func (s *service) authorizeOwnerRead(ctx context.Context, actor *access.Actor, userID *uuid.UUID) (uuid.UUID, error) {
	if err := access.RequireRole(actor, enums.AppRoleEmployee); err != nil {
		return uuid.Nil, err
	}
	if userID == nil || *userID == actor.UserID {
		return actor.UserID, nil
	}
	if err := access.RequireRole(actor, enums.AppRoleCompanyHR); err != nil {
		return uuid.Nil, err
	}
	owner, err := s.repo.FindOwner(ctx, *userID)
	if err != nil {
		return uuid.Nil, access.LoadError(err, "user")
	}
	if actor.IsSuperAdmin() {
		return owner.ID, nil
	}
	if owner.CompanyID == nil {
		return uuid.Nil, access.NotFound("user")
	}
	if err := access.RequireTenant(actor, *owner.CompanyID); err != nil {
		return uuid.Nil, err
	}
	return owner.ID, nil
}

func (s *service) CreditWallet(ctx context.Context, actor *access.Actor, input CreditInput) (*CreditResult, error) {
	if err := access.RequireRole(actor, enums.AppRoleEmployee); err != nil {
		return nil, err
	}
	amount := input.Amount
	if !amount.IsPositive() {
		return nil, pkgerrors.Validation("amount", "amount must be greater than zero")
	}
	// Ledger amounts are whole cents; a sub-cent credit would round to zero.
	if !amount.Equal(amount.Truncate(2)) {
		return nil, pkgerrors.Validation("amount", "amount must have at most 2 decimal places")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.Validation("method", "unknown payment method")
	}
	target := actor.UserID
	if input.UserID != nil && *input.UserID != actor.UserID {
		if !actor.IsSuperAdmin() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only super admins can credit another user's wallet").
				WithDetails(map[string]any{"reason": access.ReasonRoleInsufficient})
		}
		target = *input.UserID
	}

	wallet, err := s.GetOrCreateWallet(ctx, target)
	if err != nil {
		return nil, err
	}

	row := &models.WalletTransaction{
		ID:        uuid.New(),
		WalletID:  wallet.ID,
		Type:      enums.WalletTxCredit,
		Status:    enums.WalletTxPending,
		Amount:    amount,
		Currency:  wallet.Currency,
		Method:    input.Method,
		Reference: input.Reference,
		CreatedBy: actor.UserID,
	}
	instant := input.Method.SettlesInstantly()
	if instant {
		row.Status = enums.WalletTxCompleted
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateTransaction(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record wallet transaction")
		}
		if instant {
			if err := repo.Increment(ctx, wallet.ID, amount); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment wallet balance")
			}
		}
		return s.emitCredited(ctx, tx, actor, wallet, row)
	})
	if err != nil {
		return nil, asServiceError(err, "credit wallet")
	}

	s.audit.Record(ctx, actor, audit.Entry{
		Action:       "wallet.credited",
		ResourceType: "wallet_transaction",
		ResourceID:   row.ID.String(),
		Details: map[string]any{
			"user_id": target.String(),
			"amount":  amount.StringFixed(2),
			"method":  input.Method.String(),
			"status":  string(row.Status),
		},
	})
	return s.result(ctx, wallet.ID, row)
}

func (s *service) ConfirmPendingTransaction(ctx context.Context, actor *access.Actor, txID uuid.UUID) (*CreditResult, error) {
	if err := access.RequireRole(actor, enums.AppRoleSuperAdmin); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	var row *models.WalletTransaction
	var wallet *models.Wallet
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindTransactionForUpdate(ctx, txID)
		if err != nil {
			return access.LoadError(err, "wallet transaction")
		}
		ok, err := repo.CompletePending(ctx, current.ID, actor.UserID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm wallet transaction")
		}
		if !ok {
			return access.Conflict("transaction is not pending")
		}
		if err := repo.Increment(ctx, current.WalletID, current.Amount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment wallet balance")
		}
		w, err := repo.FindByID(ctx, current.WalletID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
		}
		current.Status = enums.WalletTxCompleted
		current.ConfirmedBy = &actor.UserID
		current.ConfirmedAt = &now
		row, wallet = current, w
		return s.emitCredited(ctx, tx, actor, w, current)
	})
	if err != nil {
		return nil, asServiceError(err, "confirm wallet transaction")
	}

	s.audit.Record(ctx, actor, audit.Entry{
		Action:       "wallet.transaction_confirmed",
		ResourceType: "wallet_transaction",
		ResourceID:   row.ID.String(),
		Details:      map[string]any{"amount": row.Amount.StringFixed(2), "user_id": wallet.UserID.String()},
	})
	return s.result(ctx, wallet.ID, row)
}

func (s *service) ListTransactions(ctx context.Context, actor *access.Actor, input ListTransactionsInput) (*pagination.Page[TransactionDTO], error) {
	target, err := s.authorizeOwnerRead(ctx, actor, input.UserID)
	if err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Validation("cursor", "invalid cursor")
	}
	wallet, err := s.GetOrCreateWallet(ctx, target)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListTransactions(ctx, wallet.ID, input.Status, cursor, input.Pagination.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}
	page := pagination.BuildPage(rows, input.Pagination.Limit, func(t models.WalletTransaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	out := &pagination.Page[TransactionDTO]{NextCursor: page.NextCursor, Items: make([]TransactionDTO, 0, len(page.Items))}
	for i := range page.Items {
		out.Items = append(out.Items, transactionFromModel(&page.Items[i]))
	}
	return out, nil
}

func (s *service) emitCredited(ctx context.Context, tx *gorm.DB, actor *access.Actor, wallet *models.Wallet, row *models.WalletTransaction) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventWalletCredited,
		AggregateType: enums.AggregateWalletTransaction,
		AggregateID:   row.ID,
		Actor:         actor.OutboxRef(),
		Data: payloads.WalletCreditedEvent{
			TransactionID: row.ID,
			WalletID:      wallet.ID,
			UserID:        wallet.UserID,
			Amount:        row.Amount,
			Currency:      row.Currency,
			Method:        row.Method,
			Status:        row.Status,
		},
	})
}

func (s *service) result(ctx context.Context, walletID uuid.UUID, row *models.WalletTransaction) (*CreditResult, error) {
	wallet, err := s.repo.FindByID(ctx, walletID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload wallet")
	}
	return &CreditResult{Wallet: walletFromModel(wallet), Transaction: transactionFromModel(row)}, nil
}

func asServiceError(err error, op string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
