package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftdesk-backend/api/middleware"
	"github.com/angelmondragon/giftdesk-backend/api/responses"
	"github.com/angelmondragon/giftdesk-backend/api/validators"
	"github.com/angelmondragon/giftdesk-backend/internal/wallets"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/metrics"
)

// GetMyWallet returns the caller's wallet, creating it on first access.
func GetMyWallet(svc wallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "wallet")
			return
		}
		wallet, err := svc.GetWallet(r.Context(), middleware.ActorFromContext(r.Context()), nil)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, wallet)
	}
}

func GetUserWallet(svc wallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "wallet")
			return
		}
		userID, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		wallet, err := svc.GetWallet(r.Context(), middleware.ActorFromContext(r.Context()), &userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, wallet)
	}
}

type creditWalletRequest struct {
	UserID    *uuid.UUID      `json:"user_id,omitempty"`
	Amount    decimal.Decimal `json:"amount" validate:"amount"`
	Method    string          `json:"method" validate:"required"`
	Reference *string         `json:"reference,omitempty" validate:"omitempty,max=120"`
}

// CreditWallet tops up a wallet. Instant methods settle immediately; bank
// transfers and cheques stay pending until confirmed.
func CreditWallet(svc wallets.Service, m *metrics.GiftingMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "wallet")
			return
		}
		var body creditWalletRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := parseEnumBody("method", body.Method, enums.ParsePaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreditWallet(r.Context(), middleware.ActorFromContext(r.Context()), wallets.CreditInput{
			UserID:    body.UserID,
			Amount:    body.Amount,
			Method:    method,
			Reference: body.Reference,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		m.WalletCredit(string(method), string(result.Transaction.Status))
		responses.WriteCreated(w, result)
	}
}

func ConfirmWalletTransaction(svc wallets.Service, m *metrics.GiftingMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "wallet")
			return
		}
		txID, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ConfirmPendingTransaction(r.Context(), middleware.ActorFromContext(r.Context()), txID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		m.WalletCredit(string(result.Transaction.Method), string(result.Transaction.Status))
		responses.WriteSuccess(w, result)
	}
}

func ListWalletTransactions(svc wallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "wallet")
			return
		}
		userID, err := validators.ParseQueryUUID(r, "user_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := parseEnumQuery(r, "status", enums.ParseWalletTxStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListTransactions(r.Context(), middleware.ActorFromContext(r.Context()), wallets.ListTransactionsInput{
			UserID:     userID,
			Status:     status,
			Pagination: params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
