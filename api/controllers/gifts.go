package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/giftdesk-backend/api/responses"
	"github.com/angelmondragon/giftdesk-backend/api/validators"
	"github.com/angelmondragon/giftdesk-backend/internal/redemption"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/metrics"
	"github.com/angelmondragon/giftdesk-backend/pkg/types"
)

const maxGiftTokenLength = 128

func giftToken(r *http.Request) (string, error) {
	token := strings.TrimSpace(chi.URLParam(r, "token"))
	if token == "" || len(token) > maxGiftTokenLength {
		return "", pkgerrors.New(pkgerrors.CodeConflict, "invalid or expired link")
	}
	return token, nil
}

// LookupGift is public: the token in the path is the only credential.
func LookupGift(svc redemption.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "redemption")
			return
		}
		token, err := giftToken(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Lookup(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type redeemRequest struct {
	ProductID       uuid.UUID      `json:"product_id" validate:"required"`
	ShippingAddress *types.Address `json:"shipping_address,omitempty"`
	Preferences     map[string]any `json:"preferences,omitempty"`
}

func RedeemGift(svc redemption.Service, m *metrics.GiftingMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "redemption")
			return
		}
		token, err := giftToken(r)
		if err != nil {
			m.Redemption(metrics.RedeemRejected)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body redeemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			m.Redemption(metrics.RedeemRejected)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sel := redemption.Selection{ProductID: body.ProductID, Preferences: body.Preferences}
		if body.ShippingAddress != nil {
			address := body.ShippingAddress.Normalize()
			if err := validators.Validate(address); err != nil {
				m.Redemption(metrics.RedeemRejected)
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			sel.ShippingAddress = &address
		}

		result, err := svc.Redeem(r.Context(), token, sel)
		if err != nil {
			m.Redemption(redeemOutcome(err))
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		m.Redemption(metrics.RedeemOK)
		responses.WriteCreated(w, result)
	}
}

func redeemOutcome(err error) string {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeConflict), pkgerrors.IsCode(err, pkgerrors.CodeValidation):
		return metrics.RedeemRejected
	default:
		return metrics.RedeemFailed
	}
}
