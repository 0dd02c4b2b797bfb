package orders

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftdesk-backend/api/middleware"
	"github.com/angelmondragon/giftdesk-backend/api/responses"
	"github.com/angelmondragon/giftdesk-backend/api/validators"
	internalorders "github.com/angelmondragon/giftdesk-backend/internal/orders"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/types"
)

func serviceMissing(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
}

// List returns the tenant-scoped order page. Filters: company_id, status,
// campaign_id.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceMissing(w, r, logg)
			return
		}
		filters, err := buildFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()), internalorders.ListInput{
			Filters:    filters,
			Pagination: params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func buildFilters(r *http.Request) (internalorders.ListFilters, error) {
	var filters internalorders.ListFilters

	companyID, err := validators.ParseQueryUUID(r, "company_id")
	if err != nil {
		return filters, err
	}
	filters.CompanyID = companyID

	campaignID, err := validators.ParseQueryUUID(r, "campaign_id")
	if err != nil {
		return filters, err
	}
	filters.CampaignID = campaignID

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").WithDetails(map[string]any{"field": "status"})
		}
		filters.Status = &status
	}
	return filters, nil
}

func Get(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceMissing(w, r, logg)
			return
		}
		id, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type createOrderRequest struct {
	CompanyID       *uuid.UUID          `json:"company_id,omitempty"`
	Items           []createItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
	ShippingAddress *types.Address      `json:"shipping_address,omitempty"`
	Notes           *string             `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type createItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=1000"`
}

// Create places a manual order; prices come from the current catalog.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceMissing(w, r, logg)
			return
		}
		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]internalorders.ItemInput, 0, len(body.Items))
		for _, item := range body.Items {
			items = append(items, internalorders.ItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		var address *types.Address
		if body.ShippingAddress != nil {
			normalized := body.ShippingAddress.Normalize()
			if err := validators.Validate(normalized); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			address = &normalized
		}

		order, err := svc.Create(r.Context(), middleware.ActorFromContext(r.Context()), internalorders.CreateInput{
			CompanyID:       body.CompanyID,
			Items:           items,
			ShippingAddress: address,
			Notes:           body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, order)
	}
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceMissing(w, r, logg)
			return
		}
		id, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").WithDetails(map[string]any{"field": "status"}))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), middleware.ActorFromContext(r.Context()), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
