package campaigns

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftdesk-backend/api/middleware"
	"github.com/angelmondragon/giftdesk-backend/api/responses"
	"github.com/angelmondragon/giftdesk-backend/api/validators"
	internalcampaigns "github.com/angelmondragon/giftdesk-backend/internal/campaigns"
	"github.com/angelmondragon/giftdesk-backend/internal/recipients"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
)

const maxImportBytes = 5 << 20

func serviceMissing(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaign service unavailable"))
}

type createCampaignRequest struct {
	CompanyID   *uuid.UUID      `json:"company_id,omitempty"`
	Name        string          `json:"name" validate:"required,max=200"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=2000"`
	Budget      decimal.Decimal `json:"budget" validate:"amount"`
	StartsAt    *time.Time      `json:"starts_at,omitempty"`
	EndsAt      *time.Time      `json:"ends_at,omitempty"`
}

func Create(svc internalcampaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceMissing(w, r, logg)
			return
		}
		var body createCampaignRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		campaign, err := svc.Create(r.Context(), middleware.ActorFromContext(r.Context()), internalcampaigns.CreateInput{
			CompanyID:   body.CompanyID,
			Name:        validators.SanitizeString(body.Name, 200),
			Description: body.Description,
			Budget:      body.Budget,
			StartsAt:    body.StartsAt,
			EndsAt:      body.EndsAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, campaign)
	}
}

func List(svc internalcampaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceMissing(w, r, logg)
			return
		}
		companyID, err := validators.ParseQueryUUID(r, "company_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := internalcampaigns.ListInput{CompanyID: companyID, Pagination: params}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := enums.ParseCampaignStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").WithDetails(map[string]any{"field": "status"}))
				return
			}
			input.Status = &status
		}

		page, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func Get(svc internalcampaigns.Service, logg *logger.Logger) http.HandlerFunc {
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
		campaign, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, campaign)
	}
}

type setProductsRequest struct {
	ProductIDs []uuid.UUID `json:"product_ids" validate:"max=200"`
}

// SetProducts replaces the campaign's selectable product set.
func SetProducts(svc internalcampaigns.Service, logg *logger.Logger) http.HandlerFunc {
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
		var body setProductsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ids, err := svc.SetProducts(r.Context(), middleware.ActorFromContext(r.Context()), id, body.ProductIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"product_ids": ids})
	}
}

func ListProducts(svc internalcampaigns.Service, logg *logger.Logger) http.HandlerFunc {
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
		list, err := svc.ListProducts(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ImportRecipients reads a multipart "file" part. The format comes from the
// format query parameter, falling back to the file extension.
func ImportRecipients(svc internalcampaigns.Service, logg *logger.Logger) http.HandlerFunc {
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

		r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "recipient file required").
				WithDetails(map[string]any{"field": "file"}))
			return
		}
		defer file.Close()

		formatHint := r.URL.Query().Get("format")
		if formatHint == "" {
			formatHint = filepath.Ext(header.Filename)
		}
		format, err := recipients.ParseFormat(formatHint)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ImportRecipients(r.Context(), middleware.ActorFromContext(r.Context()), id, format, file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, result)
	}
}

func ListRecipients(svc internalcampaigns.Service, logg *logger.Logger) http.HandlerFunc {
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
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListRecipients(r.Context(), middleware.ActorFromContext(r.Context()), id, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// Launch activates a draft campaign and issues gift links.
func Launch(svc internalcampaigns.Service, logg *logger.Logger) http.HandlerFunc {
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
		result, err := svc.Launch(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func UpdateStatus(svc internalcampaigns.Service, logg *logger.Logger) http.HandlerFunc {
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
		status, err := enums.ParseCampaignStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").WithDetails(map[string]any{"field": "status"}))
			return
		}
		campaign, err := svc.UpdateStatus(r.Context(), middleware.ActorFromContext(r.Context()), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, campaign)
	}
}
