package controllers

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftdesk-backend/api/middleware"
	"github.com/angelmondragon/giftdesk-backend/api/responses"
	"github.com/angelmondragon/giftdesk-backend/api/validators"
	"github.com/angelmondragon/giftdesk-backend/internal/companies"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/types"
)

const maxLogoBytes = 2 << 20

type createCompanyRequest struct {
	Name            string                 `json:"name" validate:"required,max=200"`
	StoreIdentifier string                 `json:"store_identifier" validate:"required,max=100"`
	Domain          *string                `json:"domain,omitempty"`
	Subdomain       *string                `json:"subdomain,omitempty"`
	Budget          decimal.Decimal        `json:"budget" validate:"amount"`
	Currency        string                 `json:"currency,omitempty" validate:"omitempty,currency"`
	BillingAddress  *types.Address         `json:"billing_address,omitempty"`
	TaxID           *string                `json:"tax_id,omitempty"`
	Settings        *types.CompanySettings `json:"settings,omitempty"`
}

func CreateCompany(svc companies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "company")
			return
		}
		var body createCompanyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		company, err := svc.Create(r.Context(), middleware.ActorFromContext(r.Context()), companies.CreateInput{
			Name:            validators.SanitizeString(body.Name, 200),
			StoreIdentifier: strings.TrimSpace(body.StoreIdentifier),
			Domain:          body.Domain,
			Subdomain:       body.Subdomain,
			Budget:          body.Budget,
			Currency:        body.Currency,
			BillingAddress:  body.BillingAddress,
			TaxID:           body.TaxID,
			Settings:        body.Settings,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, company)
	}
}

func ListCompanies(svc companies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "company")
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetCompany(svc companies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "company")
			return
		}
		id, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		company, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, company)
	}
}

type updateCompanyRequest struct {
	Name           *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Domain         *string          `json:"domain,omitempty"`
	Subdomain      *string          `json:"subdomain,omitempty"`
	Budget         *decimal.Decimal `json:"budget,omitempty" validate:"omitempty,amount"`
	Currency       *string          `json:"currency,omitempty" validate:"omitempty,currency"`
	BillingAddress *types.Address   `json:"billing_address,omitempty"`
	TaxID          *string          `json:"tax_id,omitempty"`
}

func UpdateCompany(svc companies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "company")
			return
		}
		id, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateCompanyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		company, err := svc.Update(r.Context(), middleware.ActorFromContext(r.Context()), id, companies.UpdateInput{
			Name:           validators.SanitizeOptional(body.Name, 200),
			Domain:         body.Domain,
			Subdomain:      body.Subdomain,
			Budget:         body.Budget,
			Currency:       body.Currency,
			BillingAddress: body.BillingAddress,
			TaxID:          body.TaxID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, company)
	}
}

type companySettingsRequest struct {
	StoreEnabled     *bool   `json:"store_enabled,omitempty"`
	AllowWalletTopup *bool   `json:"allow_wallet_topup,omitempty"`
	BrandColor       *string `json:"brand_color,omitempty" validate:"omitempty,hexcolor"`
	WelcomeMessage   *string `json:"welcome_message,omitempty" validate:"omitempty,max=500"`
}

func UpdateCompanySettings(svc companies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "company")
			return
		}
		id, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body companySettingsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		company, err := svc.UpdateSettings(r.Context(), middleware.ActorFromContext(r.Context()), id, companies.SettingsInput{
			StoreEnabled:     body.StoreEnabled,
			AllowWalletTopup: body.AllowWalletTopup,
			BrandColor:       body.BrandColor,
			WelcomeMessage:   body.WelcomeMessage,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, company)
	}
}

// UploadCompanyLogo takes a multipart form with a single "logo" file part.
func UploadCompanyLogo(svc companies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "company")
			return
		}
		id, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxLogoBytes+(64<<10))
		file, header, err := r.FormFile("logo")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "logo file required").
				WithDetails(map[string]any{"field": "logo"}))
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxLogoBytes+1))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read logo"))
			return
		}
		if len(data) > maxLogoBytes {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Validation("logo", "logo must be 2MB or smaller"))
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}

		company, err := svc.UploadLogo(r.Context(), middleware.ActorFromContext(r.Context()), id, companies.LogoUpload{
			Filename:    header.Filename,
			ContentType: contentType,
			Data:        data,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, company)
	}
}

// PublicStore is unauthenticated; it resolves a company by store identifier
// or subdomain.
func PublicStore(svc companies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "company")
			return
		}
		identifier := strings.TrimSpace(chi.URLParam(r, "identifier"))
		if identifier == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Validation("identifier", "store identifier required"))
			return
		}
		store, err := svc.PublicStore(r.Context(), identifier)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, store)
	}
}

func SelectableCompanies(svc companies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "company")
			return
		}
		list, err := svc.Selectable(r.Context(), middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
