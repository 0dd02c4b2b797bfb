package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftdesk-backend/api/middleware"
	"github.com/angelmondragon/giftdesk-backend/api/responses"
	"github.com/angelmondragon/giftdesk-backend/api/validators"
	"github.com/angelmondragon/giftdesk-backend/internal/products"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
)

// ListProducts supports company_id, include_global, category and q filters.
func ListProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		companyID, err := validators.ParseQueryUUID(r, "company_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		includeGlobal, err := validators.ParseQueryBool(r, "include_global")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		page, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()), products.ListInput{
			CompanyID:     companyID,
			IncludeGlobal: includeGlobal,
			Category:      validators.SanitizeString(query.Get("category"), 100),
			Query:         validators.SanitizeString(query.Get("q"), 100),
			Pagination:    params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		id, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type createProductRequest struct {
	CompanyID   *uuid.UUID      `json:"company_id,omitempty"`
	Name        string          `json:"name" validate:"required,max=200"`
	Description *string         `json:"description,omitempty"`
	SKU         *string         `json:"sku,omitempty" validate:"omitempty,max=64"`
	Category    *string         `json:"category,omitempty" validate:"omitempty,max=100"`
	ImageURL    *string         `json:"image_url,omitempty" validate:"omitempty,url"`
	Price       decimal.Decimal `json:"price" validate:"amount"`
	Currency    string          `json:"currency,omitempty" validate:"omitempty,currency"`
	Stock       int             `json:"stock" validate:"min=0"`
}

// CreateProduct omits company_id for HR (their company is used); a super
// admin omitting it creates a platform-global product.
func CreateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Create(r.Context(), middleware.ActorFromContext(r.Context()), products.CreateInput{
			CompanyID:   body.CompanyID,
			Name:        validators.SanitizeString(body.Name, 200),
			Description: body.Description,
			SKU:         body.SKU,
			Category:    body.Category,
			ImageURL:    body.ImageURL,
			Price:       body.Price,
			Currency:    strings.TrimSpace(body.Currency),
			Stock:       body.Stock,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, product)
	}
}

type updateProductRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description,omitempty"`
	SKU         *string          `json:"sku,omitempty" validate:"omitempty,max=64"`
	Category    *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	ImageURL    *string          `json:"image_url,omitempty" validate:"omitempty,url"`
	Price       *decimal.Decimal `json:"price,omitempty" validate:"omitempty,amount"`
	Stock       *int             `json:"stock,omitempty" validate:"omitempty,min=0"`
}

func UpdateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		id, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Update(r.Context(), middleware.ActorFromContext(r.Context()), id, products.UpdateInput{
			Name:        validators.SanitizeOptional(body.Name, 200),
			Description: body.Description,
			SKU:         body.SKU,
			Category:    body.Category,
			ImageURL:    body.ImageURL,
			Price:       body.Price,
			Stock:       body.Stock,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// DeleteProduct soft-deletes.
func DeleteProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		id, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), middleware.ActorFromContext(r.Context()), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
