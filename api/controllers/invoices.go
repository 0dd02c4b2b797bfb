package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftdesk-backend/api/middleware"
	"github.com/angelmondragon/giftdesk-backend/api/responses"
	"github.com/angelmondragon/giftdesk-backend/api/validators"
	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/internal/invoices"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/metrics"
)

type invoiceGenerator func(ctx context.Context, actor *access.Actor, id uuid.UUID) (*invoices.InvoiceDTO, error)

func generateInvoice(gen func(invoices.Service) invoiceGenerator, svc invoices.Service, kind enums.InvoiceKind, m *metrics.GiftingMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "invoice")
			return
		}
		id, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoice, err := gen(svc)(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		m.InvoiceGenerated(string(kind))
		responses.WriteCreated(w, invoice)
	}
}

// GenerateOrderInvoice issues the single invoice for an order (10% tax).
func GenerateOrderInvoice(svc invoices.Service, m *metrics.GiftingMetrics, logg *logger.Logger) http.HandlerFunc {
	return generateInvoice(func(s invoices.Service) invoiceGenerator { return s.GenerateInvoiceForOrder }, svc, enums.InvoiceKindOrder, m, logg)
}

// GenerateCampaignInvoice issues the consolidated CGST/SGST invoice for a campaign.
func GenerateCampaignInvoice(svc invoices.Service, m *metrics.GiftingMetrics, logg *logger.Logger) http.HandlerFunc {
	return generateInvoice(func(s invoices.Service) invoiceGenerator { return s.GenerateConsolidatedCampaignInvoice }, svc, enums.InvoiceKindCampaign, m, logg)
}

func ListInvoices(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "invoice")
			return
		}
		companyID, err := validators.ParseQueryUUID(r, "company_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := parseEnumQuery(r, "status", enums.ParseInvoiceStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		kind, err := parseEnumQuery(r, "kind", enums.ParseInvoiceKind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()), invoices.ListInput{
			Filters:    invoices.ListFilters{CompanyID: companyID, Status: status, Kind: kind},
			Pagination: params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "invoice")
			return
		}
		id, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoice, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

func MarkInvoicePaid(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "invoice")
			return
		}
		id, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoice, err := svc.MarkPaid(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}
