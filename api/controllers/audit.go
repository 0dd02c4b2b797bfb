package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/giftdesk-backend/api/middleware"
	"github.com/angelmondragon/giftdesk-backend/api/responses"
	"github.com/angelmondragon/giftdesk-backend/api/validators"
	"github.com/angelmondragon/giftdesk-backend/internal/audit"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
)

// ListAuditLogs pages the audit trail for platform operators.
func ListAuditLogs(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "audit")
			return
		}
		userID, err := validators.ParseQueryUUID(r, "user_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
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

		query := r.URL.Query()
		page, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()), audit.Filter{
			Action:       strings.TrimSpace(query.Get("action")),
			ResourceType: strings.TrimSpace(query.Get("resource_type")),
			UserID:       userID,
			CompanyID:    companyID,
		}, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
