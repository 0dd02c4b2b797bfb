package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftdesk-backend/api/middleware"
	"github.com/angelmondragon/giftdesk-backend/api/responses"
	"github.com/angelmondragon/giftdesk-backend/api/validators"
	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/internal/users"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
)

func ListUsers(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "user")
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

		page, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()), users.ListInput{
			CompanyID: companyID,
			Limit:     params.Limit,
			Cursor:    params.Cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "user")
			return
		}
		id, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

// GetMe returns the caller's own profile.
func GetMe(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "user")
			return
		}
		actor := middleware.ActorFromContext(r.Context())
		if err := access.RequireRole(actor, enums.AppRoleEmployee); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.Get(r.Context(), actor, actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

type updateMeRequest struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

func UpdateMe(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "user")
			return
		}
		var body updateMeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.UpdateMe(r.Context(), middleware.ActorFromContext(r.Context()), users.UpdateProfileInput{
			Name:      body.Name,
			Email:     body.Email,
			AvatarURL: body.AvatarURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// ChangeRole accepts a raw stored role (SUPER_ADMIN, ADMIN, HR, MANAGER, EMPLOYEE).
func ChangeRole(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "user")
			return
		}
		id, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body changeRoleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := parseEnumBody("role", strings.ToUpper(body.Role), enums.ParseStoredRole)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.ChangeRole(r.Context(), middleware.ActorFromContext(r.Context()), id, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

type inviteRequest struct {
	Email     string     `json:"email" validate:"required,email"`
	Name      string     `json:"name" validate:"required,max=120"`
	Role      string     `json:"role,omitempty"`
	CompanyID *uuid.UUID `json:"company_id,omitempty"`
}

func InviteUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "user")
			return
		}
		var body inviteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := users.InviteInput{
			Email:     body.Email,
			Name:      validators.SanitizeString(body.Name, 120),
			CompanyID: body.CompanyID,
		}
		if body.Role != "" {
			role, err := parseEnumBody("role", strings.ToUpper(body.Role), enums.ParseStoredRole)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Role = role
		}

		result, err := svc.Invite(r.Context(), middleware.ActorFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, result)
	}
}
