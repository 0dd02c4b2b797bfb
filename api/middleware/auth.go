package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/giftdesk-backend/api/responses"
	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/internal/identity"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
)

type actorResolver interface {
	ResolveActor(ctx context.Context, credential string) (*access.Actor, error)
}

// Authenticate resolves the caller once per request. Anonymous requests pass
// through with no actor; RequireAuth or RequireAppRole reject them where needed.
func Authenticate(resolver actorResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := identity.BearerToken(r.Header.Get("Authorization"))
			if token == "" || resolver == nil {
				next.ServeHTTP(w, r)
				return
			}

			actor, err := resolver.ResolveActor(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if actor == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithActor(ctx, actor.UserID.String(), string(actor.Role), actorCompanyID(ctx))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests without a resolved actor.
func RequireAuth(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := access.RequireRole(ActorFromContext(r.Context()), enums.AppRoleEmployee); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
