package middleware

import (
	"context"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
)

type contextKey string

const ctxActor contextKey = "actor"

// ActorFromContext returns the actor resolved by Authenticate, or nil for
// anonymous requests.
func ActorFromContext(ctx context.Context) *access.Actor {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxActor).(*access.Actor); ok {
		return v
	}
	return nil
}

// WithActor injects the actor into the context.
func WithActor(ctx context.Context, actor *access.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

func actorUserID(ctx context.Context) string {
	if actor := ActorFromContext(ctx); actor != nil {
		return actor.UserID.String()
	}
	return ""
}

func actorCompanyID(ctx context.Context) string {
	if actor := ActorFromContext(ctx); actor != nil && actor.CompanyID != nil {
		return actor.CompanyID.String()
	}
	return ""
}
