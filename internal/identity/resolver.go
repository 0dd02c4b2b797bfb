// Package identity turns a bearer credential into the request actor.
package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	pkgAuth "github.com/angelmondragon/giftdesk-backend/pkg/auth"
	"github.com/angelmondragon/giftdesk-backend/pkg/auth/session"
	"github.com/angelmondragon/giftdesk-backend/pkg/config"
	"github.com/angelmondragon/giftdesk-backend/pkg/db"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
)

type profileLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Resolver authenticates a credential and loads the caller's profile. Role
// and company always come from the stored profile, never from token claims.
type Resolver struct {
	jwtCfg   config.JWTConfig
	sessions session.AccessSessionChecker
	profiles profileLoader
}

func NewResolver(jwtCfg config.JWTConfig, sessions session.AccessSessionChecker, profiles profileLoader) *Resolver {
	return &Resolver{jwtCfg: jwtCfg, sessions: sessions, profiles: profiles}
}

// ResolveActor returns (nil, nil) when the caller is not authenticated: no
// credential, an invalid or expired token, or a revoked session.
func (r *Resolver) ResolveActor(ctx context.Context, credential string) (*access.Actor, error) {
	token := strings.TrimSpace(credential)
	if token == "" {
		return nil, nil
	}
	claims, err := pkgAuth.ParseAccessToken(r.jwtCfg, token)
	if err != nil || claims.ID == "" || claims.UserID == uuid.Nil {
		return nil, nil
	}

	if r.sessions != nil {
		live, err := r.sessions.HasSession(ctx, claims.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !live {
			return nil, nil
		}
	}

	user, err := r.profiles.FindByID(ctx, claims.UserID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, access.ProfileMissing()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	if !user.IsActive {
		return nil, nil
	}

	rawRole := ""
	if user.Role != nil {
		rawRole = *user.Role
	}
	return &access.Actor{
		UserID:    user.ID,
		Role:      access.ToAppRole(user.Role),
		RawRole:   rawRole,
		CompanyID: user.CompanyID,
		Name:      user.Name,
		Email:     user.Email,
	}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	raw := strings.TrimSpace(header)
	if len(raw) >= 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
