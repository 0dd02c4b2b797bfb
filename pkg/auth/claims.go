package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	CompanyID *uuid.UUID
	Role      enums.AppRole
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to clients. Role and
// company are hints for clients; the server re-reads the profile per request.
type AccessTokenClaims struct {
	UserID    uuid.UUID     `json:"user_id"`
	CompanyID *uuid.UUID    `json:"company_id,omitempty"`
	Role      enums.AppRole `json:"role"`
	jwt.RegisteredClaims
}
