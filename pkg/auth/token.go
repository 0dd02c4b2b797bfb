package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/giftdesk-backend/pkg/config"
)

// clockSkew tolerates small drift between API instances.
const clockSkew = 30 * time.Second

var (
	signingMethod = jwt.SigningMethodHS256

	errNoSecret    = errors.New("jwt secret is required")
	errIncomplete  = errors.New("token is missing its subject or id")
	errWrongIssuer = errors.New("token issuer mismatch")
)

// MintAccessToken signs an HS256 access token valid for cfg's expiry from now.
// The jti doubles as the session id, so a fresh one is generated when the
// payload has none.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	var problems []error
	if cfg.Secret == "" {
		problems = append(problems, errNoSecret)
	}
	if cfg.Issuer == "" {
		problems = append(problems, errors.New("jwt issuer is required"))
	}
	if cfg.ExpirationMinutes <= 0 {
		problems = append(problems, errors.New("jwt expiration must be positive"))
	}
	if payload.UserID == uuid.Nil {
		problems = append(problems, errors.New("user id is required"))
	}
	if payload.Role.Rank() == 0 {
		problems = append(problems, fmt.Errorf("invalid role %q", payload.Role))
	}
	if err := errors.Join(problems...); err != nil {
		return "", err
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	claims := AccessTokenClaims{
		UserID:    payload.UserID,
		CompanyID: payload.CompanyID,
		Role:      payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessTokenTTL())),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	return parse(cfg, raw, jwt.WithExpirationRequired(), jwt.WithLeeway(clockSkew))
}

// ParseAccessTokenAllowExpired verifies the signature and issuer only. Refresh
// and logout use it to find the session behind a token that already expired.
func ParseAccessTokenAllowExpired(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	return parse(cfg, raw, jwt.WithoutClaimsValidation())
}

func parse(cfg config.JWTConfig, raw string, extra ...jwt.ParserOption) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, errNoSecret
	}
	opts := append([]jwt.ParserOption{jwt.WithValidMethods([]string{signingMethod.Alg()})}, extra...)
	claims := &AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	// WithoutClaimsValidation also skips the issuer, so it is checked by hand.
	if claims.Issuer != cfg.Issuer {
		return nil, errWrongIssuer
	}
	if claims.UserID == uuid.Nil || claims.ID == "" {
		return nil, errIncomplete
	}
	return claims, nil
}
