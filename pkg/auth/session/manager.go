// Package session tracks which access tokens are still live and the refresh
// credential that may extend each one.
package session

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftdesk-backend/pkg/config"
	redisclient "github.com/angelmondragon/giftdesk-backend/pkg/redis"
	"github.com/angelmondragon/giftdesk-backend/pkg/security"
)

const refreshTokenBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is the read-only view identity resolution needs.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Manager stores one record per access token id (the JWT jti) holding
// "<user_id>.<sha256 of refresh token>". The raw refresh token only ever
// exists on the client.
type Manager struct {
	store store
	ttl   time.Duration
}

func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl, accessTTL := cfg.RefreshTokenTTL(), cfg.AccessTokenTTL()
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: client, ttl: ttl}, nil
}

// NewAccessID mints the id used as both JWT jti and session key.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session for accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	if strings.TrimSpace(accessID) == "" || userID == uuid.Nil {
		return "", errors.New("access id and user id are required")
	}
	token, err := security.GenerateURLToken(refreshTokenBytes)
	if err != nil {
		return "", err
	}
	record := userID.String() + "." + digest(token)
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), record, m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Rotate consumes the session of oldAccessID and opens a new one for the same
// user. The old record is removed before the token is checked, so a refresh
// token works at most once and a wrong guess ends the session.
func (m *Manager) Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, provided string) (string, string, error) {
	if strings.TrimSpace(oldAccessID) == "" || provided == "" {
		return "", "", ErrInvalidRefreshToken
	}
	record, err := m.store.GetDel(ctx, m.store.AccessSessionKey(oldAccessID))
	if redisclient.IsMiss(err) {
		return "", "", ErrInvalidRefreshToken
	}
	if err != nil {
		return "", "", err
	}

	owner, stored, ok := strings.Cut(record, ".")
	if !ok || owner != userID.String() || subtle.ConstantTimeCompare([]byte(stored), []byte(digest(provided))) != 1 {
		return "", "", ErrInvalidRefreshToken
	}

	accessID := NewAccessID()
	token, err := m.Generate(ctx, accessID, userID)
	if err != nil {
		return "", "", err
	}
	return accessID, token, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errors.New("access id is required")
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, nil
	}
	return m.store.Exists(ctx, m.store.AccessSessionKey(accessID))
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
