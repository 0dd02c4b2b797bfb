package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftdesk-backend/internal/users"
	pkgAuth "github.com/angelmondragon/giftdesk-backend/pkg/auth"
	"github.com/angelmondragon/giftdesk-backend/pkg/auth/session"
	"github.com/angelmondragon/giftdesk-backend/pkg/config"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	redisclient "github.com/angelmondragon/giftdesk-backend/pkg/redis"
	"github.com/angelmondragon/giftdesk-backend/pkg/security"
)

var (
	testJWT      = config.JWTConfig{Secret: "secret", Issuer: "giftdesk", ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60}
	testPassword = config.PasswordConfig{ArgonMemoryKB: 64, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
)

type fixture struct {
	svc      Service
	repo     *users.Repository
	sessions *session.Manager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.Open(t)
	mr := miniredis.RunT(t)
	raw := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })

	sessions, err := session.NewManager(redisclient.NewFromClient(raw), testJWT)
	require.NoError(t, err)
	repo := users.NewRepository(client.DB())
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWT,
		PasswordConfig: testPassword,
	})
	require.NoError(t, err)
	return fixture{svc: svc, repo: repo, sessions: sessions}
}

func seedUser(t *testing.T, repo *users.Repository, email, password, role string, companyID *uuid.UUID) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPassword)
	require.NoError(t, err)
	user := &models.User{Email: email, PasswordHash: hash, Name: "Test", Role: &role, CompanyID: companyID, IsActive: true}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestLoginMintsNormalizedRoleAndSession(t *testing.T) {
	f := newFixture(t)
	companyID := uuid.New()
	user := seedUser(t, f.repo, "hr@acme.test", "correct-horse", "manager", &companyID)

	resp, err := f.svc.Login(context.Background(), LoginRequest{Email: " HR@acme.test ", Password: "correct-horse"})
	require.NoError(t, err)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, enums.AppRoleCompanyHR, claims.Role)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, companyID, *claims.CompanyID)
	assert.Equal(t, enums.AppRoleCompanyHR, resp.User.Role)

	live, err := f.sessions.HasSession(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.True(t, live)

	stored, err := f.repo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	seedUser(t, f.repo, "emp@acme.test", "right-password", "EMPLOYEE", nil)

	cases := []LoginRequest{
		{Email: "emp@acme.test", Password: "wrong-password"},
		{Email: "missing@acme.test", Password: "right-password"},
		{Email: "", Password: "right-password"},
	}
	for _, req := range cases {
		_, err := f.svc.Login(context.Background(), req)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "email %q", req.Email)
	}
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	f := newFixture(t)
	user := seedUser(t, f.repo, "gone@acme.test", "right-password", "EMPLOYEE", nil)
	require.NoError(t, f.repo.Update(context.Background(), user.ID, map[string]any{"is_active": false}))

	_, err := f.svc.Login(context.Background(), LoginRequest{Email: "gone@acme.test", Password: "right-password"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestRegisterCreatesCompanylessEmployee(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Register(context.Background(), RegisterRequest{Name: "Asha", Email: "Asha@Example.com", Password: "long-enough"})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", resp.User.Email)
	assert.Equal(t, enums.AppRoleEmployee, resp.User.Role)
	assert.Nil(t, resp.User.CompanyID)
	assert.NotEmpty(t, resp.RefreshToken)

	_, err = f.svc.Register(context.Background(), RegisterRequest{Name: "Again", Email: "asha@example.com", Password: "long-enough"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestRegisterValidatesPassword(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), RegisterRequest{Name: "Asha", Email: "a@b.test", Password: "short"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	f := newFixture(t)
	seedUser(t, f.repo, "emp@acme.test", "right-password", "EMPLOYEE", nil)
	ctx := context.Background()

	login, err := f.svc.Login(ctx, LoginRequest{Email: "emp@acme.test", Password: "right-password"})
	require.NoError(t, err)

	refreshed, err := f.svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	_, err = f.svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "old refresh token must not be reusable")

	require.NoError(t, f.svc.Logout(ctx, refreshed.AccessToken))
	claims, err := pkgAuth.ParseAccessToken(testJWT, refreshed.AccessToken)
	require.NoError(t, err)
	live, err := f.sessions.HasSession(ctx, claims.ID)
	require.NoError(t, err)
	assert.False(t, live)
}

func TestRefreshAcceptsExpiredAccessToken(t *testing.T) {
	f := newFixture(t)
	seedUser(t, f.repo, "emp@acme.test", "right-password", "EMPLOYEE", nil)
	ctx := context.Background()

	past := time.Now().Add(-2 * time.Hour)
	svc, err := NewService(ServiceParams{
		UserRepo:       f.repo,
		SessionManager: f.sessions,
		JWTConfig:      testJWT,
		PasswordConfig: testPassword,
		Now:            func() time.Time { return past },
	})
	require.NoError(t, err)
	login, err := svc.Login(ctx, LoginRequest{Email: "emp@acme.test", Password: "right-password"})
	require.NoError(t, err)

	_, err = pkgAuth.ParseAccessToken(testJWT, login.AccessToken)
	require.Error(t, err, "token minted in the past should be expired")

	_, err = f.svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	require.NoError(t, err)
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Refresh(context.Background(), RefreshRequest{AccessToken: "nope", RefreshToken: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestLoginUpgradesWeakPasswordHash(t *testing.T) {
	f := newFixture(t)
	user := seedUser(t, f.repo, "legacy@acme.test", "old-but-valid", "EMPLOYEE", nil)
	ctx := context.Background()

	stronger := testPassword
	stronger.ArgonTime = 2
	svc, err := NewService(ServiceParams{
		UserRepo:       f.repo,
		SessionManager: f.sessions,
		JWTConfig:      testJWT,
		PasswordConfig: stronger,
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "legacy@acme.test", Password: "old-but-valid"})
	require.NoError(t, err)

	stored, err := f.repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.PasswordHash, ",t=2,")
	assert.False(t, security.NeedsRehash(stored.PasswordHash, stronger))
	require.NotNil(t, stored.LastLoginAt)

	_, err = svc.Login(ctx, LoginRequest{Email: "legacy@acme.test", Password: "old-but-valid"})
	assert.NoError(t, err, "the upgraded hash still verifies")
}
