package companies

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/pagination"
	"github.com/angelmondragon/giftdesk-backend/pkg/types"
)

type stubUploader struct {
	uploadFn func(path string, data []byte, contentType string) (string, error)
}

func (s *stubUploader) Upload(_ context.Context, path string, data []byte, contentType string) (string, error) {
	return s.uploadFn(path, data, contentType)
}

var (
	superAdmin = &access.Actor{UserID: uuid.New(), Role: enums.AppRoleSuperAdmin}
	pngHeader  = []byte("\x89PNG\r\n\x1a\n0000000000000000")
)

func newService(t *testing.T, uploader Uploader) (Service, *Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t).DB())
	svc, err := NewService(ServiceParams{
		Repo:            repo,
		Uploader:        uploader,
		DefaultCurrency: "INR",
		MaxLogoBytes:    64,
		Now:             func() time.Time { return time.Unix(1700000000, 0) },
	})
	require.NoError(t, err)
	return svc, repo
}

func hrOf(companyID uuid.UUID) *access.Actor {
	return &access.Actor{UserID: uuid.New(), Role: enums.AppRoleCompanyHR, CompanyID: &companyID}
}

func TestCreateRequiresSuperAdminAndDefaultsCurrency(t *testing.T) {
	svc, _ := newService(t, nil)

	_, err := svc.Create(context.Background(), hrOf(uuid.New()), CreateInput{Name: "Acme"})
	assert.Equal(t, access.ReasonRoleInsufficient, pkgerrors.Reason(err))

	got, err := svc.Create(context.Background(), superAdmin, CreateInput{Name: "Acme Corp", Budget: decimal.RequireFromString("1000.456")})
	require.NoError(t, err)
	assert.Equal(t, "INR", got.Currency)
	assert.True(t, strings.HasPrefix(got.StoreIdentifier, "acme-corp-"))
	assert.Equal(t, "1000.46", got.Budget.StringFixed(2))

	_, err = svc.Create(context.Background(), superAdmin, CreateInput{Name: "Acme", StoreIdentifier: got.StoreIdentifier})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = svc.Create(context.Background(), superAdmin, CreateInput{Name: "Acme", Currency: "XYZ"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateSubdomainRules(t *testing.T) {
	svc, _ := newService(t, nil)
	a, err := svc.Create(context.Background(), superAdmin, CreateInput{Name: "A", StoreIdentifier: "alpha"})
	require.NoError(t, err)
	b, err := svc.Create(context.Background(), superAdmin, CreateInput{Name: "B", StoreIdentifier: "beta"})
	require.NoError(t, err)

	sub := "Gifts-A"
	got, err := svc.Update(context.Background(), hrOf(a.ID), a.ID, UpdateInput{Subdomain: &sub})
	require.NoError(t, err)
	assert.Equal(t, "gifts-a", *got.Subdomain)

	bad := "-bad-"
	_, err = svc.Update(context.Background(), hrOf(a.ID), a.ID, UpdateInput{Subdomain: &bad})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	taken := "gifts-a"
	_, err = svc.Update(context.Background(), hrOf(b.ID), b.ID, UpdateInput{Subdomain: &taken})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = svc.Update(context.Background(), hrOf(b.ID), a.ID, UpdateInput{Subdomain: &taken})
	assert.Equal(t, access.ReasonWrongTenant, pkgerrors.Reason(err))
}

func TestSettingsGatePublicStore(t *testing.T) {
	svc, _ := newService(t, nil)
	c, err := svc.Create(context.Background(), superAdmin, CreateInput{Name: "Acme", StoreIdentifier: "acme"})
	require.NoError(t, err)

	_, err = svc.PublicStore(context.Background(), "acme")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	enabled, color := true, "#112233"
	updated, err := svc.UpdateSettings(context.Background(), hrOf(c.ID), c.ID, SettingsInput{StoreEnabled: &enabled, BrandColor: &color})
	require.NoError(t, err)
	assert.True(t, updated.Settings.StoreEnabled)
	assert.False(t, updated.Settings.AllowWalletTopup)

	store, err := svc.PublicStore(context.Background(), " ACME ")
	require.NoError(t, err)
	assert.Equal(t, "#112233", store.BrandColor)

	_, err = svc.PublicStore(context.Background(), "nope")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUploadLogo(t *testing.T) {
	var gotPath, gotType string
	uploader := &stubUploader{uploadFn: func(path string, _ []byte, contentType string) (string, error) {
		gotPath, gotType = path, contentType
		return "https://cdn.test/" + path, nil
	}}
	svc, _ := newService(t, uploader)
	c, err := svc.Create(context.Background(), superAdmin, CreateInput{Name: "Acme", StoreIdentifier: "acme"})
	require.NoError(t, err)

	got, err := svc.UploadLogo(context.Background(), hrOf(c.ID), c.ID, LogoUpload{Data: pngHeader})
	require.NoError(t, err)
	assert.Equal(t, "image/png", gotType)
	assert.Equal(t, "companies/"+c.ID.String()+"/logo-1700000000.png", gotPath)
	assert.Equal(t, "https://cdn.test/"+gotPath, *got.LogoURL)

	_, err = svc.UploadLogo(context.Background(), hrOf(c.ID), c.ID, LogoUpload{Data: []byte("plain text"), ContentType: "text/plain"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.UploadLogo(context.Background(), hrOf(c.ID), c.ID, LogoUpload{Data: make([]byte, 65), ContentType: "image/png"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	uploader.uploadFn = func(string, []byte, string) (string, error) { return "", errors.New("gcs down") }
	_, err = svc.UploadLogo(context.Background(), hrOf(c.ID), c.ID, LogoUpload{Data: pngHeader})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestListAndSelectableScoping(t *testing.T) {
	svc, repo := newService(t, nil)
	a, err := svc.Create(context.Background(), superAdmin, CreateInput{Name: "A", StoreIdentifier: "alpha"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), superAdmin, CreateInput{Name: "B", StoreIdentifier: "beta"})
	require.NoError(t, err)

	page, err := svc.List(context.Background(), hrOf(a.ID), pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, a.ID, page.Items[0].ID)

	unbound := &access.Actor{UserID: uuid.New(), Role: enums.AppRoleCompanyHR}
	page, err = svc.List(context.Background(), unbound, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	picks, err := svc.Selectable(context.Background(), unbound)
	require.NoError(t, err)
	require.Len(t, picks, 2)
	assert.Equal(t, "A", picks[0].Name)

	ok, err := repo.Exists(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetChecksTenant(t *testing.T) {
	svc, repo := newService(t, nil)
	company := &models.Company{Name: "Z", StoreIdentifier: "zeta", Currency: "INR", Settings: types.CompanySettings{}}
	require.NoError(t, repo.Create(context.Background(), company))

	_, err := svc.Get(context.Background(), hrOf(uuid.New()), company.ID)
	assert.Equal(t, access.ReasonWrongTenant, pkgerrors.Reason(err))

	_, err = svc.Get(context.Background(), superAdmin, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
