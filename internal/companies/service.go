package companies

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/internal/audit"
	"github.com/angelmondragon/giftdesk-backend/pkg/db"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/pagination"
	"github.com/angelmondragon/giftdesk-backend/pkg/visibility"
)

var (
	subdomainPattern  = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{1,61}[a-z0-9])?$`)
	identifierPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)
	nonSlugChars      = regexp.MustCompile(`[^a-z0-9]+`)
)

var logoExtensions = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// Uploader stores an object and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

type Service interface {
	Create(ctx context.Context, actor *access.Actor, input CreateInput) (*CompanyDTO, error)
	Get(ctx context.Context, actor *access.Actor, id uuid.UUID) (*CompanyDTO, error)
	List(ctx context.Context, actor *access.Actor, params pagination.Params) (*pagination.Page[CompanyDTO], error)
	Update(ctx context.Context, actor *access.Actor, id uuid.UUID, input UpdateInput) (*CompanyDTO, error)
	UpdateSettings(ctx context.Context, actor *access.Actor, id uuid.UUID, input SettingsInput) (*CompanyDTO, error)
	UploadLogo(ctx context.Context, actor *access.Actor, id uuid.UUID, upload LogoUpload) (*CompanyDTO, error)
	PublicStore(ctx context.Context, identifier string) (*PublicStoreDTO, error)
	Selectable(ctx context.Context, actor *access.Actor) ([]SelectableCompany, error)
}

type ServiceParams struct {
	Repo            *Repository
	Uploader        Uploader
	Audit           audit.Recorder
	DefaultCurrency string
	MaxLogoBytes    int64
	Now             func() time.Time
}

type service struct {
	repo            *Repository
	uploader        Uploader
	audit           audit.Recorder
	defaultCurrency string
	maxLogoBytes    int64
	now             func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("companies repository required")
	}
	if params.Audit == nil {
		params.Audit = audit.Nop{}
	}
	if params.DefaultCurrency == "" {
		params.DefaultCurrency = enums.CurrencyINR.String()
	}
	if params.MaxLogoBytes <= 0 {
		params.MaxLogoBytes = 2 << 20
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:            params.Repo,
		uploader:        params.Uploader,
		audit:           params.Audit,
		defaultCurrency: params.DefaultCurrency,
		maxLogoBytes:    params.MaxLogoBytes,
		now:             params.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor *access.Actor, input CreateInput) (*CompanyDTO, error) {
	if err := access.RequireRole(actor, enums.AppRoleSuperAdmin); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.Validation("name", "name is required")
	}
	identifier := strings.ToLower(strings.TrimSpace(input.StoreIdentifier))
	if identifier == "" {
		identifier = slugify(name)
	}
	if !identifierPattern.MatchString(identifier) {
		return nil, pkgerrors.Validation("store_identifier", "store identifier must be lowercase letters, digits or hyphens")
	}
	currency, err := s.currency(input.Currency)
	if err != nil {
		return nil, err
	}
	if input.Budget.IsNegative() {
		return nil, pkgerrors.Validation("budget", "budget cannot be negative")
	}
	subdomain, err := normalizeSubdomain(input.Subdomain)
	if err != nil {
		return nil, err
	}

	company := &models.Company{
		Name:            name,
		Domain:          trimmed(input.Domain),
		Subdomain:       subdomain,
		StoreIdentifier: identifier,
		Budget:          input.Budget.Round(2),
		Currency:        currency,
		BillingAddress:  input.BillingAddress,
		TaxID:           trimmed(input.TaxID),
	}
	if input.Settings != nil {
		company.Settings = *input.Settings
	}
	if err := s.repo.Create(ctx, company); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, access.Conflict("store identifier or subdomain already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create company")
	}

	s.audit.Record(ctx, actor, audit.Entry{Action: "company.created", ResourceType: "company", ResourceID: company.ID.String(), CompanyID: &company.ID})
	dto := FromModel(company)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, actor *access.Actor, id uuid.UUID) (*CompanyDTO, error) {
	if err := access.RequireRole(actor, enums.AppRoleEmployee); err != nil {
		return nil, err
	}
	company, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, access.LoadError(err, "company")
	}
	if err := access.RequireTenant(actor, company.ID); err != nil {
		return nil, err
	}
	dto := FromModel(company)
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor *access.Actor, params pagination.Params) (*pagination.Page[CompanyDTO], error) {
	if err := access.RequireRole(actor, enums.AppRoleEmployee); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Validation("cursor", "invalid cursor")
	}
	rows, err := s.repo.ListScoped(ctx, actor, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list companies")
	}
	page := pagination.BuildPage(rows, params.Limit, func(c models.Company) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	out := &pagination.Page[CompanyDTO]{NextCursor: page.NextCursor, Items: make([]CompanyDTO, 0, len(page.Items))}
	for i := range page.Items {
		out.Items = append(out.Items, FromModel(&page.Items[i]))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, actor *access.Actor, id uuid.UUID, input UpdateInput) (*CompanyDTO, error) {
	company, err := s.loadForWrite(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.Validation("name", "name cannot be blank")
		}
		company.Name = name
	}
	if input.Domain != nil {
		company.Domain = trimmed(input.Domain)
	}
	if input.Subdomain != nil {
		subdomain, err := normalizeSubdomain(input.Subdomain)
		if err != nil {
			return nil, err
		}
		if subdomain != nil {
			taken, err := s.repo.SubdomainTaken(ctx, *subdomain, company.ID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check subdomain")
			}
			if taken {
				return nil, access.Conflict("subdomain already taken")
			}
		}
		company.Subdomain = subdomain
	}
	if input.Budget != nil {
		if input.Budget.IsNegative() {
			return nil, pkgerrors.Validation("budget", "budget cannot be negative")
		}
		company.Budget = input.Budget.Round(2)
	}
	if input.Currency != nil {
		currency, err := s.currency(*input.Currency)
		if err != nil {
			return nil, err
		}
		company.Currency = currency
	}
	if input.BillingAddress != nil {
		addr := input.BillingAddress.Normalize()
		company.BillingAddress = &addr
	}
	if input.TaxID != nil {
		company.TaxID = trimmed(input.TaxID)
	}

	if err := s.repo.Save(ctx, company); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, access.Conflict("subdomain already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update company")
	}
	s.audit.Record(ctx, actor, audit.Entry{Action: "company.updated", ResourceType: "company", ResourceID: company.ID.String(), CompanyID: &company.ID})
	dto := FromModel(company)
	return &dto, nil
}

func (s *service) UpdateSettings(ctx context.Context, actor *access.Actor, id uuid.UUID, input SettingsInput) (*CompanyDTO, error) {
	company, err := s.loadForWrite(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	settings := company.Settings
	if input.StoreEnabled != nil {
		settings.StoreEnabled = *input.StoreEnabled
	}
	if input.AllowWalletTopup != nil {
		settings.AllowWalletTopup = *input.AllowWalletTopup
	}
	if input.BrandColor != nil {
		settings.BrandColor = strings.TrimSpace(*input.BrandColor)
	}
	if input.WelcomeMessage != nil {
		settings.WelcomeMessage = strings.TrimSpace(*input.WelcomeMessage)
	}
	company.Settings = settings

	if err := s.repo.Save(ctx, company); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update settings")
	}
	s.audit.Record(ctx, actor, audit.Entry{
		Action:       "company.settings_updated",
		ResourceType: "company",
		ResourceID:   company.ID.String(),
		CompanyID:    &company.ID,
		Details:      map[string]any{"store_enabled": settings.StoreEnabled, "allow_wallet_topup": settings.AllowWalletTopup},
	})
	dto := FromModel(company)
	return &dto, nil
}

func (s *service) UploadLogo(ctx context.Context, actor *access.Actor, id uuid.UUID, upload LogoUpload) (*CompanyDTO, error) {
	company, err := s.loadForWrite(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if s.uploader == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logo storage unavailable")
	}
	if len(upload.Data) == 0 {
		return nil, pkgerrors.Validation("file", "file is required")
	}
	if int64(len(upload.Data)) > s.maxLogoBytes {
		return nil, pkgerrors.Validation("file", fmt.Sprintf("logo exceeds %d bytes", s.maxLogoBytes))
	}
	contentType := strings.ToLower(strings.TrimSpace(upload.ContentType))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(upload.Data)
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	ext, ok := logoExtensions[contentType]
	if !ok {
		return nil, pkgerrors.Validation("file", "logo must be png, jpeg, webp or svg")
	}

	objectPath := path.Join("companies", company.ID.String(), fmt.Sprintf("logo-%d%s", s.now().UTC().Unix(), ext))
	url, err := s.uploader.Upload(ctx, objectPath, upload.Data, contentType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload logo")
	}
	company.LogoURL = &url
	if err := s.repo.Save(ctx, company); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save logo url")
	}
	s.audit.Record(ctx, actor, audit.Entry{Action: "company.logo_uploaded", ResourceType: "company", ResourceID: company.ID.String(), CompanyID: &company.ID, Details: map[string]any{"url": url}})
	dto := FromModel(company)
	return &dto, nil
}

func (s *service) PublicStore(ctx context.Context, identifier string) (*PublicStoreDTO, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	company, err := s.repo.FindByStoreIdentifier(ctx, identifier)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if err := visibility.EnsureStoreVisible(company); err != nil {
		return nil, err
	}
	return &PublicStoreDTO{
		ID:              company.ID,
		Name:            company.Name,
		StoreIdentifier: company.StoreIdentifier,
		LogoURL:         company.LogoURL,
		BrandColor:      company.Settings.BrandColor,
		WelcomeMessage:  company.Settings.WelcomeMessage,
	}, nil
}

// Selectable feeds the company picker. HR users without a company see every
// company here so they can invite into one.
func (s *service) Selectable(ctx context.Context, actor *access.Actor) ([]SelectableCompany, error) {
	if err := access.RequireRole(actor, enums.AppRoleCompanyHR); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListSelectable(ctx, actor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list companies")
	}
	out := make([]SelectableCompany, 0, len(rows))
	for _, c := range rows {
		out = append(out, SelectableCompany{ID: c.ID, Name: c.Name})
	}
	return out, nil
}

func (s *service) loadForWrite(ctx context.Context, actor *access.Actor, id uuid.UUID) (*models.Company, error) {
	if err := access.RequireRole(actor, enums.AppRoleCompanyHR); err != nil {
		return nil, err
	}
	company, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, access.LoadError(err, "company")
	}
	if err := access.RequireTenant(actor, company.ID); err != nil {
		return nil, err
	}
	return company, nil
}

func (s *service) currency(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return s.defaultCurrency, nil
	}
	currency, err := enums.ParseCurrency(raw)
	if err != nil {
		return "", pkgerrors.Validation("currency", err.Error())
	}
	return currency.String(), nil
}

func normalizeSubdomain(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	value := strings.ToLower(strings.TrimSpace(*raw))
	if value == "" {
		return nil, nil
	}
	if !subdomainPattern.MatchString(value) {
		return nil, pkgerrors.Validation("subdomain", "subdomain must be lowercase letters, digits or inner hyphens")
	}
	return &value, nil
}

func slugify(name string) string {
	slug := strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if len(slug) > 48 {
		slug = strings.Trim(slug[:48], "-")
	}
	if len(slug) < 2 {
		slug = "company"
	}
	return slug + "-" + uuid.NewString()[:6]
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
