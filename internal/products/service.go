package products

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/internal/audit"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/pagination"
)

// Service exposes catalog management operations.
type Service interface {
	List(ctx context.Context, actor *access.Actor, input ListInput) (*pagination.Page[ProductDTO], error)
	Get(ctx context.Context, actor *access.Actor, id uuid.UUID) (*ProductDTO, error)
	Create(ctx context.Context, actor *access.Actor, input CreateInput) (*ProductDTO, error)
	Update(ctx context.Context, actor *access.Actor, id uuid.UUID, input UpdateInput) (*ProductDTO, error)
	Delete(ctx context.Context, actor *access.Actor, id uuid.UUID) error
}

type service struct {
	repo            *Repository
	audit           audit.Recorder
	defaultCurrency string
	now             func() time.Time
}

func NewService(repo *Repository, recorder audit.Recorder, defaultCurrency string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if defaultCurrency == "" {
		defaultCurrency = enums.CurrencyINR.String()
	}
	return &service{repo: repo, audit: recorder, defaultCurrency: defaultCurrency, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, actor *access.Actor, input ListInput) (*pagination.Page[ProductDTO], error) {
	if err := access.RequireRole(actor, enums.AppRoleEmployee); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Validation("cursor", "invalid cursor")
	}
	rows, err := s.repo.ListScoped(ctx, actor, input, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	page := pagination.BuildPage(rows, input.Pagination.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	out := &pagination.Page[ProductDTO]{NextCursor: page.NextCursor, Items: make([]ProductDTO, 0, len(page.Items))}
	for i := range page.Items {
		out.Items = append(out.Items, FromModel(&page.Items[i]))
	}
	return out, nil
}

// Get returns a live product owned by the actor's company or the platform.
func (s *service) Get(ctx context.Context, actor *access.Actor, id uuid.UUID) (*ProductDTO, error) {
	if err := access.RequireRole(actor, enums.AppRoleEmployee); err != nil {
		return nil, err
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, access.LoadError(err, "product")
	}
	if product.IsDeleted() && !actor.IsSuperAdmin() {
		return nil, access.NotFound("product")
	}
	if product.CompanyID != nil {
		if err := access.RequireTenant(actor, *product.CompanyID); err != nil {
			return nil, err
		}
	}
	dto := FromModel(product)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, actor *access.Actor, input CreateInput) (*ProductDTO, error) {
	if err := access.RequireRole(actor, enums.AppRoleCompanyHR); err != nil {
		return nil, err
	}
	companyID := input.CompanyID
	if companyID == nil && !actor.IsSuperAdmin() {
		companyID = actor.CompanyID
	}
	if companyID == nil {
		if !actor.IsSuperAdmin() {
			return nil, pkgerrors.Validation("company_id", "company is required")
		}
	} else if err := access.RequireTenant(actor, *companyID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.Validation("name", "name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.Validation("price", "price cannot be negative")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.Validation("stock", "stock cannot be negative")
	}
	currency := s.defaultCurrency
	if strings.TrimSpace(input.Currency) != "" {
		parsed, err := enums.ParseCurrency(input.Currency)
		if err != nil {
			return nil, pkgerrors.Validation("currency", err.Error())
		}
		currency = parsed.String()
	}

	product := &models.Product{
		CompanyID:   companyID,
		Name:        name,
		Description: input.Description,
		SKU:         input.SKU,
		Category:    input.Category,
		ImageURL:    input.ImageURL,
		Price:       input.Price.Round(2),
		Currency:    currency,
		Stock:       input.Stock,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	s.audit.Record(ctx, actor, audit.Entry{Action: "product.created", ResourceType: "product", ResourceID: product.ID.String(), CompanyID: companyID})
	dto := FromModel(product)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, actor *access.Actor, id uuid.UUID, input UpdateInput) (*ProductDTO, error) {
	product, err := s.loadForWrite(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if product.IsDeleted() {
		return nil, access.StateConflict("product is deleted")
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.Validation("name", "name cannot be blank")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.SKU != nil {
		updates["sku"] = *input.SKU
	}
	if input.Category != nil {
		updates["category"] = *input.Category
	}
	if input.ImageURL != nil {
		updates["image_url"] = *input.ImageURL
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.Validation("price", "price cannot be negative")
		}
		updates["price"] = input.Price.Round(2)
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.Validation("stock", "stock cannot be negative")
		}
		updates["stock"] = *input.Stock
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
		}
	}

	product, err = s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, access.LoadError(err, "product")
	}
	s.audit.Record(ctx, actor, audit.Entry{Action: "product.updated", ResourceType: "product", ResourceID: id.String(), CompanyID: product.CompanyID})
	dto := FromModel(product)
	return &dto, nil
}

// Delete soft deletes a product. Order lines keep pointing at the row.
func (s *service) Delete(ctx context.Context, actor *access.Actor, id uuid.UUID) error {
	product, err := s.loadForWrite(ctx, actor, id)
	if err != nil {
		return err
	}
	if product.IsDeleted() {
		return access.Conflict("product already deleted")
	}
	deleted, err := s.repo.SoftDelete(ctx, id, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if !deleted {
		return access.Conflict("product already deleted")
	}
	s.audit.Record(ctx, actor, audit.Entry{
		Action:       "product.deleted",
		ResourceType: "product",
		ResourceID:   id.String(),
		CompanyID:    product.CompanyID,
		Details:      map[string]any{"name": product.Name},
	})
	return nil
}

// loadForWrite enforces role then ownership. Global products belong to
// super admins only.
func (s *service) loadForWrite(ctx context.Context, actor *access.Actor, id uuid.UUID) (*models.Product, error) {
	if err := access.RequireRole(actor, enums.AppRoleCompanyHR); err != nil {
		return nil, err
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, access.LoadError(err, "product")
	}
	if product.CompanyID == nil {
		if !actor.IsSuperAdmin() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "platform products are managed by super admins").
				WithDetails(map[string]any{"reason": access.ReasonRoleInsufficient, "required": string(enums.AppRoleSuperAdmin)})
		}
		return product, nil
	}
	if err := access.RequireTenant(actor, *product.CompanyID); err != nil {
		return nil, err
	}
	return product, nil
}
