package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/internal/audit"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/giftdesk-backend/pkg/pagination"
	"github.com/angelmondragon/giftdesk-backend/pkg/visibility"
)

const maxOrderItems = 50

// Service defines order operations exposed to controllers.
type Service interface {
	List(ctx context.Context, actor *access.Actor, input ListInput) (*pagination.Page[OrderDTO], error)
	Get(ctx context.Context, actor *access.Actor, id uuid.UUID) (*OrderDTO, error)
	Create(ctx context.Context, actor *access.Actor, input CreateInput) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, actor *access.Actor, id uuid.UUID, status enums.OrderStatus) (*OrderDTO, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	products productLoader
	audit    audit.Recorder
}

func NewService(repo Repository, tx txRunner, outbox outboxPublisher, products productLoader, recorder audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &service{repo: repo, tx: tx, outbox: outbox, products: products, audit: recorder}, nil
}

func (s *service) List(ctx context.Context, actor *access.Actor, input ListInput) (*pagination.Page[OrderDTO], error) {
	if err := access.RequireRole(actor, enums.AppRoleCompanyHR); err != nil {
		return nil, err
	}
	if input.Filters.Status != nil && !input.Filters.Status.IsValid() {
		return nil, pkgerrors.Validation("status", "unknown order status")
	}
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Validation("cursor", "invalid cursor")
	}
	rows, err := s.repo.ListScoped(ctx, actor, input.Filters, cursor, input.Pagination.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page := pagination.BuildPage(rows, input.Pagination.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	out := &pagination.Page[OrderDTO]{NextCursor: page.NextCursor, Items: make([]OrderDTO, 0, len(page.Items))}
	for i := range page.Items {
		out.Items = append(out.Items, FromModel(&page.Items[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor *access.Actor, id uuid.UUID) (*OrderDTO, error) {
	if err := access.RequireRole(actor, enums.AppRoleCompanyHR); err != nil {
		return nil, err
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, access.LoadError(err, "order")
	}
	if err := access.RequireTenant(actor, order.CompanyID); err != nil {
		return nil, err
	}
	dto := FromModel(order)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, actor *access.Actor, input CreateInput) (*OrderDTO, error) {
	if err := access.RequireRole(actor, enums.AppRoleCompanyHR); err != nil {
		return nil, err
	}
	companyID := input.CompanyID
	if companyID == nil {
		companyID = actor.CompanyID
	}
	if companyID == nil {
		return nil, pkgerrors.Validation("company_id", "company is required")
	}
	if err := access.RequireTenant(actor, *companyID); err != nil {
		return nil, err
	}

	quantities, ids, err := collectItems(input.Items)
	if err != nil {
		return nil, err
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	order := &models.Order{
		CompanyID: *companyID,
		CreatedBy: &actor.UserID,
		Status:    enums.OrderStatusPending,
		Notes:     input.Notes,
	}
	if input.ShippingAddress != nil {
		addr := input.ShippingAddress.Normalize()
		order.ShippingAddress = &addr
	}
	total := decimal.Zero
	for _, id := range ids {
		product, ok := byID[id]
		if !ok {
			return nil, pkgerrors.Validation("items", "product "+id.String()+" is not available")
		}
		if err := visibility.EnsureProductSelectable(&product, *companyID); err != nil {
			return nil, err
		}
		if order.Currency == "" {
			order.Currency = product.Currency
		} else if order.Currency != product.Currency {
			return nil, pkgerrors.Validation("items", "all products must share one currency")
		}
		item := models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    quantities[id],
			Price:       product.Price,
		}
		total = total.Add(item.LineTotal())
		order.Items = append(order.Items, item)
	}
	order.Total = total.Round(2)

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	s.audit.Record(ctx, actor, audit.Entry{
		Action:       "order.created",
		ResourceType: "order",
		ResourceID:   order.ID.String(),
		CompanyID:    companyID,
		Details:      map[string]any{"total": order.Total.StringFixed(2), "items": len(order.Items)},
	})
	dto := FromModel(order)
	return &dto, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor *access.Actor, id uuid.UUID, status enums.OrderStatus) (*OrderDTO, error) {
	if err := access.RequireRole(actor, enums.AppRoleCompanyHR); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, pkgerrors.Validation("status", "unknown order status")
	}

	var from enums.OrderStatus
	var companyID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return access.LoadError(err, "order")
		}
		if err := access.RequireTenant(actor, order.CompanyID); err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(status) {
			return access.StateConflict(fmt.Sprintf("order cannot move from %s to %s", order.Status, status))
		}
		updated, err := repo.UpdateStatus(ctx, order.ID, order.Status, status)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !updated {
			return access.StateConflict("order status changed concurrently")
		}
		from, companyID = order.Status, order.CompanyID

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor.OutboxRef(),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:   order.ID,
				CompanyID: order.CompanyID,
				From:      order.Status,
				To:        status,
				ChangedBy: actor.UserID,
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	s.audit.Record(ctx, actor, audit.Entry{
		Action:       "order.status_changed",
		ResourceType: "order",
		ResourceID:   id.String(),
		CompanyID:    &companyID,
		Details:      map[string]any{"from": string(from), "to": string(status)},
	})
	return s.Get(ctx, actor, id)
}

// collectItems merges repeated products and validates quantities, keeping the
// first-seen order of products.
func collectItems(items []ItemInput) (map[uuid.UUID]int, []uuid.UUID, error) {
	if len(items) == 0 {
		return nil, nil, pkgerrors.Validation("items", "at least one item is required")
	}
	if len(items) > maxOrderItems {
		return nil, nil, pkgerrors.Validation("items", fmt.Sprintf("at most %d items per order", maxOrderItems))
	}
	quantities := make(map[uuid.UUID]int, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		if it.ProductID == uuid.Nil {
			return nil, nil, pkgerrors.Validation("items", "product_id is required")
		}
		if it.Quantity <= 0 {
			return nil, nil, pkgerrors.Validation("items", "quantity must be positive")
		}
		if _, seen := quantities[it.ProductID]; !seen {
			ids = append(ids, it.ProductID)
		}
		quantities[it.ProductID] += it.Quantity
	}
	return quantities, ids, nil
}
