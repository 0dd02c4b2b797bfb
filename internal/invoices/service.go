package invoices

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/internal/audit"
	"github.com/angelmondragon/giftdesk-backend/pkg/db"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/giftdesk-backend/pkg/pagination"
	"github.com/angelmondragon/giftdesk-backend/pkg/types"
)

const (
	maxNumberAttempts = 3
	paymentTermDays   = 30
)

var (
	orderTaxRate = decimal.RequireFromString("0.10")
	cgstRate     = decimal.RequireFromString("0.09")
	sgstRate     = decimal.RequireFromString("0.09")
)

type Service interface {
	GenerateInvoiceForOrder(ctx context.Context, actor *access.Actor, orderID uuid.UUID) (*InvoiceDTO, error)
	GenerateConsolidatedCampaignInvoice(ctx context.Context, actor *access.Actor, campaignID uuid.UUID) (*InvoiceDTO, error)
	List(ctx context.Context, actor *access.Actor, input ListInput) (*pagination.Page[InvoiceDTO], error)
	Get(ctx context.Context, actor *access.Actor, id uuid.UUID) (*InvoiceDTO, error)
	MarkPaid(ctx context.Context, actor *access.Actor, id uuid.UUID) (*InvoiceDTO, error)
}

type orderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByCampaign(ctx context.Context, campaignID uuid.UUID, excludeCancelled bool) ([]models.Order, error)
}

type campaignLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ServiceParams struct {
	Repo      *Repository
	DB        *db.Client
	Orders    orderLoader
	Campaigns campaignLoader
	Outbox    outboxEmitter
	Audit     audit.Recorder
	Now       func() time.Time

	// Numbers generates invoice numbers; defaults to NewNumber.
	Numbers func(time.Time) (string, error)
}

type service struct {
	repo      *Repository
	db        *db.Client
	orders    orderLoader
	campaigns campaignLoader
	outbox    outboxEmitter
	audit     audit.Recorder
	now       func() time.Time
	numbers   func(time.Time) (string, error)
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if params.Campaigns == nil {
		return nil, fmt.Errorf("campaign loader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Audit == nil {
		params.Audit = audit.Nop{}
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	if params.Numbers == nil {
		params.Numbers = NewNumber
	}
	return &service{
		repo:      params.Repo,
		db:        params.DB,
		orders:    params.Orders,
		campaigns: params.Campaigns,
		outbox:    params.Outbox,
		audit:     params.Audit,
		now:       params.Now,
		numbers:   params.Numbers,
	}, nil
}

func (s *service) GenerateInvoiceForOrder(ctx context.Context, actor *access.Actor, orderID uuid.UUID) (*InvoiceDTO, error) {
	if err := access.RequireRole(actor, enums.AppRoleCompanyHR); err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, access.LoadError(err, "order")
	}
	if err := access.RequireTenant(actor, order.CompanyID); err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, access.StateConflict("cancelled orders cannot be invoiced")
	}
	exists := func(ctx context.Context) (bool, error) { return s.repo.ExistsForOrder(ctx, order.ID) }
	if err := s.ensureAbsent(ctx, exists); err != nil {
		return nil, err
	}

	lines := linesFor(*order)
	subtotal := sumLines(lines)
	tax := subtotal.Mul(orderTaxRate).Round(2)
	issuedAt := s.now().UTC()
	inv := &models.Invoice{
		CompanyID:   order.CompanyID,
		Kind:        enums.InvoiceKindOrder,
		OrderID:     &order.ID,
		Status:      enums.InvoiceStatusIssued,
		Currency:    order.Currency,
		Subtotal:    subtotal,
		TaxRate:     orderTaxRate,
		CGSTAmount:  decimal.Zero,
		SGSTAmount:  decimal.Zero,
		TaxAmount:   tax,
		TotalAmount: subtotal.Add(tax),
		LineItems:   lines,
		IssuedAt:    issuedAt,
		DueDate:     issuedAt.AddDate(0, 0, paymentTermDays),
		CreatedBy:   actor.UserID,
	}
	if err := s.issue(ctx, actor, inv, exists); err != nil {
		return nil, err
	}
	dto := FromModel(inv)
	return &dto, nil
}

func (s *service) GenerateConsolidatedCampaignInvoice(ctx context.Context, actor *access.Actor, campaignID uuid.UUID) (*InvoiceDTO, error) {
	if err := access.RequireRole(actor, enums.AppRoleCompanyHR); err != nil {
		return nil, err
	}
	campaign, err := s.campaigns.FindByID(ctx, campaignID)
	if err != nil {
		return nil, access.LoadError(err, "campaign")
	}
	if err := access.RequireTenant(actor, campaign.CompanyID); err != nil {
		return nil, err
	}
	exists := func(ctx context.Context) (bool, error) { return s.repo.ExistsForCampaign(ctx, campaign.ID) }
	if err := s.ensureAbsent(ctx, exists); err != nil {
		return nil, err
	}

	orders, err := s.orders.ListByCampaign(ctx, campaign.ID, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load campaign orders")
	}
	if len(orders) == 0 {
		return nil, access.StateConflict("campaign has no billable orders")
	}

	var lines types.InvoiceLines
	for _, o := range orders {
		if o.Currency != orders[0].Currency {
			return nil, access.StateConflict("campaign orders use more than one currency")
		}
		lines = append(lines, linesFor(o)...)
	}
	subtotal := sumLines(lines)
	cgst := subtotal.Mul(cgstRate).Round(2)
	sgst := subtotal.Mul(sgstRate).Round(2)
	tax := cgst.Add(sgst)
	issuedAt := s.now().UTC()
	inv := &models.Invoice{
		CompanyID:   campaign.CompanyID,
		Kind:        enums.InvoiceKindCampaign,
		CampaignID:  &campaign.ID,
		Status:      enums.InvoiceStatusIssued,
		Currency:    orders[0].Currency,
		Subtotal:    subtotal,
		TaxRate:     cgstRate.Add(sgstRate),
		CGSTAmount:  cgst,
		SGSTAmount:  sgst,
		TaxAmount:   tax,
		TotalAmount: subtotal.Add(tax),
		LineItems:   lines,
		IssuedAt:    issuedAt,
		DueDate:     issuedAt.AddDate(0, 0, paymentTermDays),
		CreatedBy:   actor.UserID,
	}
	if err := s.issue(ctx, actor, inv, exists); err != nil {
		return nil, err
	}
	dto := FromModel(inv)
	return &dto, nil
}

func (s *service) ensureAbsent(ctx context.Context, exists func(context.Context) (bool, error)) error {
	found, err := exists(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing invoice")
	}
	if found {
		return access.Conflict("invoice already exists")
	}
	return nil
}

// issue inserts inv with a fresh number, retrying when only the number
// collided. A unique violation on the order or campaign means another request
// already invoiced it.
func (s *service) issue(ctx context.Context, actor *access.Actor, inv *models.Invoice, exists func(context.Context) (bool, error)) error {
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		number, err := s.numbers(inv.IssuedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate invoice number")
		}
		inv.ID = uuid.New()
		inv.InvoiceNumber = number

		err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.repo.WithTx(tx).Create(ctx, inv); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventInvoiceGenerated,
				AggregateType: enums.AggregateInvoice,
				AggregateID:   inv.ID,
				Actor:         actor.OutboxRef(),
				Data: payloads.InvoiceGeneratedEvent{
					InvoiceID:     inv.ID,
					InvoiceNumber: inv.InvoiceNumber,
					CompanyID:     inv.CompanyID,
					Kind:          inv.Kind,
					TotalAmount:   inv.TotalAmount,
					Currency:      inv.Currency,
					DueDate:       inv.DueDate,
				},
			})
		})
		if err == nil {
			s.audit.Record(ctx, actor, audit.Entry{
				Action:       "invoice.generated",
				ResourceType: "invoice",
				ResourceID:   inv.ID.String(),
				CompanyID:    &inv.CompanyID,
				Details: map[string]any{
					"invoice_number": inv.InvoiceNumber,
					"kind":           string(inv.Kind),
					"total":          inv.TotalAmount.StringFixed(2),
				},
			})
			return nil
		}
		if !db.IsUniqueViolation(err, "") {
			if pkgerrors.As(err) != nil {
				return err
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice")
		}
		if err := s.ensureAbsent(ctx, exists); err != nil {
			return err
		}
	}
	return pkgerrors.New(pkgerrors.CodeDependency, "could not allocate a unique invoice number")
}

func (s *service) List(ctx context.Context, actor *access.Actor, input ListInput) (*pagination.Page[InvoiceDTO], error) {
	if err := access.RequireRole(actor, enums.AppRoleCompanyHR); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Validation("cursor", "invalid cursor")
	}
	rows, err := s.repo.ListScoped(ctx, actor, input.Filters, cursor, input.Pagination.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices")
	}
	page := pagination.BuildPage(rows, input.Pagination.Limit, func(i models.Invoice) pagination.Cursor {
		return pagination.Cursor{CreatedAt: i.CreatedAt, ID: i.ID}
	})
	out := &pagination.Page[InvoiceDTO]{NextCursor: page.NextCursor, Items: make([]InvoiceDTO, 0, len(page.Items))}
	for i := range page.Items {
		out.Items = append(out.Items, FromModel(&page.Items[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor *access.Actor, id uuid.UUID) (*InvoiceDTO, error) {
	if err := access.RequireRole(actor, enums.AppRoleCompanyHR); err != nil {
		return nil, err
	}
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, access.LoadError(err, "invoice")
	}
	if err := access.RequireTenant(actor, inv.CompanyID); err != nil {
		return nil, err
	}
	dto := FromModel(inv)
	return &dto, nil
}

func (s *service) MarkPaid(ctx context.Context, actor *access.Actor, id uuid.UUID) (*InvoiceDTO, error) {
	if err := access.RequireRole(actor, enums.AppRoleSuperAdmin); err != nil {
		return nil, err
	}
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, access.LoadError(err, "invoice")
	}
	ok, err := s.repo.MarkPaid(ctx, id, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark invoice paid")
	}
	if !ok {
		return nil, access.Conflict("invoice is " + inv.Status.String())
	}
	s.audit.Record(ctx, actor, audit.Entry{
		Action:       "invoice.paid",
		ResourceType: "invoice",
		ResourceID:   id.String(),
		CompanyID:    &inv.CompanyID,
	})
	return s.Get(ctx, actor, id)
}

func linesFor(o models.Order) types.InvoiceLines {
	lines := make(types.InvoiceLines, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, types.InvoiceLine{
			OrderID:     o.ID,
			ProductID:   it.ProductID,
			Description: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.Price,
			Amount:      it.LineTotal().Round(2),
		})
	}
	return lines
}

func sumLines(lines types.InvoiceLines) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	return total.Round(2)
}
