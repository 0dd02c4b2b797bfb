package invoices

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/internal/audit"
	"github.com/angelmondragon/giftdesk-backend/internal/campaigns"
	"github.com/angelmondragon/giftdesk-backend/internal/orders"
	"github.com/angelmondragon/giftdesk-backend/pkg/db"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox"
)

var issuedAt = time.Date(2026, 3, 15, 14, 5, 9, 0, time.UTC)

type harness struct {
	client *db.Client
	acme   uuid.UUID
	admin  *access.Actor
	hr     *access.Actor
}

func newHarness(t *testing.T) harness {
	t.Helper()
	acme := uuid.New()
	return harness{
		client: dbtest.Open(t),
		acme:   acme,
		admin:  &access.Actor{UserID: uuid.New(), Role: enums.AppRoleSuperAdmin},
		hr:     &access.Actor{UserID: uuid.New(), Role: enums.AppRoleCompanyHR, CompanyID: &acme},
	}
}

func (h harness) service(t *testing.T, numbers func(time.Time) (string, error)) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(h.client.DB()),
		DB:        h.client,
		Orders:    orders.NewRepository(h.client.DB()),
		Campaigns: campaigns.NewRepository(h.client.DB()),
		Outbox:    outbox.NewService(outbox.NewRepository(h.client.DB()), logger.Nop()),
		Audit:     audit.NewRecorder(h.client.DB(), logger.Nop()),
		Now:       func() time.Time { return issuedAt },
		Numbers:   numbers,
	})
	require.NoError(t, err)
	return svc
}

func (h harness) order(t *testing.T, campaignID *uuid.UUID, status enums.OrderStatus, items ...models.OrderItem) *models.Order {
	t.Helper()
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	o := &models.Order{CompanyID: h.acme, CampaignID: campaignID, Status: status, Total: total, Currency: "INR", Items: items}
	require.NoError(t, h.client.DB().Create(o).Error)
	return o
}

func item(name, price string, qty int) models.OrderItem {
	return models.OrderItem{ProductID: uuid.New(), ProductName: name, Price: decimal.RequireFromString(price), Quantity: qty}
}

func TestNewNumberFormat(t *testing.T) {
	n, err := NewNumber(issuedAt)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^INV-20260315140509-[0-9A-F]{6}$`), n)
}

func TestOrderInvoiceAppliesTenPercent(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t, nil)
	o := h.order(t, nil, enums.OrderStatusDelivered, item("Mug", "249.99", 3), item("Card", "100.00", 1))

	inv, err := svc.GenerateInvoiceForOrder(context.Background(), h.hr, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "849.97", inv.Subtotal.StringFixed(2))
	assert.Equal(t, "85.00", inv.TaxAmount.StringFixed(2))
	assert.Equal(t, "934.97", inv.TotalAmount.StringFixed(2))
	assert.True(t, inv.CGSTAmount.IsZero())
	assert.Len(t, inv.LineItems, 2)
	assert.True(t, inv.DueDate.Equal(issuedAt.AddDate(0, 0, 30)))
	assert.Equal(t, enums.InvoiceStatusIssued, inv.Status)

	_, err = svc.GenerateInvoiceForOrder(context.Background(), h.hr, o.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	var events int64
	require.NoError(t, h.client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventInvoiceGenerated).Count(&events).Error)
	assert.EqualValues(t, 1, events)
}

func TestOrderInvoiceChecksTenantAndStatus(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t, nil)
	cancelled := h.order(t, nil, enums.OrderStatusCancelled, item("Mug", "10", 1))

	_, err := svc.GenerateInvoiceForOrder(context.Background(), h.hr, cancelled.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	otherCompany := uuid.New()
	otherHR := &access.Actor{UserID: uuid.New(), Role: enums.AppRoleCompanyHR, CompanyID: &otherCompany}
	live := h.order(t, nil, enums.OrderStatusPending, item("Mug", "10", 1))
	_, err = svc.GenerateInvoiceForOrder(context.Background(), otherHR, live.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.GenerateInvoiceForOrder(context.Background(), h.hr, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestConsolidatedInvoiceSplitsGST(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t, nil)
	campaign := &models.Campaign{CompanyID: h.acme, Name: "Diwali", Status: enums.CampaignStatusActive, CreatedBy: h.hr.UserID}
	require.NoError(t, h.client.DB().Create(campaign).Error)

	_, err := svc.GenerateConsolidatedCampaignInvoice(context.Background(), h.hr, campaign.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "no orders yet")

	h.order(t, &campaign.ID, enums.OrderStatusPending, item("Hamper", "1499.00", 1))
	h.order(t, &campaign.ID, enums.OrderStatusDelivered, item("Mug", "333.33", 1))
	h.order(t, &campaign.ID, enums.OrderStatusCancelled, item("Skipped", "1000.00", 1))

	inv, err := svc.GenerateConsolidatedCampaignInvoice(context.Background(), h.hr, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.InvoiceKindCampaign, inv.Kind)
	assert.Equal(t, "1832.33", inv.Subtotal.StringFixed(2))
	assert.Equal(t, "164.91", inv.CGSTAmount.StringFixed(2))
	assert.Equal(t, "164.91", inv.SGSTAmount.StringFixed(2))
	assert.Equal(t, "329.82", inv.TaxAmount.StringFixed(2))
	assert.Equal(t, "2162.15", inv.TotalAmount.StringFixed(2))
	assert.Len(t, inv.LineItems, 2)

	_, err = svc.GenerateConsolidatedCampaignInvoice(context.Background(), h.hr, campaign.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestInvoiceNumberCollisionIsRetried(t *testing.T) {
	h := newHarness(t)
	first := h.order(t, nil, enums.OrderStatusPending, item("Mug", "10", 1))
	second := h.order(t, nil, enums.OrderStatusPending, item("Pen", "5", 2))

	calls := 0
	numbers := func(time.Time) (string, error) {
		calls++
		if calls <= 2 {
			return "INV-20260315140509-AAAAAA", nil
		}
		return "INV-20260315140509-BBBBBB", nil
	}
	svc := h.service(t, numbers)

	_, err := svc.GenerateInvoiceForOrder(context.Background(), h.hr, first.ID)
	require.NoError(t, err)
	inv, err := svc.GenerateInvoiceForOrder(context.Background(), h.hr, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-20260315140509-BBBBBB", inv.InvoiceNumber)
	assert.Equal(t, 3, calls)
}

func TestInvoiceNumberGivesUpAfterThreeCollisions(t *testing.T) {
	h := newHarness(t)
	first := h.order(t, nil, enums.OrderStatusPending, item("Mug", "10", 1))
	second := h.order(t, nil, enums.OrderStatusPending, item("Pen", "5", 2))
	svc := h.service(t, func(time.Time) (string, error) { return "INV-20260315140509-CCCCCC", nil })

	_, err := svc.GenerateInvoiceForOrder(context.Background(), h.hr, first.ID)
	require.NoError(t, err)
	_, err = svc.GenerateInvoiceForOrder(context.Background(), h.hr, second.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	var count int64
	require.NoError(t, h.client.DB().Model(&models.Invoice{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestMarkPaidOnce(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t, nil)
	o := h.order(t, nil, enums.OrderStatusPending, item("Mug", "10", 1))
	inv, err := svc.GenerateInvoiceForOrder(context.Background(), h.hr, o.ID)
	require.NoError(t, err)

	_, err = svc.MarkPaid(context.Background(), h.hr, inv.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	paid, err := svc.MarkPaid(context.Background(), h.admin, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.InvoiceStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	_, err = svc.MarkPaid(context.Background(), h.admin, inv.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	page, err := svc.List(context.Background(), h.hr, ListInput{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}
