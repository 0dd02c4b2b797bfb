package vendors

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/internal/audit"
	"github.com/angelmondragon/giftdesk-backend/internal/orders"
	"github.com/angelmondragon/giftdesk-backend/pkg/db"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox"
)

type harness struct {
	client *db.Client
	svc    Service
	clock  *time.Time
	acme   uuid.UUID
	admin  *access.Actor
	hr     *access.Actor
}

func newHarness(t *testing.T) harness {
	t.Helper()
	client := dbtest.Open(t)
	now := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	clock := &now
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(client.DB()),
		DB:     client,
		Orders: orders.NewRepository(client.DB()),
		Outbox: outbox.NewService(outbox.NewRepository(client.DB()), logger.Nop()),
		Audit:  audit.NewRecorder(client.DB(), logger.Nop()),
		Now:    func() time.Time { return *clock },
	})
	require.NoError(t, err)
	acme := uuid.New()
	return harness{
		client: client,
		svc:    svc,
		clock:  clock,
		acme:   acme,
		admin:  &access.Actor{UserID: uuid.New(), Role: enums.AppRoleSuperAdmin},
		hr:     &access.Actor{UserID: uuid.New(), Role: enums.AppRoleCompanyHR, CompanyID: &acme},
	}
}

func (h harness) order(t *testing.T, companyID uuid.UUID, status enums.OrderStatus) *models.Order {
	t.Helper()
	o := &models.Order{CompanyID: companyID, Status: status, Total: decimal.NewFromInt(100), Currency: "INR"}
	require.NoError(t, h.client.DB().Create(o).Error)
	return o
}

func (h harness) vendor(t *testing.T) *VendorDTO {
	t.Helper()
	email := " Ops@BlueDart.example "
	v, err := h.svc.CreateVendor(context.Background(), h.admin, CreateVendorInput{Name: "BlueDart", ContactEmail: &email, SLADays: 3})
	require.NoError(t, err)
	return v
}

func status(s enums.AssignmentStatus) *enums.AssignmentStatus { return &s }

func TestVendorRegistryIsSuperAdminOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.CreateVendor(ctx, h.hr, CreateVendorInput{Name: "X"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	v := h.vendor(t)
	require.NotNil(t, v.ContactEmail)
	assert.Equal(t, "ops@bluedart.example", *v.ContactEmail)
	assert.True(t, v.IsActive)

	inactive := false
	_, err = h.svc.UpdateVendor(ctx, h.admin, v.ID, UpdateVendorInput{IsActive: &inactive})
	require.NoError(t, err)

	list, err := h.svc.ListVendors(ctx, h.hr)
	require.NoError(t, err)
	assert.Empty(t, list, "hr only sees active vendors")

	list, err = h.svc.ListVendors(ctx, h.admin)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAssignChecksOrderAndVendor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	v := h.vendor(t)
	cost := decimal.RequireFromString("80.125")

	_, err := h.svc.Assign(ctx, h.admin, AssignInput{OrderID: uuid.New(), VendorID: v.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	cancelled := h.order(t, h.acme, enums.OrderStatusCancelled)
	_, err = h.svc.Assign(ctx, h.admin, AssignInput{OrderID: cancelled.ID, VendorID: v.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	o := h.order(t, h.acme, enums.OrderStatusPending)
	a, err := h.svc.Assign(ctx, h.admin, AssignInput{OrderID: o.ID, VendorID: v.ID, Cost: &cost})
	require.NoError(t, err)
	assert.Equal(t, enums.AssignmentStatusPending, a.Status)
	require.NotNil(t, a.Cost)
	assert.Equal(t, "80.13", a.Cost.StringFixed(2))
	assert.Nil(t, a.POSentAt)

	_, err = h.svc.Assign(ctx, h.admin, AssignInput{OrderID: o.ID, VendorID: v.ID})
	require.NoError(t, err, "orders may have several assignments")

	var events int64
	require.NoError(t, h.client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventVendorAssigned).Count(&events).Error)
	assert.EqualValues(t, 2, events)

	inactive := false
	_, err = h.svc.UpdateVendor(ctx, h.admin, v.ID, UpdateVendorInput{IsActive: &inactive})
	require.NoError(t, err)
	_, err = h.svc.Assign(ctx, h.admin, AssignInput{OrderID: o.ID, VendorID: v.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = h.svc.Assign(ctx, h.hr, AssignInput{OrderID: o.ID, VendorID: v.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestPOSentAtSetOnceOnShipment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	v := h.vendor(t)
	o := h.order(t, h.acme, enums.OrderStatusProcessing)
	a, err := h.svc.Assign(ctx, h.admin, AssignInput{OrderID: o.ID, VendorID: v.ID})
	require.NoError(t, err)

	got, err := h.svc.UpdateAssignment(ctx, h.admin, a.ID, UpdateAssignmentInput{Status: status(enums.AssignmentStatusAccepted)})
	require.NoError(t, err)
	assert.Nil(t, got.POSentAt)

	shippedAt := *h.clock
	tracking := " AWB123 "
	got, err = h.svc.UpdateAssignment(ctx, h.admin, a.ID, UpdateAssignmentInput{Status: status(enums.AssignmentStatusShipped), TrackingNumber: &tracking})
	require.NoError(t, err)
	require.NotNil(t, got.POSentAt)
	assert.True(t, got.POSentAt.Equal(shippedAt))
	require.NotNil(t, got.TrackingNumber)
	assert.Equal(t, "AWB123", *got.TrackingNumber)

	*h.clock = h.clock.Add(48 * time.Hour)
	got, err = h.svc.UpdateAssignment(ctx, h.admin, a.ID, UpdateAssignmentInput{Status: status(enums.AssignmentStatusDelivered)})
	require.NoError(t, err)
	require.NotNil(t, got.POSentAt)
	assert.True(t, got.POSentAt.Equal(shippedAt), "later transitions keep the first po_sent_at")

	_, err = h.svc.UpdateAssignment(ctx, h.admin, a.ID, UpdateAssignmentInput{Status: status(enums.AssignmentStatusCancelled)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestDirectDeliveryAlsoStampsPOSent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	v := h.vendor(t)
	o := h.order(t, h.acme, enums.OrderStatusPending)
	a, err := h.svc.Assign(ctx, h.admin, AssignInput{OrderID: o.ID, VendorID: v.ID})
	require.NoError(t, err)

	got, err := h.svc.UpdateAssignment(ctx, h.admin, a.ID, UpdateAssignmentInput{Status: status(enums.AssignmentStatusDelivered)})
	require.NoError(t, err)
	assert.NotNil(t, got.POSentAt)
}

func TestListAssignmentsTenantChecked(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	v := h.vendor(t)
	own := h.order(t, h.acme, enums.OrderStatusPending)
	foreign := h.order(t, uuid.New(), enums.OrderStatusPending)
	_, err := h.svc.Assign(ctx, h.admin, AssignInput{OrderID: own.ID, VendorID: v.ID})
	require.NoError(t, err)

	list, err := h.svc.ListAssignments(ctx, h.hr, own.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = h.svc.ListAssignments(ctx, h.hr, foreign.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}
