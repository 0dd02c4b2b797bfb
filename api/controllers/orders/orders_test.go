package orders

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftdesk-backend/api/middleware"
	"github.com/angelmondragon/giftdesk-backend/internal/access"
	internalorders "github.com/angelmondragon/giftdesk-backend/internal/orders"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/pagination"
)

type stubOrderService struct {
	internalorders.Service
	listInput   internalorders.ListInput
	createInput internalorders.CreateInput
	statusArg   enums.OrderStatus
	actor       *access.Actor
	statusErr   error
}

func (s *stubOrderService) List(_ context.Context, actor *access.Actor, input internalorders.ListInput) (*pagination.Page[internalorders.OrderDTO], error) {
	s.actor = actor
	s.listInput = input
	return &pagination.Page[internalorders.OrderDTO]{Items: []internalorders.OrderDTO{}}, nil
}

func (s *stubOrderService) Create(_ context.Context, actor *access.Actor, input internalorders.CreateInput) (*internalorders.OrderDTO, error) {
	s.actor = actor
	s.createInput = input
	return &internalorders.OrderDTO{ID: uuid.New(), Status: enums.OrderStatusPending}, nil
}

func (s *stubOrderService) UpdateStatus(_ context.Context, _ *access.Actor, id uuid.UUID, status enums.OrderStatus) (*internalorders.OrderDTO, error) {
	s.statusArg = status
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	return &internalorders.OrderDTO{ID: id, Status: status}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func hrActor() *access.Actor {
	companyID := uuid.New()
	return &access.Actor{UserID: uuid.New(), Role: enums.AppRoleCompanyHR, CompanyID: &companyID}
}

func withRoute(req *http.Request, actor *access.Actor, params map[string]string) *http.Request {
	rc := chi.NewRouteContext()
	for k, v := range params {
		rc.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	if actor != nil {
		ctx = middleware.WithActor(ctx, actor)
	}
	return req.WithContext(ctx)
}

func TestListPassesFiltersAndActor(t *testing.T) {
	svc := &stubOrderService{}
	actor := hrActor()
	campaignID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=shipped&campaign_id="+campaignID.String()+"&limit=5", nil)
	rec := httptest.NewRecorder()
	List(svc, testLogger()).ServeHTTP(rec, withRoute(req, actor, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Same(t, actor, svc.actor)
	require.NotNil(t, svc.listInput.Filters.Status)
	assert.Equal(t, enums.OrderStatusShipped, *svc.listInput.Filters.Status)
	assert.Equal(t, campaignID, *svc.listInput.Filters.CampaignID)
	assert.Equal(t, 5, svc.listInput.Pagination.Limit)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=lost", nil)
	rec := httptest.NewRecorder()
	List(&stubOrderService{}, testLogger()).ServeHTTP(rec, withRoute(req, hrActor(), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateMapsItems(t *testing.T) {
	svc := &stubOrderService{}
	productID := uuid.New()
	body := `{"items":[{"product_id":"` + productID.String() + `","quantity":2}],"shipping_address":{"line1":" 1 MG Road ","city":"Pune","state":"MH","postal_code":"411001"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()
	Create(svc, testLogger()).ServeHTTP(rec, withRoute(req, hrActor(), nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, svc.createInput.Items, 1)
	assert.Equal(t, productID, svc.createInput.Items[0].ProductID)
	assert.Equal(t, 2, svc.createInput.Items[0].Quantity)
	require.NotNil(t, svc.createInput.ShippingAddress)
	assert.Equal(t, "1 MG Road", svc.createInput.ShippingAddress.Line1)
	assert.Equal(t, "IN", svc.createInput.ShippingAddress.Country)
}

func TestCreateRequiresItems(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"items":[]}`))
	rec := httptest.NewRecorder()
	Create(&stubOrderService{}, testLogger()).ServeHTTP(rec, withRoute(req, hrActor(), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatus(t *testing.T) {
	id := uuid.New()

	t.Run("valid transition", func(t *testing.T) {
		svc := &stubOrderService{}
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/orders/"+id.String()+"/status", strings.NewReader(`{"status":"processing"}`))
		rec := httptest.NewRecorder()
		UpdateStatus(svc, testLogger()).ServeHTTP(rec, withRoute(req, hrActor(), map[string]string{"id": id.String()}))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, enums.OrderStatusProcessing, svc.statusArg)
	})

	t.Run("disallowed transition", func(t *testing.T) {
		svc := &stubOrderService{statusErr: pkgerrors.New(pkgerrors.CodeStateConflict, "cannot move from delivered to pending")}
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/orders/"+id.String()+"/status", strings.NewReader(`{"status":"pending"}`))
		rec := httptest.NewRecorder()
		UpdateStatus(svc, testLogger()).ServeHTTP(rec, withRoute(req, hrActor(), map[string]string{"id": id.String()}))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/orders/x/status", strings.NewReader(`{"status":"pending"}`))
		rec := httptest.NewRecorder()
		UpdateStatus(&stubOrderService{}, testLogger()).ServeHTTP(rec, withRoute(req, hrActor(), map[string]string{"id": "x"}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
