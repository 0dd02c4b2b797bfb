package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/internal/audit"
	"github.com/angelmondragon/giftdesk-backend/internal/orders"
	"github.com/angelmondragon/giftdesk-backend/internal/redemption"
	"github.com/angelmondragon/giftdesk-backend/pkg/config"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/metrics"
	"github.com/angelmondragon/giftdesk-backend/pkg/pagination"
	"github.com/angelmondragon/giftdesk-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

// stubResolver treats the bearer token as a role name.
type stubResolver struct{}

func (stubResolver) ResolveActor(_ context.Context, credential string) (*access.Actor, error) {
	companyID := uuid.New()
	switch credential {
	case "employee":
		return &access.Actor{UserID: uuid.New(), Role: enums.AppRoleEmployee, CompanyID: &companyID}, nil
	case "hr":
		return &access.Actor{UserID: uuid.New(), Role: enums.AppRoleCompanyHR, CompanyID: &companyID}, nil
	case "super":
		return &access.Actor{UserID: uuid.New(), Role: enums.AppRoleSuperAdmin}, nil
	}
	return nil, nil
}

type stubOrders struct {
	orders.Service
	created int
}

func (s *stubOrders) List(context.Context, *access.Actor, orders.ListInput) (*pagination.Page[orders.OrderDTO], error) {
	return &pagination.Page[orders.OrderDTO]{Items: []orders.OrderDTO{}}, nil
}

func (s *stubOrders) Create(_ context.Context, _ *access.Actor, _ orders.CreateInput) (*orders.OrderDTO, error) {
	s.created++
	return &orders.OrderDTO{ID: uuid.New(), Status: enums.OrderStatusPending}, nil
}

type stubRedemption struct {
	redemption.Service
}

func (stubRedemption) Lookup(context.Context, string) (*redemption.LookupResult, error) {
	return &redemption.LookupResult{State: "available"}, nil
}

type stubAudit struct{}

func (stubAudit) List(context.Context, *access.Actor, audit.Filter, pagination.Params) (*pagination.Page[audit.EntryDTO], error) {
	return &pagination.Page[audit.EntryDTO]{Items: []audit.EntryDTO{}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", CORSOrigins: []string{"http://localhost:3000"}},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:        time.Minute,
			LoginIPLimit:       20,
			LoginEmailLimit:    5,
			RegisterWindow:     time.Minute,
			RegisterIPLimit:    20,
			RegisterEmailLimit: 3,
		},
		GiftRateLimit: config.GiftRateLimitConfig{Window: time.Minute, IPLimit: 2},
		FeatureFlags:  config.FeatureFlagsConfig{ExposeMetrics: true},
	}
}

type harness struct {
	handler http.Handler
	orders  *stubOrders
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	reg := prometheus.NewRegistry()
	ordersSvc := &stubOrders{}

	handler := NewRouter(
		testConfig(),
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		stubPinger{},
		redisClient,
		stubResolver{},
		Services{Orders: ordersSvc, Redemption: stubRedemption{}, Audit: stubAudit{}},
		Observability{Gatherer: reg, HTTP: metrics.NewHTTPMetrics(reg), Gifting: metrics.NewGiftingMetrics(reg)},
	)
	return &harness{handler: handler, orders: ordersSvc}
}

func (h *harness) do(method, path, token, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health/live", "", "", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health/ready", "", "", nil).Code)
}

func TestAuthenticatedGroupRejectsAnonymous(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/v1/orders", "", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrdersRequireCompanyHR(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/v1/orders", "employee", "", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/orders", "hr", "", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/orders", "super", "", nil).Code)
}

func TestAuditLogsRequireSuperAdmin(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/v1/audit-logs", "hr", "", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/audit-logs", "super", "", nil).Code)
}

func TestCreateOrderIsIdempotent(t *testing.T) {
	h := newHarness(t)
	body := `{"items":[{"product_id":"` + uuid.NewString() + `","quantity":1}],"shipping_address":{"line1":"1 Main","city":"Pune","state":"MH","postal_code":"411001"}}`

	missing := h.do(http.MethodPost, "/api/v1/orders", "hr", body, nil)
	require.Equal(t, http.StatusBadRequest, missing.Code)
	assert.Contains(t, missing.Body.String(), "Idempotency-Key")

	headers := map[string]string{"Idempotency-Key": "order-1"}
	first := h.do(http.MethodPost, "/api/v1/orders", "hr", body, headers)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	assert.Equal(t, 1, h.orders.created)
}

func TestGiftLookupIsPublicAndRateLimited(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/gifts/tok-1", "", "", nil).Code)
	}
	rec := h.do(http.MethodGet, "/api/v1/gifts/tok-1", "", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestMissingServiceAnswersInternalError(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/v1/invoices", "hr", "", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMetricsEndpointExposesRouteCounters(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodGet, "/health/live", "", "", nil)

	rec := h.do(http.MethodGet, "/metrics", "", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `giftdesk_http_requests_total{method="GET",route="/health/live",status="200"} 1`)
}
