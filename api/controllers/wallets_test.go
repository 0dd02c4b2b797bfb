package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/internal/wallets"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/metrics"
	"github.com/angelmondragon/giftdesk-backend/pkg/pagination"
)

type stubWalletService struct {
	wallets.Service
	getUserID   *uuid.UUID
	creditInput wallets.CreditInput
	listInput   wallets.ListTransactionsInput
	confirmedID uuid.UUID
}

func (s *stubWalletService) GetWallet(_ context.Context, _ *access.Actor, userID *uuid.UUID) (*wallets.WalletDTO, error) {
	s.getUserID = userID
	return &wallets.WalletDTO{ID: uuid.New(), Balance: decimal.NewFromInt(500), Currency: "INR"}, nil
}

func (s *stubWalletService) CreditWallet(_ context.Context, _ *access.Actor, input wallets.CreditInput) (*wallets.CreditResult, error) {
	s.creditInput = input
	status := enums.WalletTxCompleted
	if !input.Method.SettlesInstantly() {
		status = enums.WalletTxPending
	}
	return &wallets.CreditResult{Transaction: wallets.TransactionDTO{ID: uuid.New(), Method: input.Method, Status: status, Amount: input.Amount}}, nil
}

func (s *stubWalletService) ConfirmPendingTransaction(_ context.Context, _ *access.Actor, txID uuid.UUID) (*wallets.CreditResult, error) {
	s.confirmedID = txID
	return &wallets.CreditResult{Transaction: wallets.TransactionDTO{ID: txID, Method: enums.PaymentMethodCheque, Status: enums.WalletTxCompleted}}, nil
}

func (s *stubWalletService) ListTransactions(_ context.Context, _ *access.Actor, input wallets.ListTransactionsInput) (*pagination.Page[wallets.TransactionDTO], error) {
	s.listInput = input
	return &pagination.Page[wallets.TransactionDTO]{Items: []wallets.TransactionDTO{}}, nil
}

func TestGetMyWalletTargetsCaller(t *testing.T) {
	svc := &stubWalletService{}
	rec := httptest.NewRecorder()

	GetMyWallet(svc, testLogger())(rec, withRoute(httptest.NewRequest(http.MethodGet, "/api/v1/wallets/me", nil), hrActor(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.getUserID)
}

func TestGetUserWalletParsesPathID(t *testing.T) {
	svc := &stubWalletService{}
	userID := uuid.New()
	rec := httptest.NewRecorder()
	req := withRoute(httptest.NewRequest(http.MethodGet, "/api/v1/users/"+userID.String()+"/wallet", nil), hrActor(), map[string]string{"id": userID.String()})

	GetUserWallet(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.getUserID)
	assert.Equal(t, userID, *svc.getUserID)
}

func TestCreditWalletRecordsMethodAndStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewGiftingMetrics(reg)
	svc := &stubWalletService{}

	for _, body := range []string{
		`{"amount":"1000.50","method":"upi"}`,
		`{"amount":"2500","method":"bank_transfer","reference":"NEFT-42"}`,
	} {
		rec := httptest.NewRecorder()
		req := withRoute(httptest.NewRequest(http.MethodPost, "/api/v1/wallets/credit", strings.NewReader(body)), hrActor(), nil)
		CreditWallet(svc, m, testLogger())(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	require.NotNil(t, svc.creditInput.Reference)
	assert.Equal(t, "NEFT-42", *svc.creditInput.Reference)
	assert.True(t, svc.creditInput.Amount.Equal(decimal.NewFromInt(2500)))

	expected := `
# HELP giftdesk_wallet_credits_total Wallet credits by payment method and resulting status.
# TYPE giftdesk_wallet_credits_total counter
giftdesk_wallet_credits_total{method="bank_transfer",status="pending"} 1
giftdesk_wallet_credits_total{method="upi",status="completed"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "giftdesk_wallet_credits_total"))
}

func TestCreditWalletRejectsUnknownMethod(t *testing.T) {
	svc := &stubWalletService{}
	rec := httptest.NewRecorder()
	req := withRoute(httptest.NewRequest(http.MethodPost, "/api/v1/wallets/credit", strings.NewReader(`{"amount":"10","method":"bitcoin"}`)), hrActor(), nil)

	CreditWallet(svc, nil, testLogger())(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "method")
}

func TestConfirmWalletTransaction(t *testing.T) {
	svc := &stubWalletService{}
	txID := uuid.New()
	rec := httptest.NewRecorder()
	req := withRoute(httptest.NewRequest(http.MethodPost, "/api/v1/wallets/transactions/"+txID.String()+"/confirm", nil), hrActor(), map[string]string{"id": txID.String()})

	ConfirmWalletTransaction(svc, nil, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, txID, svc.confirmedID)
}

func TestListWalletTransactionsFilters(t *testing.T) {
	svc := &stubWalletService{}
	rec := httptest.NewRecorder()
	req := withRoute(httptest.NewRequest(http.MethodGet, "/api/v1/wallets/transactions?status=pending&limit=10", nil), hrActor(), nil)

	ListWalletTransactions(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.listInput.Status)
	assert.Equal(t, enums.WalletTxPending, *svc.listInput.Status)
	assert.Equal(t, 10, svc.listInput.Pagination.Limit)
	assert.Nil(t, svc.listInput.UserID)

	rec = httptest.NewRecorder()
	req = withRoute(httptest.NewRequest(http.MethodGet, "/api/v1/wallets/transactions?status=bogus", nil), hrActor(), nil)
	ListWalletTransactions(svc, testLogger())(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
