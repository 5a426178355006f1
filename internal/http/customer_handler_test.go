package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/fjod/go_cart/internal/ledger"
	"github.com/fjod/go_cart/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type BalancesMock struct {
	balances map[int64]int64
	history  []ledger.Entry
	memos    []domain.BalanceMemo
}

func (b *BalancesMock) CreateCustomer(_ context.Context, customerID int64, _ string, balance int64) error {
	if _, ok := b.balances[customerID]; ok {
		return ledger.ErrDuplicateCustomer
	}
	b.balances[customerID] = balance
	return nil
}

func (b *BalancesMock) GetBalance(_ context.Context, customerID int64) (int64, error) {
	bal, ok := b.balances[customerID]
	if !ok {
		return 0, domain.ErrCustomerNotFound
	}
	return bal, nil
}

func (b *BalancesMock) History(_ context.Context, customerID int64) ([]ledger.Entry, error) {
	return b.history, nil
}

func (b *BalancesMock) Credit(ctx context.Context, customerID int64, amount int64, memo domain.BalanceMemo) (int64, error) {
	return b.adjust(customerID, amount, memo)
}

func (b *BalancesMock) Debit(ctx context.Context, customerID int64, amount int64, memo domain.BalanceMemo) (int64, error) {
	return b.adjust(customerID, -amount, memo)
}

func (b *BalancesMock) adjust(customerID int64, delta int64, memo domain.BalanceMemo) (int64, error) {
	bal, ok := b.balances[customerID]
	if !ok {
		return 0, domain.ErrCustomerNotFound
	}
	if bal+delta < 0 {
		return bal, domain.ErrInsufficientFunds
	}
	b.balances[customerID] = bal + delta
	b.memos = append(b.memos, memo)
	return bal + delta, nil
}

func customerRequest(t *testing.T, handler http.HandlerFunc, method, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := withCustomer(httptest.NewRequest(method, "/api/v1/customer/balance", bytes.NewBufferString(body)), 7)
	rec := httptest.NewRecorder()

	handler(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func TestCustomer_Register(t *testing.T) {
	mock := &BalancesMock{balances: map[int64]int64{}}
	handler := NewCustomerHandler(mock, 5*time.Second, logger.Nop())

	rec, _ := customerRequest(t, handler.Register, http.MethodPost, `{"email":"buyer@example.com"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, mock.balances, int64(7))

	rec, body := customerRequest(t, handler.Register, http.MethodPost, `{"email":"buyer@example.com"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "customer_exists", body["code"])

	rec, _ = customerRequest(t, handler.Register, http.MethodPost, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCustomer_ChangeBalance(t *testing.T) {
	mock := &BalancesMock{balances: map[int64]int64{7: 1000}}
	handler := NewCustomerHandler(mock, 5*time.Second, logger.Nop())

	rec, body := customerRequest(t, handler.ChangeBalance, http.MethodPost,
		`{"from":"ADMIN","message":"top up","money":5000,"reference":"topup-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 6000, body["balance"])
	require.Len(t, mock.memos, 1)
	assert.Equal(t, domain.BalanceMemo{From: "ADMIN", Message: "top up", Reference: "topup-1"}, mock.memos[0])

	rec, body = customerRequest(t, handler.ChangeBalance, http.MethodPost, `{"message":"refund","money":-2000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 4000, body["balance"])
	assert.Equal(t, "USER", mock.memos[1].From)
}

func TestCustomer_ChangeBalanceErrors(t *testing.T) {
	tests := []struct {
		name       string
		customerID int64
		body       string
		wantStatus int
		wantCode   string
	}{
		{"zero", 7, `{"money":0}`, http.StatusBadRequest, "invalid_amount"},
		{"overdraw", 7, `{"money":-5000}`, http.StatusPaymentRequired, "insufficient_funds"},
		{"unknown customer", 8, `{"money":100}`, http.StatusNotFound, "customer_not_found"},
		{"invalid json", 7, `{"money":`, http.StatusBadRequest, "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &BalancesMock{balances: map[int64]int64{7: 1000}}
			handler := NewCustomerHandler(mock, 5*time.Second, logger.Nop())

			req := withCustomer(httptest.NewRequest(http.MethodPost, "/api/v1/customer/balance", bytes.NewBufferString(tt.body)), tt.customerID)
			rec := httptest.NewRecorder()
			handler.ChangeBalance(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var errResp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
			assert.Equal(t, tt.wantCode, errResp.Code)
			assert.Equal(t, int64(1000), mock.balances[7])
		})
	}
}

func TestCustomer_GetBalanceWithHistory(t *testing.T) {
	mock := &BalancesMock{
		balances: map[int64]int64{7: 4000},
		history: []ledger.Entry{
			{Amount: -6000, BalanceAfter: 4000, Memo: domain.BalanceMemo{From: "USER", Message: "Order", Reference: "c0ffee"}},
			{Amount: 10000, BalanceAfter: 10000, Memo: domain.BalanceMemo{From: "ADMIN", Message: "top up"}},
		},
	}
	handler := NewCustomerHandler(mock, 5*time.Second, logger.Nop())

	req := withCustomer(httptest.NewRequest(http.MethodGet, "/api/v1/customer/balance", nil), 7)
	rec := httptest.NewRecorder()
	handler.GetBalance(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp BalanceResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(4000), resp.Balance)
	require.Len(t, resp.History, 2)
	assert.Equal(t, "Order", resp.History[0].Message)
	assert.Equal(t, "c0ffee", resp.History[0].Reference)
}
