package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/fjod/go_cart/internal/ledger"
)

// Balances is the customer-facing side of the balance ledger.
type Balances interface {
	CreateCustomer(ctx context.Context, customerID int64, email string, balance int64) error
	GetBalance(ctx context.Context, customerID int64) (int64, error)
	History(ctx context.Context, customerID int64) ([]ledger.Entry, error)
	Credit(ctx context.Context, customerID int64, amount int64, memo domain.BalanceMemo) (int64, error)
	Debit(ctx context.Context, customerID int64, amount int64, memo domain.BalanceMemo) (int64, error)
}

type CustomerHandler struct {
	balances Balances
	timeout  time.Duration
	log      *slog.Logger
}

func NewCustomerHandler(balances Balances, timeout time.Duration, log *slog.Logger) *CustomerHandler {
	return &CustomerHandler{
		balances: balances,
		timeout:  timeout,
		log:      log,
	}
}

type RegisterCustomerDTO struct {
	Email string `json:"email"`
}

// ChangeBalanceDTO adds Money to the balance, or takes it when negative.
// A repeated Reference is applied once.
type ChangeBalanceDTO struct {
	From      string `json:"from"`
	Message   string `json:"message"`
	Money     int64  `json:"money"`
	Reference string `json:"reference,omitempty"`
}

type BalanceEntryDTO struct {
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	From         string    `json:"from"`
	Message      string    `json:"message"`
	Reference    string    `json:"reference,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type BalanceResponseDTO struct {
	CustomerID int64             `json:"customer_id"`
	Balance    int64             `json:"balance"`
	History    []BalanceEntryDTO `json:"history,omitempty"`
}

// POST /api/v1/customer
func (h *CustomerHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	customerID := getCustomerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	var req RegisterCustomerDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Email == "" {
		respondError(w, http.StatusBadRequest, "invalid_email", "email is required")
		return
	}

	if err := h.balances.CreateCustomer(ctx, customerID, req.Email, 0); err != nil {
		h.handleError(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusCreated, BalanceResponseDTO{CustomerID: customerID})
}

// GET /api/v1/customer/balance
func (h *CustomerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	customerID := getCustomerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	balance, err := h.balances.GetBalance(ctx, customerID)
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}
	entries, err := h.balances.History(ctx, customerID)
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}

	resp := BalanceResponseDTO{CustomerID: customerID, Balance: balance}
	for _, e := range entries {
		resp.History = append(resp.History, BalanceEntryDTO{
			Amount:       e.Amount,
			BalanceAfter: e.BalanceAfter,
			From:         e.Memo.From,
			Message:      e.Memo.Message,
			Reference:    e.Memo.Reference,
			CreatedAt:    e.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// POST /api/v1/customer/balance
func (h *CustomerHandler) ChangeBalance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	customerID := getCustomerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	var req ChangeBalanceDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Money == 0 {
		respondError(w, http.StatusBadRequest, "invalid_amount", "money must not be zero")
		return
	}
	if req.From == "" {
		req.From = "USER"
	}

	memo := domain.BalanceMemo{From: req.From, Message: req.Message, Reference: req.Reference}
	var (
		balance int64
		err     error
	)
	if req.Money > 0 {
		balance, err = h.balances.Credit(ctx, customerID, req.Money, memo)
	} else {
		balance, err = h.balances.Debit(ctx, customerID, -req.Money, memo)
	}
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusOK, BalanceResponseDTO{CustomerID: customerID, Balance: balance})
}

func (h *CustomerHandler) handleError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrCustomerNotFound):
		respondError(w, http.StatusNotFound, "customer_not_found", err.Error())
	case errors.Is(err, ledger.ErrDuplicateCustomer):
		respondError(w, http.StatusConflict, "customer_exists", err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		respondError(w, http.StatusPaymentRequired, "insufficient_funds", err.Error())
	case errors.Is(err, ledger.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, "invalid_amount", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		h.log.ErrorContext(ctx, "customer request failed",
			slog.String("request_id", getRequestID(ctx)), slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
