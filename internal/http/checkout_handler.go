package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/internal/service"
)

type Checkout interface {
	Order(ctx context.Context, customerID int64) (*service.CheckoutResult, error)
}

type CheckoutHandler struct {
	checkout Checkout
	timeout  time.Duration
	log      *slog.Logger
}

func NewCheckoutHandler(checkout Checkout, timeout time.Duration, log *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		timeout:  timeout,
		log:      log,
	}
}

// CheckoutResponse is the checkout outcome. Error and Code are set when the
// order did not complete.
type CheckoutResponse struct {
	*service.CheckoutResult
	Messages []string `json:"messages,omitempty"`
	Error    string   `json:"error,omitempty"`
	Code     string   `json:"code,omitempty"`
}

// POST /api/v1/cart/order
func (h *CheckoutHandler) Order(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	customerID := getCustomerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	res, err := h.checkout.Order(ctx, customerID)
	if res == nil {
		res = &service.CheckoutResult{}
	}
	resp := CheckoutResponse{CheckoutResult: res}
	for _, ch := range res.Changes {
		resp.Messages = append(resp.Messages, ch.Message())
	}
	if err == nil {
		respondJSON(w, http.StatusCreated, resp)
		return
	}

	status, code := http.StatusInternalServerError, "internal_error"
	resp.Error = err.Error()
	switch {
	case errors.Is(err, service.ErrCartChanged):
		status, code = http.StatusConflict, "cart_changed"
	case errors.Is(err, service.ErrCartEmpty):
		status, code = http.StatusUnprocessableEntity, "cart_empty"
	case errors.Is(err, service.ErrInsufficientFunds):
		status, code = http.StatusPaymentRequired, "insufficient_funds"
	case errors.Is(err, service.ErrReconciliationRequired):
		// Paid for. The client must not retry, support follows up.
		code = "reconciliation_required"
		resp.Error = "order was paid but could not be completed; support has been notified"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
		resp.Error = "request timed out"
	default:
		h.log.ErrorContext(ctx, "checkout failed",
			slog.Int64("customer_id", customerID),
			slog.String("request_id", getRequestID(ctx)),
			slog.String("error", err.Error()))
		resp.Error = "internal server error"
	}
	resp.Code = code
	respondJSON(w, status, resp)
}
