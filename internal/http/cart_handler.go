package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/fjod/go_cart/internal/service"
)

// Carts is the cart side of the service layer.
type Carts interface {
	GetCart(ctx context.Context, customerID int64) (*domain.Cart, error)
	AddItem(ctx context.Context, customerID int64, form service.AddItemForm) (*domain.Cart, error)
	UpdateCart(ctx context.Context, customerID int64, cart *domain.Cart) (*domain.Cart, error)
}

type CartHandler struct {
	carts   Carts
	timeout time.Duration
	log     *slog.Logger
}

func NewCartHandler(carts Carts, timeout time.Duration, log *slog.Logger) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
		log:     log,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// CartResponse is a cart with its pending changes rendered for display.
type CartResponse struct {
	*domain.Cart
	Messages []string `json:"messages,omitempty"`
}

func newCartResponse(cart *domain.Cart) CartResponse {
	return CartResponse{Cart: cart, Messages: cart.Messages()}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	customerID := getCustomerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	cart, err := h.carts.GetCart(ctx, customerID)
	if err != nil {
		h.handleServiceError(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusOK, newCartResponse(cart))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	customerID := getCustomerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	var form service.AddItemForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if form.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must be positive")
		return
	}

	cart, err := h.carts.AddItem(ctx, customerID, form)
	if err != nil {
		h.handleServiceError(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusCreated, newCartResponse(cart))
}

func (h *CartHandler) UpdateCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	customerID := getCustomerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	var cart domain.Cart
	if err := json.NewDecoder(r.Body).Decode(&cart); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	for _, line := range cart.Lines {
		for _, item := range line.Items {
			if item.Count < 0 {
				respondError(w, http.StatusBadRequest, "invalid_quantity", "item counts must not be negative")
				return
			}
		}
	}

	updated, err := h.carts.UpdateCart(ctx, customerID, &cart)
	if err != nil {
		h.handleServiceError(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusOK, newCartResponse(updated))
}

// handleServiceError maps service errors to HTTP statuses. Unexpected errors
// are logged and hidden from the client.
func (h *CartHandler) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, service.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, domain.ErrCustomerNotFound):
		respondError(w, http.StatusNotFound, "customer_not_found", err.Error())
	case errors.Is(err, service.ErrInsufficientStock):
		respondError(w, http.StatusConflict, "insufficient_stock", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		h.log.ErrorContext(ctx, "cart request failed",
			slog.String("request_id", getRequestID(ctx)), slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to encode response", slog.String("error", err.Error()))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
