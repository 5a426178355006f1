package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/go-chi/chi/v5"
)

// Catalog is the seller side of the product catalog.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*domain.CatalogProduct, error)
	SearchByName(ctx context.Context, name string) ([]domain.CatalogProduct, error)
	SaveProduct(ctx context.Context, product domain.CatalogProduct) error
	DeleteProduct(ctx context.Context, id int64) error
}

type CatalogHandler struct {
	catalog Catalog
	timeout time.Duration
	log     *slog.Logger
}

func NewCatalogHandler(catalog Catalog, timeout time.Duration, log *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		timeout: timeout,
		log:     log,
	}
}

// GET /api/v1/products/{product_id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// GET /api/v1/products?name=
func (h *CatalogHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "name query parameter is required")
		return
	}

	products, err := h.catalog.SearchByName(ctx, name)
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}
	if products == nil {
		products = []domain.CatalogProduct{}
	}

	respondJSON(w, http.StatusOK, products)
}

// PUT /api/v1/catalog/products/{product_id}
//
// Replaces the product and all of its items. Carts holding removed or
// changed items are corrected on their next read.
func (h *CatalogHandler) SaveProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var product domain.CatalogProduct
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	product.ID = productID
	if msg := validateProduct(product); msg != "" {
		respondError(w, http.StatusBadRequest, "invalid_product", msg)
		return
	}
	for i := range product.Items {
		product.Items[i].ProductID = productID
	}

	if err := h.catalog.SaveProduct(ctx, product); err != nil {
		h.handleError(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// DELETE /api/v1/catalog/products/{product_id}
func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(ctx, productID); err != nil {
		h.handleError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) handleError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		h.log.ErrorContext(ctx, "catalog request failed",
			slog.String("request_id", getRequestID(ctx)), slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return productID, true
}

func validateProduct(p domain.CatalogProduct) string {
	if p.Name == "" {
		return "name is required"
	}
	seen := make(map[int64]struct{}, len(p.Items))
	for _, item := range p.Items {
		if item.ID <= 0 {
			return "item ids must be positive"
		}
		if _, dup := seen[item.ID]; dup {
			return "item ids must be unique"
		}
		seen[item.ID] = struct{}{}
		if item.Name == "" {
			return "item name is required"
		}
		if item.Price < 0 || item.Count < 0 {
			return "item price and count must not be negative"
		}
	}
	return ""
}
