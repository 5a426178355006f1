package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Carts              *CartHandler
	Checkout           *CheckoutHandler
	Catalog            *CatalogHandler
	Customers          *CustomerHandler
	Metrics            *metrics.Server
	Gatherer           prometheus.Gatherer
	Log                *slog.Logger
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

// NewRouter wires the public API. Every request is traced. Cart and customer
// routes require a customer id; catalog management trusts the upstream
// gateway to restrict it to sellers.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))
	}

	m := cfg.Metrics
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Catalog != nil {
			r.Get("/products", m.Instrument("search_products", cfg.Catalog.SearchProducts))
			r.Get("/products/{product_id}", m.Instrument("get_product", cfg.Catalog.GetProduct))
			r.Put("/catalog/products/{product_id}", m.Instrument("save_product", cfg.Catalog.SaveProduct))
			r.Delete("/catalog/products/{product_id}", m.Instrument("delete_product", cfg.Catalog.DeleteProduct))
		}

		r.Group(func(r chi.Router) {
			r.Use(CustomerMiddleware)
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", m.Instrument("get_cart", cfg.Carts.GetCart))
				r.Put("/", m.Instrument("update_cart", cfg.Carts.UpdateCart))
				r.Post("/items", m.Instrument("add_item", cfg.Carts.AddItem))
				r.Post("/order", m.Instrument("order", cfg.Checkout.Order))
			})
			if cfg.Customers != nil {
				r.Route("/customer", func(r chi.Router) {
					r.Post("/", m.Instrument("register_customer", cfg.Customers.Register))
					r.Get("/balance", m.Instrument("get_balance", cfg.Customers.GetBalance))
					r.Post("/balance", m.Instrument("change_balance", cfg.Customers.ChangeBalance))
				})
			}
		})
	})

	return otelhttp.NewHandler(r, "cart-service")
}
