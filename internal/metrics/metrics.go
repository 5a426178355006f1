package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gocart"

// Checkout counts checkout outcomes. A nil *Checkout records nothing.
type Checkout struct {
	Outcomes             *prometheus.CounterVec
	DurationMS           *prometheus.HistogramVec
	NotificationFailures prometheus.Counter
	StockFailures        prometheus.Counter
}

func NewCheckout(reg prometheus.Registerer) *Checkout {
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "outcomes_total",
		Help:      "Checkout attempts by final status and failure reason.",
	}, []string{"status", "reason"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "duration_ms",
		Help:      "Checkout latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"status"})
	notify := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "notification_failures_total",
		Help:      "Order confirmations that could not be delivered.",
	})
	stock := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "stock_decrement_failures_total",
		Help:      "Stock decrements that failed after the balance was debited.",
	})

	reg.MustRegister(outcomes, duration, notify, stock)
	return &Checkout{Outcomes: outcomes, DurationMS: duration, NotificationFailures: notify, StockFailures: stock}
}

func (m *Checkout) Observe(status domain.CheckoutStatus, reason domain.FailureReason, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(status.String(), string(reason)).Inc()
	m.DurationMS.WithLabelValues(status.String()).Observe(float64(elapsed.Milliseconds()))
}

func (m *Checkout) NotificationFailed() {
	if m == nil {
		return
	}
	m.NotificationFailures.Inc()
}

func (m *Checkout) StockDecrementFailed() {
	if m == nil {
		return
	}
	m.StockFailures.Inc()
}

// Cart counts reconciliation changes. A nil *Cart records nothing.
type Cart struct {
	Changes *prometheus.CounterVec
}

func NewCart(reg prometheus.Registerer) *Cart {
	changes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cart",
		Name:      "reconciliation_changes_total",
		Help:      "Cart lines corrected against the live catalog, by change kind.",
	}, []string{"kind"})

	reg.MustRegister(changes)
	return &Cart{Changes: changes}
}

func (m *Cart) ObserveChanges(changes []domain.Change) {
	if m == nil {
		return
	}
	for _, ch := range changes {
		m.Changes.WithLabelValues(string(ch.Kind)).Inc()
	}
}

type Server struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServer(reg prometheus.Registerer) *Server {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	reg.MustRegister(requests, latency)
	return &Server{Requests: requests, LatencyMS: latency}
}

// Instrument records count and latency for every request served by next.
func (m *Server) Instrument(handler string, next http.HandlerFunc) http.HandlerFunc {
	if m == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		m.Requests.WithLabelValues(handler, strconv.Itoa(rec.status)).Inc()
		m.LatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
