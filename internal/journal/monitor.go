package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

type sessionLister interface {
	ListByStatus(ctx context.Context, status domain.CheckoutStatus) ([]*domain.CheckoutSession, error)
}

// Monitor polls the journal for paid checkouts that need manual
// reconciliation. Each new incident is logged once and the open count is
// exported as a gauge.
type Monitor struct {
	repo    sessionLister
	tick    time.Duration
	timeout time.Duration
	open    prometheus.Gauge
	log     *slog.Logger
	seen    map[uuid.UUID]struct{}
}

func NewMonitor(repo sessionLister, tick time.Duration, reg prometheus.Registerer, log *slog.Logger) *Monitor {
	open := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gocart",
		Subsystem: "checkout",
		Name:      "open_incidents",
		Help:      "Checkouts waiting for manual reconciliation.",
	})
	reg.MustRegister(open)
	return &Monitor{
		repo:    repo,
		tick:    tick,
		timeout: 5 * time.Second,
		open:    open,
		log:     log,
		seen:    make(map[uuid.UUID]struct{}),
	}
}

func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	m.check(ctx)
	for {
		select {
		case <-ticker.C:
			m.check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	sessions, err := m.repo.ListByStatus(ctx, domain.CheckoutStatusReconciliationRequired)
	if err != nil {
		m.log.ErrorContext(ctx, "failed to list checkout incidents", slog.String("error", err.Error()))
		return
	}
	m.open.Set(float64(len(sessions)))

	current := make(map[uuid.UUID]struct{}, len(sessions))
	for _, s := range sessions {
		current[s.ID] = struct{}{}
		if _, ok := m.seen[s.ID]; ok {
			continue
		}
		m.log.WarnContext(ctx, "checkout awaiting reconciliation",
			slog.String("checkout_id", s.ID.String()),
			slog.Int64("customer_id", s.CustomerID),
			slog.Int64("total", s.TotalAmount),
			slog.String("incident", s.Incident),
			slog.Time("since", s.UpdatedAt))
	}
	// resolved incidents drop out so a reopened one is reported again
	m.seen = current
}
