package journal

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/fjod/go_cart/pkg/logger"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listerMock struct {
	mu       sync.Mutex
	sessions []*domain.CheckoutSession
	err      error
	calls    int
	status   domain.CheckoutStatus
}

func (l *listerMock) ListByStatus(_ context.Context, status domain.CheckoutStatus) ([]*domain.CheckoutSession, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	l.status = status
	return l.sessions, l.err
}

func (l *listerMock) set(sessions ...*domain.CheckoutSession) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions = sessions
}

func incident(customerID int64) *domain.CheckoutSession {
	return &domain.CheckoutSession{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     domain.CheckoutStatusReconciliationRequired,
		Incident:   "decrement stock (item 11): insufficient stock",
	}
}

func TestMonitor_ReportsEachIncidentOnce(t *testing.T) {
	var buf bytes.Buffer
	lister := &listerMock{}
	m := NewMonitor(lister, time.Minute, prometheus.NewRegistry(), logger.New("test", slog.LevelInfo, &buf))

	first := incident(1)
	lister.set(first)
	m.check(context.Background())
	m.check(context.Background())

	assert.Equal(t, domain.CheckoutStatusReconciliationRequired, lister.status)
	assert.Equal(t, 1, strings.Count(buf.String(), first.ID.String()))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.open))

	second := incident(2)
	lister.set(first, second)
	m.check(context.Background())

	assert.Equal(t, 1, strings.Count(buf.String(), first.ID.String()))
	assert.Equal(t, 1, strings.Count(buf.String(), second.ID.String()))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.open))

	lister.set()
	m.check(context.Background())
	assert.Equal(t, float64(0), testutil.ToFloat64(m.open))
}

func TestMonitor_ListErrorKeepsGauge(t *testing.T) {
	lister := &listerMock{sessions: []*domain.CheckoutSession{incident(1)}}
	m := NewMonitor(lister, time.Minute, prometheus.NewRegistry(), logger.Nop())

	m.check(context.Background())
	lister.err = errors.New("connection refused")
	m.check(context.Background())

	assert.Equal(t, float64(1), testutil.ToFloat64(m.open))
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	lister := &listerMock{}
	m := NewMonitor(lister, 10*time.Millisecond, prometheus.NewRegistry(), logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		lister.mu.Lock()
		defer lister.mu.Unlock()
		return lister.calls >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
