package notify

import (
	"context"
	"log/slog"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/fjod/go_cart/pkg/circuitbreaker"
)

// BreakerNotifier stops calling a failing notifier for a while so checkouts
// do not wait on it.
type BreakerNotifier struct {
	next    Notifier
	breaker *circuitbreaker.Breaker[struct{}]
}

func NewBreakerNotifier(next Notifier, cfg circuitbreaker.Config, log *slog.Logger) *BreakerNotifier {
	return &BreakerNotifier{
		next:    next,
		breaker: circuitbreaker.New[struct{}](cfg, log),
	}
}

func (n *BreakerNotifier) Send(ctx context.Context, email string, summary domain.OrderSummary) error {
	_, err := n.breaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, n.next.Send(ctx, email, summary)
	})
	return err
}
