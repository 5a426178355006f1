package notify

import (
	"context"
	"log/slog"

	"github.com/fjod/go_cart/internal/domain"
)

// LogNotifier writes confirmations to the log. Used when no broker is
// configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, email string, summary domain.OrderSummary) error {
	msg := Render(email, summary)
	n.log.InfoContext(ctx, "order confirmation",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("checkout_id", summary.CheckoutID.String()),
		slog.String("body", msg.Body))
	return nil
}
