package service

import (
	"context"
	"log/slog"

	"github.com/fjod/go_cart/internal/domain"
)

// sendConfirmation delivers the order summary. Delivery failures are logged
// and counted but never fail the checkout.
func (s *CheckoutService) sendConfirmation(ctx context.Context, customerID int64, email string, res *CheckoutResult) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	summary := domain.OrderSummary{
		CheckoutID:  res.CheckoutID,
		CustomerID:  customerID,
		Items:       res.Items,
		TotalAmount: res.Total,
		OrderedAt:   s.now(),
	}
	if err := s.notifier.Send(ctx, email, summary); err != nil {
		s.metrics.NotificationFailed()
		s.log.WarnContext(ctx, "failed to send order confirmation",
			slog.String("checkout_id", res.CheckoutID.String()),
			slog.Int64("customer_id", customerID),
			slog.String("error", err.Error()))
		return false
	}
	return true
}
