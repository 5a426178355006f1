package service

import (
	"context"
	"log/slog"

	"github.com/fjod/go_cart/internal/domain"
)

// decrementStock takes every ordered quantity out of stock. Each item is
// independent: a failure is collected and the remaining items still run.
func (s *CheckoutService) decrementStock(ctx context.Context, items []domain.OrderedItem) []StepFailure {
	ctx, span := tracer.Start(ctx, "checkout.decrementStock")
	defer span.End()

	var failures []StepFailure
	for _, item := range items {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		_, err := s.stock.Decrement(callCtx, item.ItemID, item.Quantity)
		cancel()
		if err != nil {
			s.metrics.StockDecrementFailed()
			s.log.ErrorContext(ctx, "failed to decrement stock",
				slog.Int64("item_id", item.ItemID),
				slog.Int("quantity", item.Quantity),
				slog.String("error", err.Error()))
			failures = append(failures, StepFailure{Step: "decrement stock", ItemID: item.ItemID, Err: err})
		}
	}
	return failures
}
