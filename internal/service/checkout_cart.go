package service

import (
	"context"
	"fmt"

	"github.com/fjod/go_cart/internal/domain"
)

// clearOrdered removes the ordered quantities from the stored cart. The cart
// is read again so lines added while the checkout ran are kept.
func (s *CheckoutService) clearOrdered(ctx context.Context, customerID int64, items []domain.OrderedItem) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cart, err := s.store.Get(ctx, customerID)
	if err != nil {
		return fmt.Errorf("failed to load cart: %w", err)
	}

	ordered := make(map[[2]int64]int, len(items))
	for _, item := range items {
		ordered[[2]int64{item.ProductID, item.ItemID}] += item.Quantity
	}
	for i := range cart.Lines {
		line := &cart.Lines[i]
		for j := range line.Items {
			key := [2]int64{line.ID, line.Items[j].ID}
			line.Items[j].Count -= ordered[key]
		}
	}
	cart.Prune()
	cart.CustomerID = customerID

	if err := s.store.Put(ctx, customerID, cart); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}
