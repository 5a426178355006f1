// Package reconcile corrects a cached cart against the live catalog.
//
// Reconcile performs no I/O and never mutates its arguments, so the same
// (cart, catalog) pair always produces the same corrected cart and changes.
package reconcile

import "github.com/fjod/go_cart/internal/domain"

// Reconcile returns a corrected copy of cart and the changes it applied, in
// cart line order. Changes already pending on the cart are kept ahead of the
// new ones on the returned cart; the second return value holds only the new
// ones.
func Reconcile(cart *domain.Cart, products []domain.CatalogProduct) (*domain.Cart, []domain.Change) {
	live := make(map[int64]domain.CatalogProduct, len(products))
	for _, p := range products {
		live[p.ID] = p
	}

	out := &domain.Cart{CustomerID: cart.CustomerID}
	lines := make([]domain.CartLine, 0, len(cart.Lines))
	var changes []domain.Change

	for _, line := range cart.Lines {
		product, ok := live[line.ID]
		if !ok {
			changes = append(changes, domain.Change{
				Kind:        domain.ChangeProductRemoved,
				ProductID:   line.ID,
				ProductName: line.Name,
			})
			continue
		}

		kept, itemChanges := reconcileItems(line.Items, product)

		if len(kept) == 0 && len(product.Items) == 0 {
			changes = append(changes, domain.Change{
				Kind:        domain.ChangeProductUnavailable,
				ProductID:   line.ID,
				ProductName: line.Name,
			})
			continue
		}
		if len(itemChanges) > 0 {
			changes = append(changes, domain.Change{
				Kind:        domain.ChangeItemsChanged,
				ProductID:   line.ID,
				ProductName: line.Name,
				Items:       itemChanges,
			})
		}
		if len(kept) == 0 {
			continue
		}
		lines = append(lines, domain.CartLine{ID: line.ID, Name: line.Name, Items: kept})
	}

	out.Lines = lines
	if len(cart.Changes)+len(changes) > 0 {
		out.Changes = make([]domain.Change, 0, len(cart.Changes)+len(changes))
		out.Changes = append(out.Changes, cart.Clone().Changes...)
		out.Changes = append(out.Changes, changes...)
	}
	return out, changes
}

func reconcileItems(items []domain.CartItemLine, product domain.CatalogProduct) ([]domain.CartItemLine, []domain.ItemChange) {
	kept := make([]domain.CartItemLine, 0, len(items))
	var changes []domain.ItemChange

	for _, item := range items {
		liveItem, ok := product.Item(item.ID)
		if !ok {
			changes = append(changes, domain.ItemChange{
				Kind:     domain.ItemRemoved,
				ItemID:   item.ID,
				ItemName: item.Name,
				OldPrice: item.Price,
				OldCount: item.Count,
			})
			continue
		}

		next := item
		priceChanged := item.Price != liveItem.Price
		if priceChanged {
			next.Price = liveItem.Price
		}
		countClamped := item.Count > liveItem.Count
		if countClamped {
			next.Count = max(liveItem.Count, 0)
		}

		if kind, changed := outcome(priceChanged, countClamped); changed {
			changes = append(changes, domain.ItemChange{
				Kind:     kind,
				ItemID:   item.ID,
				ItemName: item.Name,
				OldPrice: item.Price,
				NewPrice: next.Price,
				OldCount: item.Count,
				NewCount: next.Count,
			})
		}

		// clamped to nothing: keep the change, drop the line
		if next.Count <= 0 {
			continue
		}
		kept = append(kept, next)
	}
	return kept, changes
}

func outcome(priceChanged, countClamped bool) (domain.ItemChangeKind, bool) {
	switch {
	case priceChanged && countClamped:
		return domain.ItemPriceChangedAndClamped, true
	case priceChanged:
		return domain.ItemPriceChanged, true
	case countClamped:
		return domain.ItemCountClamped, true
	}
	return "", false
}
