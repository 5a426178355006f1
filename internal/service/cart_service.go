package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/fjod/go_cart/internal/metrics"
	"github.com/fjod/go_cart/internal/reconcile"
)

// AddItemForm is a request to put items of one product into the cart.
type AddItemForm struct {
	ProductID int64                 `json:"id"`
	Name      string                `json:"name"`
	Items     []domain.CartItemLine `json:"items"`
}

type CartService struct {
	catalog CatalogReader
	carts   CartStore
	metrics *metrics.Cart
	log     *slog.Logger
}

func NewCartService(catalog CatalogReader, carts CartStore, m *metrics.Cart, log *slog.Logger) *CartService {
	return &CartService{
		catalog: catalog,
		carts:   carts,
		metrics: m,
		log:     log,
	}
}

// AddItem merges the requested items into the customer's cart. Nothing is
// added unless every requested item fits in the live stock together with what
// the cart already holds.
func (s *CartService) AddItem(ctx context.Context, customerID int64, form AddItemForm) (*domain.Cart, error) {
	if len(form.Items) == 0 {
		return nil, ErrInvalidQuantity
	}
	for _, item := range form.Items {
		if item.Count <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	product, err := s.catalog.GetProduct(ctx, form.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product %d: %w", form.ProductID, err)
	}

	cart, err := s.carts.Get(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	if !addable(cart, product, form) {
		s.log.InfoContext(ctx, "add item rejected: insufficient stock",
			slog.Int64("customer_id", customerID), slog.Int64("product_id", form.ProductID))
		return nil, ErrInsufficientStock
	}

	merge(cart, form)
	cart.CustomerID = customerID
	if err := s.carts.Put(ctx, customerID, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// GetCart reconciles the stored cart and returns it with the changes found.
// The changes are stored once so a failure before delivery does not lose
// them, then cleared so the next read reports only newer changes.
func (s *CartService) GetCart(ctx context.Context, customerID int64) (*domain.Cart, error) {
	cart, err := s.carts.Get(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	refreshed, err := s.RefreshCart(ctx, cart)
	if err != nil {
		return nil, err
	}
	refreshed.CustomerID = customerID
	if err := s.carts.Put(ctx, customerID, refreshed); err != nil {
		return nil, fmt.Errorf("failed to save reconciled cart: %w", err)
	}

	response := refreshed.Clone()

	refreshed.Changes = nil
	if err := s.carts.Put(ctx, customerID, refreshed); err != nil {
		return nil, fmt.Errorf("failed to clear delivered changes: %w", err)
	}
	return response, nil
}

// UpdateCart replaces the stored cart and returns it reconciled.
func (s *CartService) UpdateCart(ctx context.Context, customerID int64, cart *domain.Cart) (*domain.Cart, error) {
	next := cart.Clone()
	next.CustomerID = customerID
	next.Changes = nil
	next.Prune()

	if err := s.carts.Put(ctx, customerID, next); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return s.GetCart(ctx, customerID)
}

// RefreshCart reconciles cart against freshly read catalog data without
// saving anything.
func (s *CartService) RefreshCart(ctx context.Context, cart *domain.Cart) (*domain.Cart, error) {
	if cart.IsEmpty() {
		return cart.Clone(), nil
	}

	products, err := s.catalog.GetProducts(ctx, cart.ProductIDs())
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	refreshed, changes := reconcile.Reconcile(cart, products)
	if len(changes) > 0 {
		s.metrics.ObserveChanges(changes)
		s.log.InfoContext(ctx, "cart reconciled with changes",
			slog.Int64("customer_id", cart.CustomerID), slog.Int("changes", len(changes)))
	}
	return refreshed, nil
}

func addable(cart *domain.Cart, product *domain.CatalogProduct, form AddItemForm) bool {
	inCart := make(map[int64]int)
	if line, ok := cart.Line(product.ID); ok {
		for _, item := range line.Items {
			inCart[item.ID] += item.Count
		}
	}

	requested := make(map[int64]int, len(form.Items))
	for _, item := range form.Items {
		requested[item.ID] += item.Count
	}

	for _, item := range form.Items {
		available := 0
		if live, ok := product.Item(item.ID); ok {
			available = live.Count
		}
		if requested[item.ID]+inCart[item.ID] > available {
			return false
		}
	}
	return true
}

func merge(cart *domain.Cart, form AddItemForm) {
	idx := -1
	for i := range cart.Lines {
		if cart.Lines[i].ID == form.ProductID {
			idx = i
			break
		}
	}
	if idx < 0 {
		cart.Lines = append(cart.Lines, domain.CartLine{ID: form.ProductID, Name: form.Name})
		idx = len(cart.Lines) - 1
	} else if form.Name != "" {
		cart.Lines[idx].Name = form.Name
	}

	line := &cart.Lines[idx]
	for _, add := range form.Items {
		found := false
		for j := range line.Items {
			if line.Items[j].ID == add.ID {
				line.Items[j].Count += add.Count
				line.Items[j].Name = add.Name
				line.Items[j].Price = add.Price
				found = true
				break
			}
		}
		if !found {
			line.Items = append(line.Items, add)
		}
	}
}
