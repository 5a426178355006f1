package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/internal/domain"
)

// CartCache is a read-through copy of stored carts keyed by customer.
type CartCache interface {
	Get(ctx context.Context, customerID int64) (*domain.Cart, error)
	Set(ctx context.Context, customerID int64, cart *domain.Cart) error
	Delete(ctx context.Context, customerID int64) error
}

var ErrCacheMiss = errors.New("cache miss")
