package repository

import (
	"context"

	"github.com/fjod/go_cart/internal/domain"
)

// CartRepository is the durable cart storage.
type CartRepository interface {
	GetCart(ctx context.Context, customerID int64) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, customerID int64) error
}
