package service

import (
	"context"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/google/uuid"
)

// CatalogReader reads live product state. GetProducts silently omits ids it
// does not know.
type CatalogReader interface {
	GetProduct(ctx context.Context, id int64) (*domain.CatalogProduct, error)
	GetProducts(ctx context.Context, ids []int64) ([]domain.CatalogProduct, error)
}

// CartStore owns the durable copy of every cart. Get returns an empty cart
// when the customer has none.
type CartStore interface {
	Get(ctx context.Context, customerID int64) (*domain.Cart, error)
	Put(ctx context.Context, customerID int64, cart *domain.Cart) error
}

type BalanceLedger interface {
	GetBalance(ctx context.Context, customerID int64) (int64, error)
	Debit(ctx context.Context, customerID int64, amount int64, memo domain.BalanceMemo) (int64, error)
	DebitApplied(ctx context.Context, customerID int64, reference string) (bool, error)
	Email(ctx context.Context, customerID int64) (string, error)
}

type StockLedger interface {
	GetItem(ctx context.Context, itemID int64) (*domain.CatalogItem, error)
	Decrement(ctx context.Context, itemID int64, qty int) (int, error)
}

type Notifier interface {
	Send(ctx context.Context, email string, summary domain.OrderSummary) error
}

// CheckoutJournal keeps the operator-visible record of checkouts that reached
// the balance check.
type CheckoutJournal interface {
	Create(ctx context.Context, session *domain.CheckoutSession) error
	Transition(ctx context.Context, id uuid.UUID, status domain.CheckoutStatus) error
	RecordIncident(ctx context.Context, id uuid.UUID, status domain.CheckoutStatus, detail string) error
}
