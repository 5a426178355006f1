package service

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/google/uuid"
)

// mockCatalog implements CatalogReader and StockLedger over a product map.
type mockCatalog struct {
	m        sync.Mutex
	products map[int64]domain.CatalogProduct
	err      error
	// decrementErr fails Decrement for the listed item ids.
	decrementErr map[int64]error
	decremented  map[int64]int
}

func newMockCatalog(products ...domain.CatalogProduct) *mockCatalog {
	c := &mockCatalog{
		products:     make(map[int64]domain.CatalogProduct),
		decrementErr: make(map[int64]error),
		decremented:  make(map[int64]int),
	}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (m *mockCatalog) GetProduct(_ context.Context, id int64) (*domain.CatalogProduct, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (m *mockCatalog) GetProducts(_ context.Context, ids []int64) ([]domain.CatalogProduct, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.CatalogProduct
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockCatalog) GetItem(_ context.Context, itemID int64) (*domain.CatalogItem, error) {
	m.m.Lock()
	defer m.m.Unlock()
	for _, p := range m.products {
		if item, ok := p.Item(itemID); ok {
			return &item, nil
		}
	}
	return nil, domain.ErrItemNotFound
}

func (m *mockCatalog) Decrement(ctx context.Context, itemID int64, qty int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.m.Lock()
	defer m.m.Unlock()
	if err := m.decrementErr[itemID]; err != nil {
		return 0, err
	}
	for id, p := range m.products {
		for i := range p.Items {
			if p.Items[i].ID != itemID {
				continue
			}
			if p.Items[i].Count < qty {
				return p.Items[i].Count, domain.ErrInsufficientStock
			}
			p.Items[i].Count -= qty
			m.products[id] = p
			m.decremented[itemID] += qty
			return p.Items[i].Count, nil
		}
	}
	return 0, domain.ErrItemNotFound
}

func (m *mockCatalog) setCount(itemID int64, count int) {
	m.m.Lock()
	defer m.m.Unlock()
	for id, p := range m.products {
		for i := range p.Items {
			if p.Items[i].ID == itemID {
				p.Items[i].Count = count
				m.products[id] = p
			}
		}
	}
}

// mockCartStore keeps clones so tests observe exactly what was stored.
type mockCartStore struct {
	m      sync.Mutex
	carts  map[int64]*domain.Cart
	puts   []*domain.Cart
	getErr error
	putErr error
	// onGet runs before every Get, to simulate concurrent edits.
	onGet func(s *mockCartStore)
}

func newMockCartStore() *mockCartStore {
	return &mockCartStore{carts: make(map[int64]*domain.Cart)}
}

func (m *mockCartStore) Get(_ context.Context, customerID int64) (*domain.Cart, error) {
	if m.onGet != nil {
		m.onGet(m)
	}
	m.m.Lock()
	defer m.m.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if c, ok := m.carts[customerID]; ok {
		return c.Clone(), nil
	}
	return domain.NewCart(customerID), nil
}

func (m *mockCartStore) Put(ctx context.Context, customerID int64, cart *domain.Cart) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.m.Lock()
	defer m.m.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.carts[customerID] = cart.Clone()
	m.puts = append(m.puts, cart.Clone())
	return nil
}

func (m *mockCartStore) set(cart *domain.Cart) {
	m.m.Lock()
	defer m.m.Unlock()
	m.carts[cart.CustomerID] = cart.Clone()
}

func (m *mockCartStore) stored(customerID int64) *domain.Cart {
	m.m.Lock()
	defer m.m.Unlock()
	return m.carts[customerID].Clone()
}

type debitCall struct {
	CustomerID int64
	Amount     int64
	Memo       domain.BalanceMemo
}

type mockBalance struct {
	balances map[int64]int64
	emails   map[int64]string
	debits   []debitCall
	debitErr error
	getErr   error
	// lostReply applies the debit and still returns this error, as when the
	// commit succeeds but the reply never reaches the caller.
	lostReply  error
	appliedErr error
	// onDebit runs after a successful debit.
	onDebit func()
}

func (m *mockBalance) GetBalance(_ context.Context, customerID int64) (int64, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	b, ok := m.balances[customerID]
	if !ok {
		return 0, domain.ErrCustomerNotFound
	}
	return b, nil
}

func (m *mockBalance) Debit(_ context.Context, customerID int64, amount int64, memo domain.BalanceMemo) (int64, error) {
	if m.debitErr != nil {
		return 0, m.debitErr
	}
	if m.balances[customerID] < amount {
		return m.balances[customerID], domain.ErrInsufficientFunds
	}
	m.balances[customerID] -= amount
	m.debits = append(m.debits, debitCall{CustomerID: customerID, Amount: amount, Memo: memo})
	if m.lostReply != nil {
		return 0, m.lostReply
	}
	if m.onDebit != nil {
		m.onDebit()
	}
	return m.balances[customerID], nil
}

func (m *mockBalance) DebitApplied(_ context.Context, customerID int64, reference string) (bool, error) {
	if m.appliedErr != nil {
		return false, m.appliedErr
	}
	for _, d := range m.debits {
		if d.CustomerID == customerID && d.Memo.Reference == reference {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockBalance) Email(_ context.Context, customerID int64) (string, error) {
	e, ok := m.emails[customerID]
	if !ok {
		return "", domain.ErrCustomerNotFound
	}
	return e, nil
}

type sentMail struct {
	Email   string
	Summary domain.OrderSummary
}

type mockNotifier struct {
	sent []sentMail
	err  error
}

func (m *mockNotifier) Send(ctx context.Context, email string, summary domain.OrderSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{Email: email, Summary: summary})
	return nil
}

type mockJournal struct {
	m         sync.Mutex
	created   []*domain.CheckoutSession
	statuses  []domain.CheckoutStatus
	incidents []string
	createErr error
}

func (m *mockJournal) Create(_ context.Context, session *domain.CheckoutSession) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, session)
	m.statuses = append(m.statuses, session.Status)
	return nil
}

func (m *mockJournal) Transition(ctx context.Context, _ uuid.UUID, status domain.CheckoutStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.m.Lock()
	defer m.m.Unlock()
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *mockJournal) RecordIncident(_ context.Context, _ uuid.UUID, status domain.CheckoutStatus, detail string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.statuses = append(m.statuses, status)
	m.incidents = append(m.incidents, detail)
	return nil
}

var errBoom = errors.New("boom")
