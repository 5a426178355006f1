// Package inventory holds an in-memory catalog used for local runs and tests.
package inventory

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/fjod/go_cart/internal/domain"
)

var ErrInvalidQuantity = errors.New("decrement quantity must be positive")

// MemoryStore implements the catalog reader and the stock ledger in memory.
// All reads return copies.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[int64]*domain.CatalogProduct // productID -> product
	items    map[int64]int64                  // itemID -> productID
}

func NewMemoryStore(products ...domain.CatalogProduct) *MemoryStore {
	s := &MemoryStore{
		products: make(map[int64]*domain.CatalogProduct),
		items:    make(map[int64]int64),
	}
	for _, p := range products {
		s.setLocked(p)
	}
	return s
}

// SaveProduct creates or replaces a product and its items.
func (s *MemoryStore) SaveProduct(_ context.Context, product domain.CatalogProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setLocked(product)
	return nil
}

func (s *MemoryStore) setLocked(product domain.CatalogProduct) {
	s.removeLocked(product.ID)
	p := copyProduct(product)
	for i := range p.Items {
		p.Items[i].ProductID = p.ID
		s.items[p.Items[i].ID] = p.ID
	}
	s.products[p.ID] = &p
}

func (s *MemoryStore) DeleteProduct(_ context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[productID]; !ok {
		return domain.ErrProductNotFound
	}
	s.removeLocked(productID)
	return nil
}

func (s *MemoryStore) removeLocked(productID int64) {
	p, ok := s.products[productID]
	if !ok {
		return
	}
	for _, item := range p.Items {
		delete(s.items, item.ID)
	}
	delete(s.products, productID)
}

func (s *MemoryStore) GetProduct(_ context.Context, id int64) (*domain.CatalogProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	out := copyProduct(*p)
	return &out, nil
}

// GetProducts returns the known products among ids, in the order of ids.
func (s *MemoryStore) GetProducts(_ context.Context, ids []int64) ([]domain.CatalogProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.CatalogProduct, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := s.products[id]; ok {
			result = append(result, copyProduct(*p))
		}
	}
	return result, nil
}

// SearchByName returns the products whose name contains name, ignoring case,
// ordered by id.
func (s *MemoryStore) SearchByName(_ context.Context, name string) ([]domain.CatalogProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(name)
	var result []domain.CatalogProduct
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			result = append(result, copyProduct(*p))
		}
	}
	slices.SortFunc(result, func(a, b domain.CatalogProduct) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result, nil
}

func (s *MemoryStore) GetItem(_ context.Context, itemID int64) (*domain.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item := s.itemLocked(itemID)
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	out := *item
	return &out, nil
}

// Decrement takes qty out of the item's stock. A decrement larger than the
// stock fails with domain.ErrInsufficientStock and changes nothing.
func (s *MemoryStore) Decrement(_ context.Context, itemID int64, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.itemLocked(itemID)
	if item == nil {
		return 0, domain.ErrItemNotFound
	}
	if item.Count < qty {
		return item.Count, domain.ErrInsufficientStock
	}
	item.Count -= qty
	return item.Count, nil
}

func (s *MemoryStore) itemLocked(itemID int64) *domain.CatalogItem {
	productID, ok := s.items[itemID]
	if !ok {
		return nil
	}
	p := s.products[productID]
	for i := range p.Items {
		if p.Items[i].ID == itemID {
			return &p.Items[i]
		}
	}
	return nil
}

func copyProduct(p domain.CatalogProduct) domain.CatalogProduct {
	out := p
	if p.Items != nil {
		out.Items = append([]domain.CatalogItem(nil), p.Items...)
	}
	return out
}
