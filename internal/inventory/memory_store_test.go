package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *MemoryStore {
	t.Helper()
	return NewMemoryStore(
		domain.CatalogProduct{ID: 1, Name: "Mug", Items: []domain.CatalogItem{
			{ID: 11, Name: "White", Price: 1000, Count: 100},
			{ID: 12, Name: "Black", Price: 1200, Count: 5},
		}},
		domain.CatalogProduct{ID: 2, Name: "Lamp", Items: []domain.CatalogItem{
			{ID: 21, Name: "Brass", Price: 5000, Count: 2},
		}},
	)
}

func TestMemoryStore_GetProducts(t *testing.T) {
	store := setupStore(t)

	products, err := store.GetProducts(context.Background(), []int64{2, 3, 1, 2})
	require.NoError(t, err)

	// Should return only existing products, once each, in request order
	require.Len(t, products, 2)
	assert.Equal(t, int64(2), products[0].ID)
	assert.Equal(t, int64(1), products[1].ID)
	assert.Equal(t, int64(1), products[1].Items[0].ProductID)
}

func TestMemoryStore_GetProduct_NotFound(t *testing.T) {
	store := setupStore(t)

	_, err := store.GetProduct(context.Background(), 999)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestMemoryStore_ReadsAreCopies(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	p, err := store.GetProduct(ctx, 1)
	require.NoError(t, err)
	p.Items[0].Count = 0

	item, err := store.GetItem(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, 100, item.Count)
}

func TestMemoryStore_Decrement(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	left, err := store.Decrement(ctx, 12, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, left)

	_, err = store.Decrement(ctx, 12, 3)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// Stock should be unchanged
	item, _ := store.GetItem(ctx, 12)
	assert.Equal(t, 2, item.Count)

	_, err = store.Decrement(ctx, 999, 1)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	_, err = store.Decrement(ctx, 12, -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestMemoryStore_ConcurrentDecrements(t *testing.T) {
	store := setupStore(t)

	var wg sync.WaitGroup
	successCount := 0
	var mu sync.Mutex

	// Try to take 20 units each, 10 times concurrently
	// Only 5 should succeed (100 / 20 = 5)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Decrement(context.Background(), 11, 20); err == nil {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 5, successCount)

	item, _ := store.GetItem(context.Background(), 11)
	assert.Equal(t, 0, item.Count)
}

func TestMemoryStore_SaveProduct_ReplacesItems(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveProduct(ctx, domain.CatalogProduct{ID: 1, Name: "Mug", Items: []domain.CatalogItem{{ID: 13, Name: "Red", Price: 900, Count: 1}}}))

	_, err := store.GetItem(ctx, 11)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
	item, err := store.GetItem(ctx, 13)
	require.NoError(t, err)
	assert.Equal(t, int64(1), item.ProductID)
}

func TestMemoryStore_DeleteProduct(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.DeleteProduct(ctx, 2))
	_, err := store.GetItem(ctx, 21)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
	assert.ErrorIs(t, store.DeleteProduct(ctx, 2), domain.ErrProductNotFound)
}

func TestMemoryStore_SearchByName(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	products, err := store.SearchByName(ctx, "LAM")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(2), products[0].ID)

	products, err = store.SearchByName(ctx, "")
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(1), products[0].ID)
	assert.Equal(t, int64(2), products[1].ID)

	products, err = store.SearchByName(ctx, "chair")
	require.NoError(t, err)
	assert.Empty(t, products)
}
