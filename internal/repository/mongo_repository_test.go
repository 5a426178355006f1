package repository

import (
	"context"
	"testing"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupTestDB(t *testing.T) *MongoRepository {
	if testing.Short() {
		t.Skip("skipping MongoDB container test in short mode")
	}
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	repo := NewMongoRepository(db)
	require.NoError(t, repo.CreateIndexes(ctx))
	return repo
}

func sampleCart(customerID int64) *domain.Cart {
	return &domain.Cart{
		CustomerID: customerID,
		Lines: []domain.CartLine{{
			ID:    1,
			Name:  "Mug",
			Items: []domain.CartItemLine{{ID: 11, Name: "White", Price: 1000, Count: 2}},
		}},
	}
}

func TestGetCart_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	cart, err := repo.GetCart(context.Background(), 404)
	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, cart)
}

func TestUpsertCart_CreatesAndReplaces(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertCart(ctx, sampleCart(7)))

	cart, err := repo.GetCart(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, sampleCart(7).Lines, cart.Lines)

	next := sampleCart(7)
	next.Lines[0].Items[0].Count = 5
	next.Changes = []domain.Change{{
		Kind:        domain.ChangeItemsChanged,
		ProductID:   1,
		ProductName: "Mug",
		Items:       []domain.ItemChange{{Kind: domain.ItemPriceChanged, ItemID: 11, ItemName: "White", OldPrice: 900, NewPrice: 1000}},
	}}
	require.NoError(t, repo.UpsertCart(ctx, next))

	cart, err = repo.GetCart(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 5, cart.Lines[0].Items[0].Count)
	assert.Equal(t, next.Changes, cart.Changes)
}

func TestUpsertCart_EmptyCart(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertCart(ctx, sampleCart(8)))
	require.NoError(t, repo.UpsertCart(ctx, domain.NewCart(8)))

	cart, err := repo.GetCart(ctx, 8)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	assert.Empty(t, cart.Changes)
}

func TestDeleteCart(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertCart(ctx, sampleCart(9)))
	require.NoError(t, repo.DeleteCart(ctx, 9))

	_, err := repo.GetCart(ctx, 9)
	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.ErrorIs(t, repo.DeleteCart(ctx, 9), ErrCartNotFound)
}
