package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrCartNotFound = errors.New("cart not found")

// cartDocument is the stored form of a cart. UpdatedAt drives the TTL index.
type cartDocument struct {
	CustomerID int64             `bson:"customer_id"`
	Lines      []domain.CartLine `bson:"products"`
	Changes    []domain.Change   `bson:"changes,omitempty"`
	UpdatedAt  time.Time         `bson:"updated_at"`
}

// MongoRepository keeps one document per customer in the "carts" collection.
type MongoRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
		now:        time.Now,
	}
}

func (m *MongoRepository) GetCart(ctx context.Context, customerID int64) (*domain.Cart, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, bson.M{"customer_id": customerID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &domain.Cart{
		CustomerID: doc.CustomerID,
		Lines:      doc.Lines,
		Changes:    doc.Changes,
	}, nil
}

// UpsertCart replaces the whole stored cart, creating it if missing.
func (m *MongoRepository) UpsertCart(ctx context.Context, cart *domain.Cart) error {
	doc := cartDocument{
		CustomerID: cart.CustomerID,
		Lines:      cart.Lines,
		Changes:    cart.Changes,
		UpdatedAt:  m.now(),
	}
	if doc.Lines == nil {
		doc.Lines = []domain.CartLine{}
	}

	filter := bson.M{"customer_id": cart.CustomerID}
	opts := options.Replace().SetUpsert(true)
	if _, err := m.collection.ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *MongoRepository) DeleteCart(ctx context.Context, customerID int64) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"customer_id": customerID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "customer_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
