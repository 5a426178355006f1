// Package catalog is the SQLite-backed product catalog. It serves live
// product reads to the cart and acts as the stock ledger at checkout.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"
)

var ErrInvalidQuantity = errors.New("decrement quantity must be positive")

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*domain.CatalogProduct, error) {
	products, err := r.GetProducts(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, domain.ErrProductNotFound
	}
	return &products[0], nil
}

// GetProducts returns the known products among ids, in the order of ids.
// Unknown ids are skipped.
func (r *Repository) GetProducts(ctx context.Context, ids []int64) ([]domain.CatalogProduct, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := `
		SELECT p.id, p.name, i.id, i.name, i.price, i.count
		FROM products p
		LEFT JOIN items i ON i.product_id = p.id
		WHERE p.id IN (` + placeholders + `)
		ORDER BY p.id, i.id
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	_, found, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}

	products := make([]domain.CatalogProduct, 0, len(found))
	for _, id := range ids {
		if p, ok := found[id]; ok {
			products = append(products, *p)
			delete(found, id)
		}
	}
	return products, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchByName returns the products whose name contains name, ignoring ASCII
// case, ordered by id.
func (r *Repository) SearchByName(ctx context.Context, name string) ([]domain.CatalogProduct, error) {
	query := `
		SELECT p.id, p.name, i.id, i.name, i.price, i.count
		FROM products p
		LEFT JOIN items i ON i.product_id = p.id
		WHERE p.name LIKE '%' || ? || '%' ESCAPE '\'
		ORDER BY p.id, i.id
	`

	rows, err := r.db.QueryContext(ctx, query, likeEscaper.Replace(name))
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	order, found, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}

	products := make([]domain.CatalogProduct, 0, len(order))
	for _, id := range order {
		products = append(products, *found[id])
	}
	return products, nil
}

// scanProducts groups product rows joined with their items. order lists
// product ids as they first appear.
func scanProducts(rows *sql.Rows) (order []int64, found map[int64]*domain.CatalogProduct, err error) {
	found = make(map[int64]*domain.CatalogProduct)
	for rows.Next() {
		var (
			productID   int64
			productName string
			itemID      sql.NullInt64
			itemName    sql.NullString
			price       sql.NullInt64
			count       sql.NullInt64
		)
		if err := rows.Scan(&productID, &productName, &itemID, &itemName, &price, &count); err != nil {
			return nil, nil, fmt.Errorf("failed to scan product: %w", err)
		}

		p, ok := found[productID]
		if !ok {
			p = &domain.CatalogProduct{ID: productID, Name: productName}
			found[productID] = p
			order = append(order, productID)
		}
		if itemID.Valid {
			p.Items = append(p.Items, domain.CatalogItem{
				ID:        itemID.Int64,
				ProductID: productID,
				Name:      itemName.String,
				Price:     price.Int64,
				Count:     int(count.Int64),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("row iteration error: %w", err)
	}
	return order, found, nil
}

func (r *Repository) GetItem(ctx context.Context, itemID int64) (*domain.CatalogItem, error) {
	query := `SELECT id, product_id, name, price, count FROM items WHERE id = ?`

	var item domain.CatalogItem
	err := r.db.QueryRowContext(ctx, query, itemID).Scan(&item.ID, &item.ProductID, &item.Name, &item.Price, &item.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item %d: %w", itemID, err)
	}
	return &item, nil
}

// Decrement takes qty out of the item's stock and returns what is left.
// Stock never goes negative: a decrement larger than the stock fails with
// domain.ErrInsufficientStock and changes nothing.
func (r *Repository) Decrement(ctx context.Context, itemID int64, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}

	query := `UPDATE items SET count = count - ? WHERE id = ? AND count >= ? RETURNING count`

	var left int
	err := r.db.QueryRowContext(ctx, query, qty, itemID, qty).Scan(&left)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetItem(ctx, itemID); getErr != nil {
			return 0, getErr
		}
		return 0, domain.ErrInsufficientStock
	}
	if err != nil {
		return 0, fmt.Errorf("failed to decrement item %d: %w", itemID, err)
	}
	return left, nil
}

// SaveProduct creates or replaces a product together with its items.
func (r *Repository) SaveProduct(ctx context.Context, product domain.CatalogProduct) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO products (id, name) VALUES (?, ?) ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
		product.ID, product.Name); err != nil {
		return fmt.Errorf("failed to save product %d: %w", product.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE product_id = ?`, product.ID); err != nil {
		return fmt.Errorf("failed to clear items of product %d: %w", product.ID, err)
	}
	for _, item := range product.Items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO items (id, product_id, name, price, count) VALUES (?, ?, ?, ?, ?)`,
			item.ID, product.ID, item.Name, item.Price, item.Count); err != nil {
			return fmt.Errorf("failed to save item %d: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit product %d: %w", product.ID, err)
	}
	return nil
}

func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
