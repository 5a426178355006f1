// Package ledger keeps customer balances in PostgreSQL. Every change to a
// balance is recorded in balance_history together with its memo.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/internal/database"
	"github.com/fjod/go_cart/internal/domain"
	"github.com/lib/pq"
)

const migrationsTable = "ledger_schema_migrations"

var (
	ErrDuplicateCustomer = errors.New("customer already exists")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

// Entry is one row of a customer's balance history.
type Entry struct {
	ID           int64
	CustomerID   int64
	Amount       int64
	BalanceAfter int64
	Memo         domain.BalanceMemo
	CreatedAt    time.Time
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) RunMigrations(dir string) error {
	return database.Migrate(r.db, dir, migrationsTable)
}

func (r *Repository) CreateCustomer(ctx context.Context, customerID int64, email string, balance int64) error {
	query := `INSERT INTO customers (id, email, balance, created_at, updated_at)
	          VALUES ($1, $2, $3, NOW(), NOW())`

	if _, err := r.db.ExecContext(ctx, query, customerID, email, balance); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateCustomer
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (r *Repository) GetBalance(ctx context.Context, customerID int64) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx, `SELECT balance FROM customers WHERE id = $1`, customerID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrCustomerNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return balance, nil
}

func (r *Repository) Email(ctx context.Context, customerID int64) (string, error) {
	var email string
	err := r.db.QueryRowContext(ctx, `SELECT email FROM customers WHERE id = $1`, customerID).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrCustomerNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query email: %w", err)
	}
	return email, nil
}

// Debit takes amount from the balance and returns the new balance. A debit
// that would leave the balance negative fails with domain.ErrInsufficientFunds.
func (r *Repository) Debit(ctx context.Context, customerID int64, amount int64, memo domain.BalanceMemo) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return r.Adjust(ctx, customerID, -amount, memo)
}

// DebitApplied reports whether a debit with the given reference was committed
// for the customer. It settles a Debit call whose outcome is unknown.
func (r *Repository) DebitApplied(ctx context.Context, customerID int64, reference string) (bool, error) {
	var applied bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM balance_history WHERE customer_id = $1 AND reference = $2 AND amount < 0)`,
		customerID, reference).Scan(&applied)
	if err != nil {
		return false, fmt.Errorf("check debit reference: %w", err)
	}
	return applied, nil
}

func (r *Repository) Credit(ctx context.Context, customerID int64, amount int64, memo domain.BalanceMemo) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return r.Adjust(ctx, customerID, amount, memo)
}

// Adjust changes the balance by delta and records it. A memo with a
// Reference is applied at most once: repeating it returns the current
// balance without changing it.
func (r *Repository) Adjust(ctx context.Context, customerID int64, delta int64, memo domain.BalanceMemo) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var balance int64
	err = tx.QueryRowContext(ctx, `SELECT balance FROM customers WHERE id = $1 FOR UPDATE`, customerID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrCustomerNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lock balance: %w", err)
	}

	if memo.Reference != "" {
		var seen bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM balance_history WHERE reference = $1)`, memo.Reference).Scan(&seen)
		if err != nil {
			return 0, fmt.Errorf("check reference: %w", err)
		}
		if seen {
			return balance, nil
		}
	}

	next := balance + delta
	if next < 0 {
		return balance, domain.ErrInsufficientFunds
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE customers SET balance = $1, updated_at = NOW() WHERE id = $2`, next, customerID); err != nil {
		return 0, fmt.Errorf("update balance: %w", err)
	}

	var reference sql.NullString
	if memo.Reference != "" {
		reference = sql.NullString{String: memo.Reference, Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO balance_history (customer_id, amount, balance_after, source, message, reference, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		customerID, delta, next, memo.From, memo.Message, reference); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			// recorded by a concurrent transaction; this one rolls back
			return balance, nil
		}
		return 0, fmt.Errorf("insert balance history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit balance change: %w", err)
	}
	return next, nil
}

// History lists the customer's balance changes, newest first.
func (r *Repository) History(ctx context.Context, customerID int64) ([]Entry, error) {
	query := `SELECT id, customer_id, amount, balance_after, source, message, COALESCE(reference, ''), created_at
	          FROM balance_history WHERE customer_id = $1 ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("query balance history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CustomerID, &e.Amount, &e.BalanceAfter,
			&e.Memo.From, &e.Memo.Message, &e.Memo.Reference, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan balance history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}
