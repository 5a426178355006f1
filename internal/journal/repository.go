// Package journal records every checkout that reached the balance check so
// operators can find paid orders that need reconciliation.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/internal/database"
	"github.com/fjod/go_cart/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const migrationsTable = "checkout_schema_migrations"

var (
	ErrSessionNotFound  = errors.New("checkout session not found")
	ErrDuplicateSession = errors.New("checkout session already exists")
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) RunMigrations(dir string) error {
	return database.Migrate(r.db, dir, migrationsTable)
}

func (r *Repository) Create(ctx context.Context, session *domain.CheckoutSession) error {
	itemsJSON, err := json.Marshal(session.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout items: %w", err)
	}

	query := `INSERT INTO checkout_sessions (id, customer_id, status, total_amount, items, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`

	_, err = r.db.ExecContext(ctx, query,
		session.ID,
		session.CustomerID,
		session.Status,
		session.TotalAmount,
		itemsJSON)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateSession
		}
		return fmt.Errorf("insert checkout session: %w", err)
	}
	return nil
}

func (r *Repository) Transition(ctx context.Context, id uuid.UUID, status domain.CheckoutStatus) error {
	query := `UPDATE checkout_sessions SET status = $1, updated_at = NOW() WHERE id = $2`
	return r.update(ctx, query, status, id)
}

func (r *Repository) RecordIncident(ctx context.Context, id uuid.UUID, status domain.CheckoutStatus, detail string) error {
	query := `UPDATE checkout_sessions SET status = $1, incident = $2, updated_at = NOW() WHERE id = $3`
	return r.update(ctx, query, status, detail, id)
}

func (r *Repository) update(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update checkout session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update checkout session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

const selectSession = `SELECT id, customer_id, status, total_amount, items, COALESCE(incident, ''), created_at, updated_at
	          FROM checkout_sessions`

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*domain.CheckoutSession, error) {
	session, err := scanSession(r.db.QueryRowContext(ctx, selectSession+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query checkout session: %w", err)
	}
	return session, nil
}

// ListByStatus returns sessions in status, oldest first.
func (r *Repository) ListByStatus(ctx context.Context, status domain.CheckoutStatus) ([]*domain.CheckoutSession, error) {
	rows, err := r.db.QueryContext(ctx, selectSession+` WHERE status = $1 ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("query checkout sessions by status: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.CheckoutSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkout session row: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.CheckoutSession, error) {
	var s domain.CheckoutSession
	var itemsJSON []byte
	if err := row.Scan(
		&s.ID,
		&s.CustomerID,
		&s.Status,
		&s.TotalAmount,
		&itemsJSON,
		&s.Incident,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &s.Items); err != nil {
		return nil, fmt.Errorf("unmarshal checkout items: %w", err)
	}
	return &s, nil
}
