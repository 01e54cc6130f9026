package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no appointment matches the lookup.
var ErrNotFound = errors.New("appointment not found")

// Repository is the storage contract the webhook booking flow depends on.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	HasConflict(ctx context.Context, businessID string, start, end time.Time) (bool, error)
	ListUpcoming(ctx context.Context, businessID string, from time.Time) ([]*Appointment, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}

// Querier is the subset of pgxpool.Pool the repository needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores appointments in the relational database.
type PostgresRepository struct {
	db Querier
}

// NewPostgresRepository creates a repository backed by pgx pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithQuerier allows injecting mocks for tests.
func NewPostgresRepositoryWithQuerier(q Querier) *PostgresRepository {
	return &PostgresRepository{db: q}
}

// Create inserts the appointment, defaulting ID and pending status.
func (r *PostgresRepository) Create(ctx context.Context, a *Appointment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	query := `
		INSERT INTO appointments (id, business_id, customer_id, service, start_time, end_time, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		a.ID, a.BusinessID, a.CustomerID, a.Service,
		a.StartTime, a.EndTime, a.Status, a.Notes,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("appointments: create: %w", err)
	}
	return nil
}

// HasConflict reports whether any non-cancelled appointment overlaps the
// half-open [start, end) interval. A booking ending exactly at start does
// not conflict.
func (r *PostgresRepository) HasConflict(ctx context.Context, businessID string, start, end time.Time) (bool, error) {
	query := `
		SELECT 1 FROM appointments
		WHERE business_id = $1
		  AND status != 'cancelled'
		  AND start_time < $3
		  AND end_time > $2
		LIMIT 1
	`
	var exists int
	if err := r.db.QueryRow(ctx, query, businessID, start, end).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("appointments: check conflict: %w", err)
	}
	return true, nil
}

// ListUpcoming returns non-cancelled appointments starting at or after
// the given instant, soonest first.
func (r *PostgresRepository) ListUpcoming(ctx context.Context, businessID string, from time.Time) ([]*Appointment, error) {
	query := `
		SELECT id, business_id, customer_id, service, start_time, end_time, status, COALESCE(notes, ''), created_at
		FROM appointments
		WHERE business_id = $1 AND status != 'cancelled' AND start_time >= $2
		ORDER BY start_time ASC
	`
	rows, err := r.db.Query(ctx, query, businessID, from)
	if err != nil {
		return nil, fmt.Errorf("appointments: list upcoming: %w", err)
	}
	defer rows.Close()

	out := []*Appointment{}
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.BusinessID, &a.CustomerID, &a.Service,
			&a.StartTime, &a.EndTime, &a.Status, &a.Notes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// UpdateStatus moves the appointment through its lifecycle.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	query := `UPDATE appointments SET status = $2, updated_at = now() WHERE id = $1`
	ct, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("appointments: update status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
