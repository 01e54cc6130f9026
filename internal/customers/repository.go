package customers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no customer matches the lookup.
var ErrNotFound = errors.New("customer not found")

// Repository is the storage contract the sync pipeline and webhook depend on.
type Repository interface {
	Upsert(ctx context.Context, p UpsertParams) (*Customer, bool, error)
	GetByPhone(ctx context.Context, businessID, phone string) (*Customer, error)
	ListRecent(ctx context.Context, businessID string, limit int) ([]*Customer, error)
	ListCreatedSince(ctx context.Context, businessID string, since time.Time) ([]*Customer, error)
	SetLastAppointment(ctx context.Context, id string, at time.Time) error
	SetTranscript(ctx context.Context, id, transcript string) error
	ListMissingTranscripts(ctx context.Context, businessID string) ([]*Customer, error)
}

// Querier is the subset of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores customers in the relational database.
type PostgresRepository struct {
	db Querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("customers: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithQuerier allows injecting mocks for tests.
func NewPostgresRepositoryWithQuerier(q Querier) *PostgresRepository {
	return &PostgresRepository{db: q}
}

// Upsert inserts or updates the customer keyed by (business, phone) in a
// single conditional statement, so concurrent syncs of the same caller
// cannot lose updates. Name and email only change when the new extraction
// supplies a non-empty value; the jsonb `||` merge overwrites exactly the
// keys the new extraction mentions. The second return value reports whether
// the row was newly created.
func (r *PostgresRepository) Upsert(ctx context.Context, p UpsertParams) (*Customer, bool, error) {
	custom := p.Custom
	if custom == nil {
		custom = map[string]string{}
	}
	customJSON, err := json.Marshal(custom)
	if err != nil {
		return nil, false, fmt.Errorf("customers: marshal custom fields: %w", err)
	}

	query := `
		INSERT INTO customers (id, business_id, first_name, last_name, phone_number, email,
			appointment_time, month, day, custom_fields, last_call_id)
		VALUES ($1, $2, COALESCE(NULLIF($3, ''), 'New'), COALESCE(NULLIF($4, ''), 'Customer'),
			$5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10, NULLIF($11, ''))
		ON CONFLICT (business_id, phone_number) DO UPDATE SET
			first_name       = COALESCE(NULLIF($3, ''), customers.first_name),
			last_name        = COALESCE(NULLIF($4, ''), customers.last_name),
			email            = COALESCE(NULLIF($6, ''), customers.email),
			appointment_time = COALESCE(NULLIF($7, ''), customers.appointment_time),
			month            = COALESCE(NULLIF($8, ''), customers.month),
			day              = COALESCE(NULLIF($9, ''), customers.day),
			custom_fields    = customers.custom_fields || EXCLUDED.custom_fields,
			last_call_id     = COALESCE(NULLIF($11, ''), customers.last_call_id),
			updated_at       = now()
		RETURNING id, business_id, first_name, last_name, phone_number,
			COALESCE(email, ''), COALESCE(appointment_time, ''), COALESCE(month, ''), COALESCE(day, ''),
			custom_fields, COALESCE(last_call_id, ''), last_appointment, created_at, (xmax = 0)
	`
	row := r.db.QueryRow(ctx, query,
		uuid.NewString(), p.BusinessID, p.FirstName(), p.LastName(), p.Phone, p.Email(),
		p.AppointmentTime(), p.Month(), p.Day(), customJSON, p.CallID,
	)

	var (
		c          Customer
		fieldsJSON []byte
		isNew      bool
	)
	if err := row.Scan(
		&c.ID, &c.BusinessID, &c.FirstName, &c.LastName, &c.PhoneNumber,
		&c.Email, &c.AppointmentTime, &c.Month, &c.Day,
		&fieldsJSON, &c.LastCallID, &c.LastAppointment, &c.CreatedAt, &isNew,
	); err != nil {
		return nil, false, fmt.Errorf("customers: upsert: %w", err)
	}
	if err := json.Unmarshal(fieldsJSON, &c.CustomFields); err != nil {
		return nil, false, fmt.Errorf("customers: unmarshal custom fields: %w", err)
	}
	return &c, isNew, nil
}

const customerColumns = `id, business_id, first_name, last_name, phone_number,
		COALESCE(email, ''), COALESCE(appointment_time, ''), COALESCE(month, ''), COALESCE(day, ''),
		custom_fields, COALESCE(last_call_id, ''), COALESCE(call_transcript, ''), last_appointment, created_at`

// GetByPhone fetches the customer for a (business, phone) pair.
func (r *PostgresRepository) GetByPhone(ctx context.Context, businessID, phone string) (*Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE business_id = $1 AND phone_number = $2`
	c, err := scanCustomer(r.db.QueryRow(ctx, query, businessID, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("customers: get by phone: %w", err)
	}
	return c, nil
}

// ListRecent returns the newest customers for a business.
func (r *PostgresRepository) ListRecent(ctx context.Context, businessID string, limit int) ([]*Customer, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + customerColumns + ` FROM customers
		WHERE business_id = $1 ORDER BY created_at DESC LIMIT $2`
	return r.list(ctx, query, businessID, limit)
}

// ListCreatedSince returns customers created after the given instant,
// newest first; the dashboard polls this for new-call notifications.
func (r *PostgresRepository) ListCreatedSince(ctx context.Context, businessID string, since time.Time) ([]*Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers
		WHERE business_id = $1 AND created_at > $2 ORDER BY created_at DESC`
	return r.list(ctx, query, businessID, since)
}

// SetLastAppointment updates the customer's last-appointment marker.
func (r *PostgresRepository) SetLastAppointment(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE customers SET last_appointment = $2, updated_at = now() WHERE id = $1`
	ct, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("customers: set last appointment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetTranscript stores a backfilled call transcript.
func (r *PostgresRepository) SetTranscript(ctx context.Context, id, transcript string) error {
	query := `UPDATE customers SET call_transcript = $2, updated_at = now() WHERE id = $1`
	ct, err := r.db.Exec(ctx, query, id, transcript)
	if err != nil {
		return fmt.Errorf("customers: set transcript: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMissingTranscripts returns customers with a recorded call but no
// stored transcript, for the backfill job.
func (r *PostgresRepository) ListMissingTranscripts(ctx context.Context, businessID string) ([]*Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers
		WHERE business_id = $1 AND last_call_id IS NOT NULL
		AND (call_transcript IS NULL OR call_transcript = '')
		ORDER BY created_at`
	return r.list(ctx, query, businessID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*Customer, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("customers: list: %w", err)
	}
	defer rows.Close()

	out := []*Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("customers: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCustomer(row pgx.Row) (*Customer, error) {
	var (
		c          Customer
		fieldsJSON []byte
	)
	if err := row.Scan(
		&c.ID, &c.BusinessID, &c.FirstName, &c.LastName, &c.PhoneNumber,
		&c.Email, &c.AppointmentTime, &c.Month, &c.Day,
		&fieldsJSON, &c.LastCallID, &c.Transcript, &c.LastAppointment, &c.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &c.CustomFields); err != nil {
			return nil, err
		}
	}
	if c.CustomFields == nil {
		c.CustomFields = map[string]string{}
	}
	return &c, nil
}
