package business

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores businesses in Postgres.
type Repository struct {
	db Querier
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("business: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithQuerier allows injecting mocks for tests.
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{db: q}
}

const businessColumns = `id, name, business_name, owner_name, owner_email, phone_number,
		agent_id, agent_user_id, timezone, work_hours, services,
		starting_message, agent_prompt, voice_id, created_at`

// Create inserts a new business row.
func (r *Repository) Create(ctx context.Context, b *Business) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Slug == "" {
		b.Slug = Slugify(b.Name)
	}
	if b.Timezone == "" {
		b.Timezone = "America/New_York"
	}
	if b.WorkHours == nil {
		b.WorkHours = DefaultWorkHours()
	}
	if len(b.Services) == 0 {
		b.Services = DefaultServices()
	}

	workHours, err := json.Marshal(b.WorkHours)
	if err != nil {
		return fmt.Errorf("business: marshal work hours: %w", err)
	}
	services, err := json.Marshal(b.Services)
	if err != nil {
		return fmt.Errorf("business: marshal services: %w", err)
	}

	query := `
		INSERT INTO businesses (id, name, business_name, owner_name, owner_email, phone_number,
			agent_id, agent_user_id, timezone, work_hours, services,
			starting_message, agent_prompt, voice_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11, $12, $13, $14)
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query,
		b.ID, b.Name, b.Slug, b.OwnerName, b.OwnerEmail, b.PhoneNumber,
		b.AgentID, b.AgentUserID, b.Timezone, workHours, services,
		b.StartingMessage, b.AgentPrompt, b.VoiceID,
	).Scan(&b.CreatedAt); err != nil {
		return fmt.Errorf("business: insert: %w", mapConstraintErr(err))
	}
	return nil
}

// GetByID fetches a business by primary key.
func (r *Repository) GetByID(ctx context.Context, id string) (*Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// GetByOwnerEmail fetches the business registered for an owner email.
func (r *Repository) GetByOwnerEmail(ctx context.Context, email string) (*Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE owner_email = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, email))
}

// AgentAssignment pairs a configured agent id with its business summary.
type AgentAssignment struct {
	AgentID string
	Ref     Ref
}

// ListAgentAssignments returns every business with a provisioned agent,
// newest first, for building the agent->business directory.
func (r *Repository) ListAgentAssignments(ctx context.Context) ([]AgentAssignment, error) {
	query := `
		SELECT agent_id, id, name, business_name, COALESCE(phone_number, '')
		FROM businesses
		WHERE agent_id IS NOT NULL
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("business: list agent assignments: %w", err)
	}
	defer rows.Close()

	var out []AgentAssignment
	for rows.Next() {
		var a AgentAssignment
		if err := rows.Scan(&a.AgentID, &a.Ref.ID, &a.Ref.Name, &a.Ref.Slug, &a.Ref.PhoneNumber); err != nil {
			return nil, fmt.Errorf("business: scan agent assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetAgent records provisioning results. The guard keeps agent identity
// immutable after the first successful provisioning.
func (r *Repository) SetAgent(ctx context.Context, id, agentID, agentUserID, phoneNumber string) error {
	query := `
		UPDATE businesses
		SET agent_id = $2, agent_user_id = $3, phone_number = $4, updated_at = now()
		WHERE id = $1 AND agent_id IS NULL
	`
	ct, err := r.db.Exec(ctx, query, id, agentID, agentUserID, phoneNumber)
	if err != nil {
		return fmt.Errorf("business: set agent: %w", mapConstraintErr(err))
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("business: set agent: %w", ErrNotFound)
	}
	return nil
}

func (r *Repository) scanOne(row pgx.Row) (*Business, error) {
	var (
		b           Business
		phone       *string
		agentID     *string
		agentUserID *string
		workHours   []byte
		services    []byte
	)
	if err := row.Scan(
		&b.ID, &b.Name, &b.Slug, &b.OwnerName, &b.OwnerEmail, &phone,
		&agentID, &agentUserID, &b.Timezone, &workHours, &services,
		&b.StartingMessage, &b.AgentPrompt, &b.VoiceID, &b.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("business: select: %w", err)
	}
	if phone != nil {
		b.PhoneNumber = *phone
	}
	if agentID != nil {
		b.AgentID = *agentID
	}
	if agentUserID != nil {
		b.AgentUserID = *agentUserID
	}
	if len(workHours) > 0 {
		if err := json.Unmarshal(workHours, &b.WorkHours); err != nil {
			return nil, fmt.Errorf("business: unmarshal work hours: %w", err)
		}
	}
	if len(services) > 0 {
		if err := json.Unmarshal(services, &b.Services); err != nil {
			return nil, fmt.Errorf("business: unmarshal services: %w", err)
		}
	}
	return &b, nil
}

// mapConstraintErr translates unique violations into sentinel errors.
func mapConstraintErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "businesses_owner_email_key":
			return ErrOwnerExists
		case "businesses_agent_id_key":
			return ErrAgentTaken
		}
	}
	return err
}
