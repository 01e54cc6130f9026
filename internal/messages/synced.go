package messages

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SyncedCallStore records which provider call ids have already been synced,
// so re-running a sync never duplicates customers or interaction rows.
type syncQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type SyncedCallStore struct {
	pool syncQuerier
}

func NewSyncedCallStore(pool *pgxpool.Pool) *SyncedCallStore {
	if pool == nil {
		panic("messages: pgx pool required")
	}
	return &SyncedCallStore{pool: pool}
}

// NewSyncedCallStoreWithQuerier allows injecting mocks for tests.
func NewSyncedCallStoreWithQuerier(q syncQuerier) *SyncedCallStore {
	if q == nil {
		panic("messages: querier required")
	}
	return &SyncedCallStore{pool: q}
}

// AlreadySynced checks whether this call id has been recorded. Call ids
// are provider-global, so the lookup is unscoped.
func (s *SyncedCallStore) AlreadySynced(ctx context.Context, callID string) (bool, error) {
	query := `SELECT 1 FROM synced_calls WHERE call_id = $1`
	var exists int
	if err := s.pool.QueryRow(ctx, query, callID).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("messages: check synced: %w", err)
	}
	return true, nil
}

// MarkSynced records a call id, returning false when another run already
// recorded it. The insert-or-nothing statement is the concurrency guard:
// two workers marking the same call race to one winner.
func (s *SyncedCallStore) MarkSynced(ctx context.Context, businessID, callID string) (bool, error) {
	query := `
		INSERT INTO synced_calls (business_id, call_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	ct, err := s.pool.Exec(ctx, query, businessID, callID)
	if err != nil {
		return false, fmt.Errorf("messages: mark synced: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// IDs bulk-loads every recorded call id, so an organization-wide run
// builds its dedup index in one round trip.
func (s *SyncedCallStore) IDs(ctx context.Context) (map[string]struct{}, error) {
	return s.loadIDs(ctx, `SELECT call_id FROM synced_calls`)
}

// IDsForBusiness bulk-loads the recorded call ids for one business.
func (s *SyncedCallStore) IDsForBusiness(ctx context.Context, businessID string) (map[string]struct{}, error) {
	return s.loadIDs(ctx, `SELECT call_id FROM synced_calls WHERE business_id = $1`, businessID)
}

func (s *SyncedCallStore) loadIDs(ctx context.Context, query string, args ...any) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("messages: load synced ids: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("messages: scan synced id: %w", err)
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}
