package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository mirrors the Postgres conflict semantics for tests.
type InMemoryRepository struct {
	mu   sync.RWMutex
	rows map[string]*Appointment
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{rows: make(map[string]*Appointment)}
}

// Create inserts the appointment, defaulting ID and pending status.
func (r *InMemoryRepository) Create(ctx context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	stored := *a
	r.rows[a.ID] = &stored
	return nil
}

// HasConflict reports whether any non-cancelled appointment overlaps the
// half-open [start, end) interval.
func (r *InMemoryRepository) HasConflict(ctx context.Context, businessID string, start, end time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.rows {
		if a.BusinessID != businessID || a.Status == StatusCancelled {
			continue
		}
		if Overlaps(a.StartTime, a.EndTime, start, end) {
			return true, nil
		}
	}
	return false, nil
}

// ListUpcoming returns non-cancelled appointments starting at or after
// the given instant, soonest first.
func (r *InMemoryRepository) ListUpcoming(ctx context.Context, businessID string, from time.Time) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Appointment{}
	for _, a := range r.rows {
		if a.BusinessID != businessID || a.Status == StatusCancelled {
			continue
		}
		if a.StartTime.Before(from) {
			continue
		}
		copied := *a
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// UpdateStatus moves the appointment through its lifecycle.
func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	return nil
}
