package customers

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository mirrors the Postgres upsert semantics for tests and
// local development.
type InMemoryRepository struct {
	mu   sync.RWMutex
	rows map[string]*Customer // keyed by business id + "\x00" + phone
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{rows: make(map[string]*Customer)}
}

func key(businessID, phone string) string { return businessID + "\x00" + phone }

// Upsert applies the same keep-unless-provided and additive-merge rules as
// the SQL statement in PostgresRepository.
func (r *InMemoryRepository) Upsert(ctx context.Context, p UpsertParams) (*Customer, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.rows[key(p.BusinessID, p.Phone)]
	if !ok {
		c := &Customer{
			ID:              uuid.NewString(),
			BusinessID:      p.BusinessID,
			FirstName:       orDefault(p.FirstName(), DefaultFirstName),
			LastName:        orDefault(p.LastName(), DefaultLastName),
			PhoneNumber:     p.Phone,
			Email:           p.Email(),
			AppointmentTime: p.AppointmentTime(),
			Month:           p.Month(),
			Day:             p.Day(),
			CustomFields:    cloneFields(p.Custom),
			LastCallID:      p.CallID,
			CreatedAt:       time.Now().UTC(),
		}
		r.rows[key(p.BusinessID, p.Phone)] = c
		return c.clone(), true, nil
	}

	replaceIfSet(&existing.FirstName, p.FirstName())
	replaceIfSet(&existing.LastName, p.LastName())
	replaceIfSet(&existing.Email, p.Email())
	replaceIfSet(&existing.AppointmentTime, p.AppointmentTime())
	replaceIfSet(&existing.Month, p.Month())
	replaceIfSet(&existing.Day, p.Day())
	replaceIfSet(&existing.LastCallID, p.CallID)
	for k, v := range p.Custom {
		existing.CustomFields[k] = v
	}
	return existing.clone(), false, nil
}

// GetByPhone fetches the customer for a (business, phone) pair.
func (r *InMemoryRepository) GetByPhone(ctx context.Context, businessID, phone string) (*Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.rows[key(businessID, phone)]; ok {
		return c.clone(), nil
	}
	return nil, ErrNotFound
}

// ListRecent returns the newest customers for a business.
func (r *InMemoryRepository) ListRecent(ctx context.Context, businessID string, limit int) ([]*Customer, error) {
	if limit <= 0 {
		limit = 10
	}
	all := r.forBusiness(businessID)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// ListCreatedSince returns customers created after the given instant.
func (r *InMemoryRepository) ListCreatedSince(ctx context.Context, businessID string, since time.Time) ([]*Customer, error) {
	var out []*Customer
	for _, c := range r.forBusiness(businessID) {
		if c.CreatedAt.After(since) {
			out = append(out, c)
		}
	}
	return out, nil
}

// SetLastAppointment updates the customer's last-appointment marker.
func (r *InMemoryRepository) SetLastAppointment(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.ID == id {
			at := at
			c.LastAppointment = &at
			return nil
		}
	}
	return ErrNotFound
}

// SetTranscript stores a backfilled call transcript.
func (r *InMemoryRepository) SetTranscript(ctx context.Context, id, transcript string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.ID == id {
			c.Transcript = transcript
			return nil
		}
	}
	return ErrNotFound
}

// ListMissingTranscripts returns customers with a call id but no transcript.
func (r *InMemoryRepository) ListMissingTranscripts(ctx context.Context, businessID string) ([]*Customer, error) {
	var out []*Customer
	for _, c := range r.forBusiness(businessID) {
		if c.LastCallID != "" && c.Transcript == "" {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) forBusiness(businessID string) []*Customer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Customer
	for _, c := range r.rows {
		if c.BusinessID == businessID {
			out = append(out, c.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (c *Customer) clone() *Customer {
	out := *c
	out.CustomFields = cloneFields(c.CustomFields)
	if c.LastAppointment != nil {
		at := *c.LastAppointment
		out.LastAppointment = &at
	}
	return &out
}

func cloneFields(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func replaceIfSet(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
