// Package tenancy resolves which business an inbound event belongs to.
package tenancy

import (
	"context"
	"errors"

	"github.com/receptionly/platform/internal/business"
)

// ErrUnroutable is returned when no business can be matched.
var ErrUnroutable = errors.New("no business for event")

// DirectorySource provides the agent→business routing table.
type DirectorySource interface {
	Load(ctx context.Context) (business.Directory, error)
}

// Resolver maps an agent identifier to a business. When the event carries
// no agent id, an explicitly configured default business takes over; there
// is no implicit "first row in the table" guess.
type Resolver struct {
	directory         DirectorySource
	defaultBusinessID string
}

// NewResolver creates a resolver. defaultBusinessID may be empty, in which
// case agent-less events are unroutable.
func NewResolver(directory DirectorySource, defaultBusinessID string) *Resolver {
	return &Resolver{directory: directory, defaultBusinessID: defaultBusinessID}
}

// Resolve returns the business id for an event. Priority: agent directory
// match, then the configured default.
func (r *Resolver) Resolve(ctx context.Context, agentID string) (string, error) {
	if agentID != "" && r.directory != nil {
		dir, err := r.directory.Load(ctx)
		if err != nil {
			return "", err
		}
		if ref, ok := dir.Resolve(agentID); ok {
			return ref.ID, nil
		}
	}
	if r.defaultBusinessID != "" {
		return r.defaultBusinessID, nil
	}
	return "", ErrUnroutable
}

// WithBusinessID stores the resolved business id in context for downstream
// handlers and log enrichment.
func WithBusinessID(ctx context.Context, businessID string) context.Context {
	return context.WithValue(ctx, businessKey, businessID)
}

// BusinessIDFromContext extracts the resolved business id if present.
func BusinessIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(businessKey)
	if val == nil {
		return "", false
	}
	id, ok := val.(string)
	return id, ok && id != ""
}

type ctxKey string

const businessKey ctxKey = "receptionly.business_id"
