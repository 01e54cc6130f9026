package customers

import (
	"context"
	"fmt"
)

// CallLogger records the inbound interaction row for a processed call. The
// message log is the durable audit trail; exactly one row per call.
type CallLogger interface {
	LogCall(ctx context.Context, businessID, customerID, content string, payload []byte) error
}

// Engine is the customer upsert engine: it classifies a call's extracted
// fields, finds-or-creates the customer by phone number, and appends the
// interaction row. Safe to run repeatedly over the same call.
type Engine struct {
	repo   Repository
	log    CallLogger
	fields FieldSet
}

// NewEngine creates an engine with the default universal field set.
func NewEngine(repo Repository, log CallLogger) *Engine {
	return &Engine{repo: repo, log: log, fields: DefaultUniversalFields()}
}

// WithFields returns an engine using the given universal field set, e.g.
// the org-wide set that includes the injected business-name field.
func (e *Engine) WithFields(fields FieldSet) *Engine {
	return &Engine{repo: e.repo, log: e.log, fields: fields}
}

// ProcessCallParams carries one provider call into the engine.
type ProcessCallParams struct {
	BusinessID string
	Phone      string
	CallID     string
	Transcript string
	Extracted  map[string]string
	RawPayload []byte
}

// ProcessCall upserts the customer and appends the interaction row.
func (e *Engine) ProcessCall(ctx context.Context, p ProcessCallParams) (*Customer, bool, error) {
	universal, custom := e.fields.Split(p.Extracted)

	customer, isNew, err := e.repo.Upsert(ctx, UpsertParams{
		BusinessID: p.BusinessID,
		Phone:      p.Phone,
		Universal:  universal,
		Custom:     custom,
		CallID:     p.CallID,
	})
	if err != nil {
		return nil, false, fmt.Errorf("customers: process call %s: %w", p.CallID, err)
	}

	content := p.Transcript
	if content == "" {
		content = fmt.Sprintf("Call from %s", p.Phone)
	}
	if err := e.log.LogCall(ctx, p.BusinessID, customer.ID, content, p.RawPayload); err != nil {
		return nil, false, fmt.Errorf("customers: log call %s: %w", p.CallID, err)
	}

	return customer, isNew, nil
}
