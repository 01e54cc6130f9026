// Package sync pulls ended calls from the voice provider and records them
// as customers and interaction rows. One pipeline serves both the
// per-business trigger and the organization-wide run.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/receptionly/platform/internal/business"
	"github.com/receptionly/platform/internal/customers"
	"github.com/receptionly/platform/internal/observability/metrics"
	"github.com/receptionly/platform/internal/voice"
	"github.com/receptionly/platform/pkg/logging"
)

// CallFeed is the provider surface the sync pipeline drains.
type CallFeed interface {
	ListCalls(ctx context.Context, p voice.ListCallsParams) ([]voice.Call, error)
	GetCall(ctx context.Context, callID string) (*voice.Call, error)
}

// DedupStore records which call ids have been ingested.
type DedupStore interface {
	MarkSynced(ctx context.Context, businessID, callID string) (bool, error)
	IDs(ctx context.Context) (map[string]struct{}, error)
	IDsForBusiness(ctx context.Context, businessID string) (map[string]struct{}, error)
}

// DirectorySource provides the agent→business routing table.
type DirectorySource interface {
	Load(ctx context.Context) (business.Directory, error)
}

// ServiceConfig wires the pipeline's collaborators.
type ServiceConfig struct {
	Feed       CallFeed
	Customers  customers.Repository
	Messages   customers.CallLogger
	Dedup      DedupStore
	Directory  DirectorySource
	Metrics    *metrics.SyncMetrics
	Logger     *logging.Logger
	FetchLimit int
}

// Service orchestrates call ingestion.
type Service struct {
	feed       CallFeed
	customers  customers.Repository
	engine     *customers.Engine
	orgEngine  *customers.Engine
	dedup      DedupStore
	directory  DirectorySource
	metrics    *metrics.SyncMetrics
	logger     *logging.Logger
	fetchLimit int
}

// NewService creates the sync service. The organization-wide path uses an
// engine whose field set includes the injected business-name attribution
// field, so it never leaks into custom fields.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Feed == nil || cfg.Customers == nil || cfg.Messages == nil || cfg.Dedup == nil {
		panic("sync: feed, customers, messages and dedup are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	engine := customers.NewEngine(cfg.Customers, cfg.Messages)
	return &Service{
		feed:       cfg.Feed,
		customers:  cfg.Customers,
		engine:     engine,
		orgEngine:  engine.WithFields(customers.DefaultUniversalFields().With(customers.FieldBusinessName)),
		dedup:      cfg.Dedup,
		directory:  cfg.Directory,
		metrics:    cfg.Metrics,
		logger:     logger,
		fetchLimit: cfg.FetchLimit,
	}
}

// BusinessResult aggregates one per-business run.
type BusinessResult struct {
	Success      bool     `json:"success"`
	Synced       int      `json:"synced"`
	NewCustomers int      `json:"new_customers"`
	Duplicates   int      `json:"duplicates"`
	Errors       []string `json:"errors,omitempty"`
}

// BusinessBreakdown is one business's slice of an organization run.
type BusinessBreakdown struct {
	Name         string `json:"name"`
	Synced       int    `json:"synced"`
	NewCustomers int    `json:"new_customers"`
}

// OrganizationResult aggregates one organization-wide run.
type OrganizationResult struct {
	Success      bool                         `json:"success"`
	TotalCalls   int                          `json:"total_calls"`
	Synced       int                          `json:"synced"`
	NewCustomers int                          `json:"new_customers"`
	Duplicates   int                          `json:"duplicates"`
	Unroutable   int                          `json:"unroutable"`
	Businesses   map[string]BusinessBreakdown `json:"businesses"`
	Errors       []string                     `json:"errors,omitempty"`
}

// BackfillResult reports a transcript backfill pass.
type BackfillResult struct {
	Success bool     `json:"success"`
	Checked int      `json:"checked"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors,omitempty"`
}

// SyncCall runs one call through classify → upsert → message append →
// mark-synced, attributed to the given business. Returns the customer and
// whether it was newly created.
func (s *Service) SyncCall(ctx context.Context, businessID string, call voice.Call) (*customers.Customer, bool, error) {
	return s.syncCall(ctx, businessID, call, s.engine)
}

func (s *Service) syncCall(ctx context.Context, businessID string, call voice.Call, engine *customers.Engine) (*customers.Customer, bool, error) {
	if call.FromNumber == "" {
		return nil, false, fmt.Errorf("sync: call %s has no caller number", call.CallID)
	}

	payload, err := json.Marshal(call)
	if err != nil {
		return nil, false, fmt.Errorf("sync: marshal call %s: %w", call.CallID, err)
	}

	customer, isNew, err := engine.ProcessCall(ctx, customers.ProcessCallParams{
		BusinessID: businessID,
		Phone:      call.FromNumber,
		CallID:     call.CallID,
		Transcript: call.Transcript,
		Extracted:  call.ExtractedFields,
		RawPayload: payload,
	})
	if err != nil {
		return nil, false, err
	}

	if _, err := s.dedup.MarkSynced(ctx, businessID, call.CallID); err != nil {
		return nil, false, fmt.Errorf("sync: mark call %s: %w", call.CallID, err)
	}
	return customer, isNew, nil
}

// SyncBusiness drains the agent-scoped feed for one business. Per-call
// failures are collected, never fatal; only a feed fetch failure aborts.
func (s *Service) SyncBusiness(ctx context.Context, businessID, agentID string, since time.Time) (*BusinessResult, error) {
	calls, err := s.feed.ListCalls(ctx, voice.ListCallsParams{
		AgentID: agentID,
		Since:   since,
		Limit:   s.fetchLimit,
	})
	if err != nil {
		s.metrics.ObserveRun("business", "error")
		return nil, fmt.Errorf("sync: fetch calls for business %s: %w", businessID, err)
	}

	seen, err := s.dedup.IDsForBusiness(ctx, businessID)
	if err != nil {
		s.metrics.ObserveRun("business", "error")
		return nil, fmt.Errorf("sync: load synced ids: %w", err)
	}

	result := &BusinessResult{Success: true}
	for _, call := range calls {
		if !call.Ended() {
			continue
		}
		if _, dup := seen[call.CallID]; dup {
			result.Duplicates++
			s.metrics.ObserveCallSkipped("duplicate")
			continue
		}
		_, isNew, err := s.SyncCall(ctx, businessID, call)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("call %s: %v", call.CallID, err))
			s.logger.Warn("call sync failed", "call_id", call.CallID, "business_id", businessID, "error", err)
			continue
		}
		result.Synced++
		if isNew {
			result.NewCustomers++
		}
		s.metrics.ObserveCallSynced("business", isNew)
	}

	s.metrics.ObserveRun("business", "ok")
	s.logger.Info("business sync complete",
		"business_id", businessID, "synced", result.Synced,
		"new_customers", result.NewCustomers, "duplicates", result.Duplicates,
		"errors", len(result.Errors))
	return result, nil
}

// SyncOrganization drains the whole organization feed once, builds the
// routing directory and the dedup index once, then attributes each call in
// feed order. Unroutable calls are counted and reported, never dropped
// silently.
func (s *Service) SyncOrganization(ctx context.Context, since time.Time) (*OrganizationResult, error) {
	if s.directory == nil {
		return nil, fmt.Errorf("sync: organization sync requires a directory")
	}

	// Admin scope: the feed must cover every agent in the organization.
	calls, err := s.feed.ListCalls(ctx, voice.ListCallsParams{Admin: true, Since: since, Limit: s.fetchLimit})
	if err != nil {
		s.metrics.ObserveRun("organization", "error")
		return nil, fmt.Errorf("sync: fetch organization calls: %w", err)
	}

	dir, err := s.directory.Load(ctx)
	if err != nil {
		s.metrics.ObserveRun("organization", "error")
		return nil, fmt.Errorf("sync: load agent directory: %w", err)
	}

	seen, err := s.dedup.IDs(ctx)
	if err != nil {
		s.metrics.ObserveRun("organization", "error")
		return nil, fmt.Errorf("sync: load synced ids: %w", err)
	}

	result := &OrganizationResult{
		Success:    true,
		TotalCalls: len(calls),
		Businesses: map[string]BusinessBreakdown{},
	}
	for _, call := range calls {
		if !call.Ended() {
			continue
		}
		if _, dup := seen[call.CallID]; dup {
			result.Duplicates++
			s.metrics.ObserveCallSkipped("duplicate")
			continue
		}
		ref, ok := dir.Resolve(call.Agent())
		if !ok {
			result.Unroutable++
			result.Errors = append(result.Errors,
				fmt.Sprintf("call %s: no business for agent %q", call.CallID, call.Agent()))
			s.metrics.ObserveCallSkipped("unroutable")
			continue
		}
		_, isNew, err := s.syncCall(ctx, ref.ID, call, s.orgEngine)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("call %s: %v", call.CallID, err))
			s.logger.Warn("call sync failed", "call_id", call.CallID, "business_id", ref.ID, "error", err)
			continue
		}
		result.Synced++
		if isNew {
			result.NewCustomers++
		}
		breakdown := result.Businesses[ref.ID]
		breakdown.Name = ref.Name
		breakdown.Synced++
		if isNew {
			breakdown.NewCustomers++
		}
		result.Businesses[ref.ID] = breakdown
		s.metrics.ObserveCallSynced("organization", isNew)
	}

	s.metrics.ObserveRun("organization", "ok")
	s.logger.Info("organization sync complete",
		"total_calls", result.TotalCalls, "synced", result.Synced,
		"new_customers", result.NewCustomers, "duplicates", result.Duplicates,
		"unroutable", result.Unroutable, "errors", len(result.Errors))
	return result, nil
}

// BackfillTranscripts re-fetches calls whose customers were synced before
// the provider finished transcribing, and stores the transcript.
func (s *Service) BackfillTranscripts(ctx context.Context, businessID string) (*BackfillResult, error) {
	missing, err := s.customers.ListMissingTranscripts(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("sync: list missing transcripts: %w", err)
	}

	result := &BackfillResult{Success: true, Checked: len(missing)}
	for _, c := range missing {
		call, err := s.feed.GetCall(ctx, c.LastCallID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("call %s: %v", c.LastCallID, err))
			continue
		}
		if call.Transcript == "" {
			continue
		}
		if err := s.customers.SetTranscript(ctx, c.ID, call.Transcript); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("customer %s: %v", c.ID, err))
			continue
		}
		result.Updated++
	}

	s.logger.Info("transcript backfill complete",
		"business_id", businessID, "checked", result.Checked,
		"updated", result.Updated, "errors", len(result.Errors))
	return result, nil
}
