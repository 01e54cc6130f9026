package business

import (
	"context"
	"fmt"

	"github.com/receptionly/platform/pkg/logging"
)

// Directory maps voice-agent ids to the business that owns them. A call
// whose agent id has no entry is unroutable and must be reported by the
// caller, never guessed at.
type Directory map[string]Ref

// Resolve looks up the business for an agent id.
func (d Directory) Resolve(agentID string) (Ref, bool) {
	ref, ok := d[agentID]
	return ref, ok
}

// AssignmentLister is implemented by Repository.
type AssignmentLister interface {
	ListAgentAssignments(ctx context.Context) ([]AgentAssignment, error)
}

// DirectoryLoader builds the agent->business directory, optionally through
// a cache so batch syncs don't hit Postgres on every run.
type DirectoryLoader struct {
	repo   AssignmentLister
	cache  *DirectoryCache
	logger *logging.Logger
}

// NewDirectoryLoader creates a loader. cache may be nil.
func NewDirectoryLoader(repo AssignmentLister, cache *DirectoryCache, logger *logging.Logger) *DirectoryLoader {
	if logger == nil {
		logger = logging.Default()
	}
	return &DirectoryLoader{repo: repo, cache: cache, logger: logger}
}

// Load returns the current directory. The schema enforces agent-id
// uniqueness; a duplicate here means pre-constraint data, so the later row
// wins and we log it rather than fail the sync.
func (l *DirectoryLoader) Load(ctx context.Context) (Directory, error) {
	if l.cache != nil {
		if dir, ok := l.cache.Get(ctx); ok {
			return dir, nil
		}
	}

	assignments, err := l.repo.ListAgentAssignments(ctx)
	if err != nil {
		return nil, fmt.Errorf("business: load directory: %w", err)
	}

	dir := make(Directory, len(assignments))
	for _, a := range assignments {
		if prev, ok := dir[a.AgentID]; ok {
			l.logger.Warn("duplicate agent id in businesses table",
				"agent_id", a.AgentID,
				"kept_business", a.Ref.ID,
				"shadowed_business", prev.ID,
			)
		}
		dir[a.AgentID] = a.Ref
	}

	if l.cache != nil {
		l.cache.Set(ctx, dir)
	}
	return dir, nil
}

// Invalidate drops the cached directory, e.g. after onboarding assigns a
// new agent id.
func (l *DirectoryLoader) Invalidate(ctx context.Context) {
	if l.cache != nil {
		l.cache.Delete(ctx)
	}
}
