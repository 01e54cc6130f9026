package tenancy

import (
	"context"
	"errors"
	"testing"

	"github.com/receptionly/platform/internal/business"
)

type stubDirectory struct {
	dir business.Directory
	err error
}

func (s stubDirectory) Load(context.Context) (business.Directory, error) {
	return s.dir, s.err
}

func TestResolvePrefersAgentMatch(t *testing.T) {
	r := NewResolver(stubDirectory{dir: business.Directory{
		"agent-a": {ID: "biz-1"},
	}}, "biz-default")

	got, err := r.Resolve(context.Background(), "agent-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "biz-1" {
		t.Fatalf("expected biz-1, got %s", got)
	}
}

func TestResolveFallsBackToDefault(t *testing.T) {
	r := NewResolver(stubDirectory{dir: business.Directory{}}, "biz-default")

	for _, agentID := range []string{"", "agent-unknown"} {
		got, err := r.Resolve(context.Background(), agentID)
		if err != nil {
			t.Fatalf("unexpected error for agent %q: %v", agentID, err)
		}
		if got != "biz-default" {
			t.Fatalf("expected fallback for agent %q, got %s", agentID, got)
		}
	}
}

func TestResolveUnroutableWithoutDefault(t *testing.T) {
	r := NewResolver(stubDirectory{dir: business.Directory{}}, "")

	if _, err := r.Resolve(context.Background(), "agent-unknown"); !errors.Is(err, ErrUnroutable) {
		t.Fatalf("expected ErrUnroutable, got %v", err)
	}
}

func TestResolveDirectoryError(t *testing.T) {
	loadErr := errors.New("redis down")
	r := NewResolver(stubDirectory{err: loadErr}, "biz-default")

	if _, err := r.Resolve(context.Background(), "agent-a"); !errors.Is(err, loadErr) {
		t.Fatalf("expected load error to propagate, got %v", err)
	}
}

func TestBusinessIDContext(t *testing.T) {
	ctx := WithBusinessID(context.Background(), "biz-1")

	got, ok := BusinessIDFromContext(ctx)
	if !ok || got != "biz-1" {
		t.Fatalf("expected biz-1, got %q ok=%v", got, ok)
	}

	if _, ok := BusinessIDFromContext(context.Background()); ok {
		t.Fatal("expected missing business id to return false")
	}
	if _, ok := BusinessIDFromContext(WithBusinessID(context.Background(), "")); ok {
		t.Fatal("expected empty business id to return false")
	}
}
