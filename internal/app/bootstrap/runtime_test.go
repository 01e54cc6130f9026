package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/receptionly/platform/internal/business"
	appconfig "github.com/receptionly/platform/internal/config"
	"github.com/receptionly/platform/pkg/logging"
)

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	cfg := &appconfig.Config{}
	if client := BuildRedisClient(context.Background(), cfg, logging.Default(), false); client != nil {
		t.Fatalf("expected nil client when no addr is configured")
	}
}

func TestBuildRedisClientVerifiesPing(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}

	client := BuildRedisClient(context.Background(), cfg, logging.Default(), true)
	if client == nil {
		t.Fatalf("expected a client for a reachable redis")
	}
	t.Cleanup(func() { client.Close() })

	mr.Close()
	if client := BuildRedisClient(context.Background(), cfg, logging.Default(), true); client != nil {
		t.Fatalf("expected nil client when ping fails")
	}
}

type staticAssignments []business.AgentAssignment

func (s staticAssignments) ListAgentAssignments(context.Context) ([]business.AgentAssignment, error) {
	return s, nil
}

func TestBuildDirectoryLoaderWorksWithoutRedis(t *testing.T) {
	assignments := staticAssignments{{AgentID: "agent-a", Ref: business.Ref{ID: "biz-1", Name: "Bella's Hair"}}}
	loader := BuildDirectoryLoader(assignments, nil, &appconfig.Config{}, logging.Default())

	dir, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := dir.Resolve("agent-a"); !ok {
		t.Fatalf("expected agent-a to resolve")
	}
}
