package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSyncMetricsObserve(t *testing.T) {
	m := NewSyncMetrics(prometheus.NewRegistry())
	m.ObserveCallSynced("organization", true)
	m.ObserveCallSkipped("duplicate")
	m.ObserveRun("business", "ok")
	m.ObserveWebhook("booking_intent", "booked")
	m.ObserveWebhookLatency("booking_intent", 0.5)
}

func TestSyncMetricsNilSafe(t *testing.T) {
	var m *SyncMetrics
	m.ObserveCallSynced("organization", false)
	m.ObserveCallSkipped("unroutable")
	m.ObserveRun("organization", "error")
	m.ObserveWebhook("message", "logged")
	m.ObserveWebhookLatency("message", 0.1)
}
