package metrics

import "github.com/prometheus/client_golang/prometheus"

// SyncMetrics exposes counters/histograms for the call-sync and webhook
// flows.
type SyncMetrics struct {
	callsSynced    *prometheus.CounterVec
	callsSkipped   *prometheus.CounterVec
	syncRuns       *prometheus.CounterVec
	webhookTotal   *prometheus.CounterVec
	webhookLatency *prometheus.HistogramVec
}

func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		callsSynced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "receptionly",
			Subsystem: "sync",
			Name:      "calls_synced_total",
			Help:      "Calls pulled from the provider feed and recorded",
		}, []string{"scope", "new_customer"}),
		callsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "receptionly",
			Subsystem: "sync",
			Name:      "calls_skipped_total",
			Help:      "Calls skipped during sync, by reason",
		}, []string{"reason"}),
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "receptionly",
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Sync runs, by scope and outcome",
		}, []string{"scope", "status"}),
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "receptionly",
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Inbound voice webhooks, by event type and outcome",
		}, []string{"event_type", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "receptionly",
			Subsystem: "webhook",
			Name:      "latency_seconds",
			Help:      "Latency of voice webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.callsSynced, m.callsSkipped, m.syncRuns, m.webhookTotal, m.webhookLatency)
	return m
}

func (m *SyncMetrics) ObserveCallSynced(scope string, newCustomer bool) {
	if m == nil {
		return
	}
	label := "false"
	if newCustomer {
		label = "true"
	}
	m.callsSynced.WithLabelValues(scope, label).Inc()
}

func (m *SyncMetrics) ObserveCallSkipped(reason string) {
	if m == nil {
		return
	}
	m.callsSkipped.WithLabelValues(reason).Inc()
}

func (m *SyncMetrics) ObserveRun(scope, status string) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(scope, status).Inc()
}

func (m *SyncMetrics) ObserveWebhook(eventType, status string) {
	if m == nil {
		return
	}
	m.webhookTotal.WithLabelValues(eventType, status).Inc()
}

func (m *SyncMetrics) ObserveWebhookLatency(eventType string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(eventType).Observe(seconds)
}
