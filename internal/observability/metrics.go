package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every Prometheus instrument the orchestrator exposes.
type Metrics struct {
	ActiveSessions   prometheus.Gauge
	SessionEvents    *prometheus.CounterVec
	ModerationLabels *prometheus.CounterVec
	WSMessages       *prometheus.CounterVec
	WSWriteErrors    *prometheus.CounterVec
	OutboundMessages *prometheus.CounterVec
	ProviderErrors   *prometheus.CounterVec
	TurnStageLatency *prometheus.HistogramVec
	SessionDuration  prometheus.Histogram
	turnStageWindow  *turnStageWindow
}

// NewMetrics builds every instrument under namespace, which the caller
// derives from METRICS_NAMESPACE.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of interview sessions currently in progress.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle events by type.",
		}, []string{"event"}),
		ModerationLabels: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moderation_labels_total",
			Help:      "Moderation verdicts by label.",
		}, []string{"label"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and envelope type.",
		}, []string{"direction", "type"}),
		WSWriteErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_write_errors_total",
			Help:      "WebSocket write errors by reason.",
		}, []string{"reason"}),
		OutboundMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_messages_total",
			Help:      "Outbound orchestrator messages by type and delivery result.",
		}, []string{"type", "result"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "STT/TTS/LLM provider errors by provider and code.",
		}, []string{"provider", "code"}),
		TurnStageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_stage_latency_ms",
			Help:      "Turn-stage latency in milliseconds (tts_synthesis, stt_listen, moderation, followup_decision, followup_generate).",
			Buckets:   []float64{20, 50, 100, 150, 250, 400, 700, 1200, 2000, 4000, 7000, 10000},
		}, []string{"stage"}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Wall-clock duration of completed or terminated sessions.",
			Buckets:   []float64{30, 60, 120, 300, 600, 900, 1200, 1800, 2400, 3600},
		}),
		turnStageWindow: newTurnStageWindow(256),
	}
}

// ObserveTurnStage records a stage's latency in both the exported
// histogram and the in-process rolling window used by the stats endpoint.
func (m *Metrics) ObserveTurnStage(stage string, d time.Duration) {
	ms := float64(d.Milliseconds())
	m.TurnStageLatency.WithLabelValues(stage).Observe(ms)
	m.turnStageWindow.Observe(stage, ms)
}

// ObserveOutboundMessage records whether an outbound envelope was queued
// or dropped (the outbound channel was saturated).
func (m *Metrics) ObserveOutboundMessage(msgType, result string) {
	m.OutboundMessages.WithLabelValues(msgType, result).Inc()
}

// ObserveModerationLabel records one moderation verdict.
func (m *Metrics) ObserveModerationLabel(label string) {
	if m == nil || m.ModerationLabels == nil {
		return
	}
	m.ModerationLabels.WithLabelValues(label).Inc()
}

// ObserveProviderError records a failure from an external provider (STT,
// TTS, or LLM) tagged with a short error code.
func (m *Metrics) ObserveProviderError(provider, code string) {
	if m == nil || m.ProviderErrors == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(provider, code).Inc()
}

// ObserveSessionDuration records one session's total wall-clock duration.
func (m *Metrics) ObserveSessionDuration(d time.Duration) {
	if m == nil || m.SessionDuration == nil {
		return
	}
	m.SessionDuration.Observe(d.Seconds())
}

// SnapshotTurnStages returns the rolling-window percentile view used by
// the per-session stats endpoint.
func (m *Metrics) SnapshotTurnStages() TurnStageSnapshot {
	if m.turnStageWindow == nil {
		return TurnStageSnapshot{}
	}
	return m.turnStageWindow.Snapshot()
}

// ResetTurnStages clears the rolling window; used in tests.
func (m *Metrics) ResetTurnStages() {
	if m == nil || m.turnStageWindow == nil {
		return
	}
	m.turnStageWindow.Reset()
}

// MetricsHandler serves the Prometheus exposition format.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
