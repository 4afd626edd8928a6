package observability

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestObserveModerationLabelIncrementsCounter(t *testing.T) {
	m := NewMetrics("test_metrics_moderation")
	m.ObserveModerationLabel("abusive")
	m.ObserveModerationLabel("abusive")
	m.ObserveModerationLabel("safe")

	if got := counterValue(t, m.ModerationLabels.WithLabelValues("abusive")); got != 2 {
		t.Fatalf("abusive count = %v, want 2", got)
	}
	if got := counterValue(t, m.ModerationLabels.WithLabelValues("safe")); got != 1 {
		t.Fatalf("safe count = %v, want 1", got)
	}
}

func TestObserveSessionDurationRecordsSample(t *testing.T) {
	m := NewMetrics("test_metrics_duration")
	m.ObserveSessionDuration(90 * time.Second)

	var metric dto.Metric
	if err := m.SessionDuration.Write(&metric); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if metric.Histogram.GetSampleCount() != 1 {
		t.Fatalf("sample count = %d, want 1", metric.Histogram.GetSampleCount())
	}
	if metric.Histogram.GetSampleSum() != 90 {
		t.Fatalf("sample sum = %v, want 90", metric.Histogram.GetSampleSum())
	}
}

func TestNilMetricsObserversAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveModerationLabel("safe")
	m.ObserveProviderError("openai", "timeout")
	m.ObserveSessionDuration(time.Second)
	m.ResetTurnStages()
}

func TestObserveTurnStageFeedsSnapshot(t *testing.T) {
	m := NewMetrics("test_metrics_turnstage")
	m.ObserveTurnStage("moderation", 120*time.Millisecond)
	m.ObserveTurnStage("moderation", 80*time.Millisecond)

	snap := m.SnapshotTurnStages()
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	if snap.Stages[0].Samples != 2 {
		t.Fatalf("Samples = %d, want 2", snap.Stages[0].Samples)
	}
}

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return metric.Counter.GetValue()
}
