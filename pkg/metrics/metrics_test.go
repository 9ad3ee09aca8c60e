package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricHistogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	if err := h.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func TestNoopImplementsRecorder(t *testing.T) {
	var r Recorder = Noop{}
	r.ImagesScanned(3)
	r.HintApplied("loading")
	r.Instrumented()
	r.ProbeDone(ProbeAbsent, time.Millisecond)
	r.RetryScheduled(1)
	r.MarkedBroken()
	r.Recovered()
	r.PageRewritten()
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(WithRegistry(reg), WithNamespace("test"))

	p.ImagesScanned(4)
	p.ImagesScanned(2)
	p.HintApplied("loading")
	p.HintApplied("loading")
	p.HintApplied("fetchpriority")
	p.Instrumented()
	p.ProbeDone(ProbeAbsent, 10*time.Millisecond)
	p.ProbeDone(ProbeCacheHit, 0)
	p.RetryScheduled(1)
	p.RetryScheduled(2)
	p.RetryScheduled(2)
	p.MarkedBroken()
	p.Recovered()
	p.PageRewritten()

	tests := []struct {
		name string
		c    prometheus.Counter
		want float64
	}{
		{"images_scanned_total", p.imagesScanned, 6},
		{"optimizer_passes_total", p.passes, 2},
		{"hints_applied_total{loading}", p.hintsApplied.WithLabelValues("loading"), 2},
		{"hints_applied_total{fetchpriority}", p.hintsApplied.WithLabelValues("fetchpriority"), 1},
		{"images_instrumented_total", p.instrumented, 1},
		{"probes_total{absent}", p.probesTotal.WithLabelValues(ProbeAbsent), 1},
		{"probes_total{cache_hit}", p.probesTotal.WithLabelValues(ProbeCacheHit), 1},
		{"retries_total{1}", p.retriesTotal.WithLabelValues("1"), 1},
		{"retries_total{2}", p.retriesTotal.WithLabelValues("2"), 2},
		{"broken_total", p.brokenTotal, 1},
		{"recovered_total", p.recoveredTotal, 1},
		{"pages_rewritten_total", p.pagesRewritten, 1},
	}
	for _, tt := range tests {
		if got := metricCounterValue(t, tt.c); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}

	// Cache hits are not probes on the wire and are not timed.
	if got := metricHistogramCount(t, p.probeDuration); got != 1 {
		t.Errorf("probe_duration_seconds count = %d, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "test_broken_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected test_broken_total to be registered under the namespace")
	}
}

func TestPrometheusDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheus(WithRegistry(reg))

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	NewPrometheus(WithRegistry(reg))
}
