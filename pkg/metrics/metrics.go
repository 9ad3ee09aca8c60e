// Package metrics exports counters for the image passes.
//
// Recorder is the interface the passes report through. Noop discards
// everything; Prometheus registers collectors on a configurable registry.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Probe results used as label values.
const (
	ProbeAbsent   = "absent"
	ProbePresent  = "present"
	ProbeError    = "error"
	ProbeCacheHit = "cache_hit"
)

// Recorder receives events from the viewport and retry passes.
// Implementations must be safe for concurrent use.
type Recorder interface {
	// ImagesScanned records one optimizer pass over n images.
	ImagesScanned(n int)

	// HintApplied records that the optimizer set attribute on an image.
	HintApplied(attribute string)

	// Instrumented records a newly instrumented image.
	Instrumented()

	// ProbeDone records an existence probe outcome and how long it took.
	ProbeDone(result string, d time.Duration)

	// RetryScheduled records a retry with its 1-based attempt number.
	RetryScheduled(attempt int)

	// MarkedBroken records an image styled as broken.
	MarkedBroken()

	// Recovered records a successful load that reset retry state.
	Recovered()

	// PageRewritten records an HTML page annotated by the server.
	PageRewritten()
}

// Noop discards all events.
type Noop struct{}

func (Noop) ImagesScanned(int)               {}
func (Noop) HintApplied(string)              {}
func (Noop) Instrumented()                   {}
func (Noop) ProbeDone(string, time.Duration) {}
func (Noop) RetryScheduled(int)              {}
func (Noop) MarkedBroken()                   {}
func (Noop) Recovered()                      {}
func (Noop) PageRewritten()                  {}

// Config configures the Prometheus recorder.
type Config struct {
	// Namespace is the metrics namespace (default: "lazyimg").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for probe duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the Prometheus recorder.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the probe duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "lazyimg",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Prometheus is a Recorder backed by Prometheus collectors.
type Prometheus struct {
	imagesScanned  prometheus.Counter
	passes         prometheus.Counter
	hintsApplied   *prometheus.CounterVec
	instrumented   prometheus.Counter
	probesTotal    *prometheus.CounterVec
	probeDuration  prometheus.Histogram
	retriesTotal   *prometheus.CounterVec
	brokenTotal    prometheus.Counter
	recoveredTotal prometheus.Counter
	pagesRewritten prometheus.Counter
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus registers the collectors and returns the recorder.
//
// Metrics collected:
//   - lazyimg_optimizer_passes_total: optimizer passes
//   - lazyimg_images_scanned_total: images visited by the optimizer
//   - lazyimg_hints_applied_total: attributes set, by attribute
//   - lazyimg_images_instrumented_total: images given retry listeners
//   - lazyimg_probes_total: existence probes by result
//   - lazyimg_probe_duration_seconds: probe latency
//   - lazyimg_retries_total: scheduled retries by attempt
//   - lazyimg_broken_total: images styled as broken
//   - lazyimg_recovered_total: images that loaded after a failure
//   - lazyimg_pages_rewritten_total: HTML pages annotated by the server
//
// Registering twice on the same registry panics, as promauto does.
func NewPrometheus(opts ...Option) *Prometheus {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, labels)
	}

	return &Prometheus{
		passes:         counter("optimizer_passes_total", "Total number of viewport optimizer passes"),
		imagesScanned:  counter("images_scanned_total", "Total number of images visited by the optimizer"),
		hintsApplied:   counterVec("hints_applied_total", "Total number of loading hints set", "attribute"),
		instrumented:   counter("images_instrumented_total", "Total number of images given retry listeners"),
		probesTotal:    counterVec("probes_total", "Total number of existence probes by result", "result"),
		retriesTotal:   counterVec("retries_total", "Total number of scheduled image retries", "attempt"),
		brokenTotal:    counter("broken_total", "Total number of images marked broken after a 404"),
		recoveredTotal: counter("recovered_total", "Total number of images that loaded after a failure"),
		pagesRewritten: counter("pages_rewritten_total", "Total number of HTML pages annotated by the server"),
		probeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "probe_duration_seconds",
			Help:        "Existence probe duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
	}
}

func (p *Prometheus) ImagesScanned(n int) {
	p.passes.Inc()
	p.imagesScanned.Add(float64(n))
}

func (p *Prometheus) HintApplied(attribute string) {
	p.hintsApplied.WithLabelValues(attribute).Inc()
}

func (p *Prometheus) Instrumented() { p.instrumented.Inc() }

func (p *Prometheus) ProbeDone(result string, d time.Duration) {
	p.probesTotal.WithLabelValues(result).Inc()
	if result != ProbeCacheHit {
		p.probeDuration.Observe(d.Seconds())
	}
}

// RetryScheduled labels by attempt number; attempts are bounded by the retry
// limit so cardinality stays small.
func (p *Prometheus) RetryScheduled(attempt int) {
	p.retriesTotal.WithLabelValues(strconv.Itoa(attempt)).Inc()
}

func (p *Prometheus) MarkedBroken()  { p.brokenTotal.Inc() }
func (p *Prometheus) Recovered()     { p.recoveredTotal.Inc() }
func (p *Prometheus) PageRewritten() { p.pagesRewritten.Inc() }
