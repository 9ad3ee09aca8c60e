package lazyimg

import (
	"log/slog"
	"time"

	"github.com/daxnoob/lazyimg/pkg/eventloop"
	"github.com/daxnoob/lazyimg/pkg/metrics"
	"github.com/daxnoob/lazyimg/pkg/retry"
)

// Config configures an Enhancer.
type Config struct {
	// MaxRetries is the number of retries per image between successful loads.
	// Default: 3. Use a negative value for no retries.
	MaxRetries int

	// BaseDelay is the backoff unit; retry n waits n × BaseDelay.
	// Default: 1s.
	BaseDelay time.Duration

	// ProbeTimeout bounds each existence probe.
	// Default: retry.DefaultProbeTimeout.
	ProbeTimeout time.Duration

	// Prober checks whether a failed image's source exists.
	// Default: retry.NewHTTPProber(), which needs absolute image URLs.
	Prober retry.Prober

	// Cache holds locators confirmed absent. Pass one per page session to
	// share it or to reset it; nil creates a fresh cache.
	Cache *retry.NotFoundCache

	// Clock drives backoff timers. Default: wall clock.
	Clock eventloop.Clock

	// Dispatcher serializes image listeners, probe results, timer callbacks
	// and the passes themselves. Default: a fresh eventloop.Serial.
	// eventloop.Inline is only safe with a synchronous Async or when every
	// callback already runs on one thread, as under wasm.
	Dispatcher eventloop.Dispatcher

	// Async starts existence probes. Default: one goroutine per probe.
	Async func(func())

	// Logger is the structured logger.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// Metrics receives pass and retry events. Default: metrics.Noop.
	Metrics metrics.Recorder
}

// DefaultConfig returns the configuration used for zero fields.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   retry.DefaultMaxRetries,
		BaseDelay:    retry.DefaultBaseDelay,
		ProbeTimeout: retry.DefaultProbeTimeout,
		Clock:        eventloop.SystemClock{},
		Dispatcher:   eventloop.NewSerial(nil),
		Logger:       slog.Default(),
		Metrics:      metrics.Noop{},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	switch {
	case c.MaxRetries == 0:
		c.MaxRetries = d.MaxRetries
	case c.MaxRetries < 0:
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = d.BaseDelay
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = d.ProbeTimeout
	}
	if c.Clock == nil {
		c.Clock = d.Clock
	}
	if c.Dispatcher == nil {
		c.Dispatcher = d.Dispatcher
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
	if s, ok := c.Dispatcher.(*eventloop.Serial); ok && s.Logger == nil {
		s.Logger = c.Logger
	}
	if c.Metrics == nil {
		c.Metrics = d.Metrics
	}
	return c
}
