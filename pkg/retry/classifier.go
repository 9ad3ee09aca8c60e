package retry

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/daxnoob/lazyimg/pkg/metrics"
)

// Classifier decides whether a locator is confirmed absent.
type Classifier struct {
	cache   *NotFoundCache
	prober  Prober
	timeout time.Duration
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewClassifier creates a classifier. A nil cache gets a fresh one; timeout
// <= 0 means DefaultProbeTimeout.
func NewClassifier(cache *NotFoundCache, prober Prober, timeout time.Duration, logger *slog.Logger, rec metrics.Recorder) *Classifier {
	if cache == nil {
		cache = NewNotFoundCache()
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Classifier{
		cache:   cache,
		prober:  prober,
		timeout: timeout,
		logger:  logger,
		metrics: rec,
	}
}

// Cache returns the not-found cache.
func (c *Classifier) Cache() *NotFoundCache { return c.cache }

// NotFound reports whether locator is confirmed absent. Cached locators
// answer without probing. A 404 is cached; any other status, and any probe
// error, reports false.
func (c *Classifier) NotFound(ctx context.Context, locator string) bool {
	if c.cache.Contains(locator) {
		c.metrics.ProbeDone(metrics.ProbeCacheHit, 0)
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	status, err := c.prober.Probe(ctx, locator)
	elapsed := time.Since(start)

	if err != nil {
		c.metrics.ProbeDone(metrics.ProbeError, elapsed)
		c.logger.Debug("probe failed, treating as transient",
			"locator", locator,
			"error", err)
		return false
	}
	if status == http.StatusNotFound {
		c.cache.MarkAbsent(locator)
		c.metrics.ProbeDone(metrics.ProbeAbsent, elapsed)
		return true
	}
	c.metrics.ProbeDone(metrics.ProbePresent, elapsed)
	return false
}
