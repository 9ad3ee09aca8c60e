package retry

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/daxnoob/lazyimg/pkg/dom"
	"github.com/daxnoob/lazyimg/pkg/eventloop"
	"github.com/daxnoob/lazyimg/pkg/metrics"
)

// Defaults for the retry budget.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

// Dataset keys stored on instrumented images.
const (
	DataInstrumented = "has-error-handler"
	DataOriginalSrc  = "original-src"
)

// Broken-state styling for images confirmed absent.
const (
	BrokenOpacity = "0.3"
	BrokenBorder  = "1px dashed var(--md-default-fg-color--lightest)"
)

// CacheBustParam is the query parameter appended to retried sources.
const CacheBustParam = "t"

// imageState is the side-table entry for one instrumented image.
type imageState struct {
	retries int  // attempts scheduled since the last successful load
	failed  bool // an error was seen since the last successful load
}

// Controller instruments images and drives their retries.
type Controller struct {
	maxRetries int
	baseDelay  time.Duration
	clock      eventloop.Clock
	dispatcher eventloop.Dispatcher
	async      func(func())
	classifier *Classifier
	logger     *slog.Logger
	metrics    metrics.Recorder

	// options collected before the classifier is built
	cache        *NotFoundCache
	prober       Prober
	probeTimeout time.Duration

	mu     sync.Mutex
	states map[dom.Element]*imageState
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxRetries sets how many retries an image gets between successful loads.
func WithMaxRetries(n int) Option {
	return func(c *Controller) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBaseDelay sets the backoff unit; attempt n waits n × d.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.baseDelay = d
		}
	}
}

// WithClock sets the time source for backoff timers and cache-busting stamps.
func WithClock(clock eventloop.Clock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithDispatcher sets where listeners, probe results and timer callbacks run.
// The default is an eventloop.Serial owned by the controller. eventloop.Inline
// is only safe when the async function is synchronous or every callback
// already runs on one thread, as under wasm.
func WithDispatcher(d eventloop.Dispatcher) Option {
	return func(c *Controller) {
		if d != nil {
			c.dispatcher = d
		}
	}
}

// WithAsync sets how probes are started. The default starts a goroutine.
func WithAsync(run func(func())) Option {
	return func(c *Controller) {
		if run != nil {
			c.async = run
		}
	}
}

// WithCache injects the not-found cache, typically one per page session.
func WithCache(cache *NotFoundCache) Option {
	return func(c *Controller) {
		c.cache = cache
	}
}

// WithProber sets the existence prober. The default is NewHTTPProber().
func WithProber(p Prober) Option {
	return func(c *Controller) {
		c.prober = p
	}
}

// WithProbeTimeout bounds each existence probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.probeTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.Recorder) Option {
	return func(c *Controller) {
		if m != nil {
			c.metrics = m
		}
	}
}

// New creates a controller.
func New(opts ...Option) *Controller {
	c := &Controller{
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
		clock:      eventloop.SystemClock{},
		dispatcher: eventloop.NewSerial(nil),
		async:      func(fn func()) { go fn() },
		logger:     slog.Default(),
		metrics:    metrics.Noop{},
		states:     make(map[dom.Element]*imageState),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.prober == nil {
		c.prober = NewHTTPProber()
	}
	c.logger = c.logger.With("component", "retry")
	c.classifier = NewClassifier(c.cache, c.prober, c.probeTimeout, c.logger, c.metrics)
	return c
}

// Cache returns the controller's not-found cache.
func (c *Controller) Cache() *NotFoundCache { return c.classifier.Cache() }

// Instrument attaches to every image in doc and returns how many were newly
// instrumented. Images tracked from an earlier run that are no longer in doc
// are forgotten, and their listeners released when the element supports it.
func (c *Controller) Instrument(doc dom.Document) int {
	images := doc.Images()
	c.prune(images)

	n := 0
	for _, img := range images {
		if c.Attach(img) {
			n++
		}
	}
	return n
}

func (c *Controller) prune(current []dom.Element) {
	live := make(map[dom.Element]struct{}, len(current))
	for _, img := range current {
		live[img] = struct{}{}
	}

	var gone []dom.Element
	c.mu.Lock()
	for img := range c.states {
		if _, ok := live[img]; !ok {
			gone = append(gone, img)
			delete(c.states, img)
		}
	}
	c.mu.Unlock()

	for _, img := range gone {
		if r, ok := img.(dom.Releaser); ok {
			r.Release()
			// Without listeners the node must be instrumented again if it
			// comes back.
			img.SetData(DataInstrumented, "")
		}
	}
	if len(gone) > 0 {
		c.logger.Debug("released detached images", "count", len(gone))
	}
}

// Tracked returns how many images the controller holds state for.
func (c *Controller) Tracked() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.states)
}

// Attach adds the error and load listeners to img unless it already carries
// the instrumentation marker. It reports whether listeners were added.
func (c *Controller) Attach(img dom.Element) bool {
	if v, ok := img.Data(DataInstrumented); ok && v != "" {
		return false
	}
	img.SetData(DataInstrumented, "true")

	c.mu.Lock()
	c.states[img] = &imageState{}
	c.mu.Unlock()

	img.AddEventListener(dom.EventError, func() {
		c.dispatcher.Dispatch(func() { c.handleError(img) })
	})
	img.AddEventListener(dom.EventLoad, func() {
		c.dispatcher.Dispatch(func() { c.handleLoad(img) })
	})
	c.metrics.Instrumented()
	return true
}

// Retries returns the attempt counter for img, or 0 if it is not instrumented.
func (c *Controller) Retries(img dom.Element) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.states[img]; ok {
		return st.retries
	}
	return 0
}

// state returns the side-table entry for img, creating one if the element
// was instrumented by another controller sharing the page.
func (c *Controller) state(img dom.Element) *imageState {
	st, ok := c.states[img]
	if !ok {
		st = &imageState{}
		c.states[img] = st
	}
	return st
}

func (c *Controller) handleError(img dom.Element) {
	original := OriginalSource(img)
	img.SetData(DataOriginalSrc, original)

	c.mu.Lock()
	c.state(img).failed = true
	c.mu.Unlock()

	c.async(func() {
		absent := c.classifier.NotFound(context.Background(), original)
		c.dispatcher.Dispatch(func() {
			c.afterClassify(img, original, absent)
		})
	})
}

func (c *Controller) afterClassify(img dom.Element, original string, absent bool) {
	if absent {
		img.SetStyle(dom.StyleOpacity, BrokenOpacity)
		img.SetStyle(dom.StyleBorder, BrokenBorder)
		c.metrics.MarkedBroken()
		c.logger.Debug("image not found, marked broken", "src", original)
		return
	}

	c.mu.Lock()
	st := c.state(img)
	if st.retries >= c.maxRetries {
		c.mu.Unlock()
		c.logger.Debug("retries exhausted", "src", original, "retries", c.maxRetries)
		return
	}
	st.retries++
	attempt := st.retries
	c.mu.Unlock()

	delay := c.baseDelay * time.Duration(attempt)
	c.metrics.RetryScheduled(attempt)
	c.logger.Debug("retry scheduled",
		"src", original,
		"attempt", attempt,
		"delay", delay.String())

	// Not cancelled by a later successful load.
	c.clock.AfterFunc(delay, func() {
		c.dispatcher.Dispatch(func() {
			img.SetAttribute(dom.AttrSrc, CacheBust(original, c.clock.Now()))
		})
	})
}

func (c *Controller) handleLoad(img dom.Element) {
	c.mu.Lock()
	st := c.state(img)
	recovered := st.failed
	st.retries = 0
	st.failed = false
	c.mu.Unlock()

	img.SetStyle(dom.StyleOpacity, "")
	img.SetStyle(dom.StyleBorder, "")
	if recovered {
		c.metrics.Recovered()
	}
}

// OriginalSource returns the recorded data-original-src of img, or its src
// with any query string removed.
func OriginalSource(img dom.Element) string {
	if v, ok := img.Data(DataOriginalSrc); ok && v != "" {
		return v
	}
	src, _ := img.GetAttribute(dom.AttrSrc)
	return StripQuery(src)
}

// StripQuery removes everything from the first '?'.
func StripQuery(src string) string {
	if i := strings.IndexByte(src, '?'); i >= 0 {
		return src[:i]
	}
	return src
}

// CacheBust appends ?t=<unix millis> to original.
func CacheBust(original string, now time.Time) string {
	return original + "?" + CacheBustParam + "=" + strconv.FormatInt(now.UnixMilli(), 10)
}
