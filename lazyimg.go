// Package lazyimg improves how documentation pages load their images.
//
// An Enhancer runs two independent passes over a page's images:
//
//   - the viewport pass (package viewport) adds loading="lazy" and
//     decoding="async" where the author set nothing, and fetchpriority="high"
//     on images currently in the viewport;
//   - the retry pass (package retry) instruments every image once, retries
//     transient load failures with linear backoff and styles images whose
//     source answers 404 as broken.
//
// Both passes run when the document is ready and again on every page
// activation raised by client-side navigation:
//
//	enh := lazyimg.New(lazyimg.Config{
//	    Prober: retry.NewHTTPProber(retry.WithBaseURL(origin)),
//	})
//	stop := enh.Start(doc, doc, hub)
//	defer stop()
package lazyimg

import (
	"log/slog"

	"github.com/daxnoob/lazyimg/pkg/dom"
	"github.com/daxnoob/lazyimg/pkg/eventloop"
	"github.com/daxnoob/lazyimg/pkg/navigation"
	"github.com/daxnoob/lazyimg/pkg/retry"
	"github.com/daxnoob/lazyimg/pkg/viewport"
)

// Stats summarizes one run of both passes.
type Stats struct {
	Viewport     viewport.Stats
	Instrumented int // images newly given retry listeners
}

// Enhancer owns the passes and the page-session state they share.
type Enhancer struct {
	optimizer  *viewport.Optimizer
	controller *retry.Controller
	dispatcher eventloop.Dispatcher
	logger     *slog.Logger
	runs       int
}

// New creates an Enhancer. Zero fields of cfg take their defaults.
func New(cfg Config) *Enhancer {
	cfg = cfg.withDefaults()

	return &Enhancer{
		optimizer: viewport.New(
			viewport.WithLogger(cfg.Logger),
			viewport.WithMetrics(cfg.Metrics),
		),
		controller: retry.New(
			retry.WithMaxRetries(cfg.MaxRetries),
			retry.WithBaseDelay(cfg.BaseDelay),
			retry.WithProbeTimeout(cfg.ProbeTimeout),
			retry.WithProber(cfg.Prober),
			retry.WithCache(cfg.Cache),
			retry.WithClock(cfg.Clock),
			retry.WithDispatcher(cfg.Dispatcher),
			retry.WithAsync(cfg.Async),
			retry.WithLogger(cfg.Logger),
			retry.WithMetrics(cfg.Metrics),
		),
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger.With("component", "lazyimg"),
	}
}

// Controller returns the retry controller.
func (e *Enhancer) Controller() *retry.Controller { return e.controller }

// Optimizer returns the viewport optimizer.
func (e *Enhancer) Optimizer() *viewport.Optimizer { return e.optimizer }

// Runs returns how many times Run has executed.
func (e *Enhancer) Runs() int { return e.runs }

// Run executes both passes once over doc. When the dispatcher implements
// eventloop.Syncer the passes run serialized with pending image callbacks.
func (e *Enhancer) Run(doc dom.Document) Stats {
	var st Stats
	if s, ok := e.dispatcher.(eventloop.Syncer); ok {
		s.Do(func() { st = e.run(doc) })
	} else {
		st = e.run(doc)
	}
	return st
}

func (e *Enhancer) run(doc dom.Document) Stats {
	e.runs++
	st := Stats{
		Viewport:     e.optimizer.Optimize(doc),
		Instrumented: e.controller.Instrument(doc),
	}
	e.logger.Debug("image passes complete",
		"run", e.runs,
		"images", st.Viewport.Images,
		"instrumented", st.Instrumented)
	return st
}

// Start runs both passes when ready fires and, if nav is non-nil, again on
// every page activation. The returned function removes the navigation
// subscription.
func (e *Enhancer) Start(doc dom.Document, ready dom.ReadyNotifier, nav navigation.Stream) (stop func()) {
	if ready != nil {
		ready.OnReady(func() { e.Run(doc) })
	} else {
		e.Run(doc)
	}

	if nav == nil {
		return func() {}
	}
	return nav.Subscribe(func() { e.Run(doc) })
}
