// Package viewport sets loading hints on image elements.
//
// Every image without an explicit loading hint becomes lazy, every image
// without an explicit decoding hint decodes asynchronously, and images that
// currently intersect the viewport are fetched with high priority. Hints the
// page author set are never overwritten, so a pass can run any number of times.
package viewport

import (
	"log/slog"

	"github.com/daxnoob/lazyimg/pkg/dom"
	"github.com/daxnoob/lazyimg/pkg/metrics"
)

// Hint values written by the optimizer.
const (
	LoadingLazy   = "lazy"
	DecodingAsync = "async"
	PriorityHigh  = "high"
)

// Stats summarizes one pass.
type Stats struct {
	Images      int // images visited
	Loading     int // loading hints added
	Decoding    int // decoding hints added
	Prioritized int // images in the viewport
}

// Optimizer applies loading hints.
type Optimizer struct {
	logger  *slog.Logger
	metrics metrics.Recorder
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.Recorder) Option {
	return func(o *Optimizer) {
		if m != nil {
			o.metrics = m
		}
	}
}

// New creates an optimizer.
func New(opts ...Option) *Optimizer {
	o := &Optimizer{
		logger:  slog.Default(),
		metrics: metrics.Noop{},
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "viewport")
	return o
}

// Optimize runs one pass over every image in doc.
func (o *Optimizer) Optimize(doc dom.Document) Stats {
	var st Stats
	height := doc.ViewportHeight()

	for _, img := range doc.Images() {
		st.Images++
		if !img.HasAttribute(dom.AttrLoading) {
			img.SetAttribute(dom.AttrLoading, LoadingLazy)
			o.metrics.HintApplied(dom.AttrLoading)
			st.Loading++
		}
		if !img.HasAttribute(dom.AttrDecoding) {
			img.SetAttribute(dom.AttrDecoding, DecodingAsync)
			o.metrics.HintApplied(dom.AttrDecoding)
			st.Decoding++
		}
		// Reassigned on every pass; the value is stable.
		if img.BoundingRect().IntersectsViewport(height) {
			img.SetAttribute(dom.AttrFetchPriority, PriorityHigh)
			o.metrics.HintApplied(dom.AttrFetchPriority)
			st.Prioritized++
		}
	}

	o.metrics.ImagesScanned(st.Images)
	o.logger.Debug("viewport pass complete",
		"images", st.Images,
		"loading", st.Loading,
		"decoding", st.Decoding,
		"prioritized", st.Prioritized)
	return st
}
