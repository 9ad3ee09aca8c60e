// Package rewrite applies the viewport pass to HTML pages before they reach a
// browser, either one document at a time or as HTTP middleware.
//
// Pre-annotated pages get their loading hints even when the browser script
// has not run yet, which matters for the first paint. The browser pass still
// runs later and leaves these hints alone.
package rewrite

import (
	"bytes"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/daxnoob/lazyimg/pkg/dom/htmldom"
	"github.com/daxnoob/lazyimg/pkg/metrics"
	"github.com/daxnoob/lazyimg/pkg/viewport"
)

// DefaultMaxBodyBytes caps how much of an HTML response the middleware
// buffers.
const DefaultMaxBodyBytes = 8 << 20

// Rewriter annotates HTML documents.
type Rewriter struct {
	optimizer      *viewport.Optimizer
	viewportHeight float64
	imageHeight    float64
	maxBodyBytes   int
	logger         *slog.Logger
	metrics        metrics.Recorder
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithLayout sets the viewport and default image heights for the layout
// estimate.
func WithLayout(viewportHeight, imageHeight float64) Option {
	return func(r *Rewriter) {
		r.viewportHeight = viewportHeight
		r.imageHeight = imageHeight
	}
}

// WithMaxBodyBytes sets the largest response the middleware rewrites; larger
// responses pass through untouched.
func WithMaxBodyBytes(n int) Option {
	return func(r *Rewriter) {
		if n > 0 {
			r.maxBodyBytes = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Rewriter) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder, shared with the optimizer.
func WithMetrics(m metrics.Recorder) Option {
	return func(r *Rewriter) {
		if m != nil {
			r.metrics = m
		}
	}
}

// New creates a Rewriter.
func New(opts ...Option) *Rewriter {
	r := &Rewriter{
		viewportHeight: htmldom.DefaultViewportHeight,
		imageHeight:    htmldom.DefaultImageHeight,
		maxBodyBytes:   DefaultMaxBodyBytes,
		logger:         slog.Default(),
		metrics:        metrics.Noop{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "rewrite")
	r.optimizer = viewport.New(
		viewport.WithLogger(r.logger),
		viewport.WithMetrics(r.metrics),
	)
	return r
}

// Rewrite parses src, runs the viewport pass and renders the result to dst.
func (r *Rewriter) Rewrite(dst io.Writer, src io.Reader) (viewport.Stats, error) {
	doc, err := htmldom.Parse(src,
		htmldom.WithViewportHeight(r.viewportHeight),
		htmldom.WithDefaultImageHeight(r.imageHeight),
	)
	if err != nil {
		return viewport.Stats{}, err
	}
	st := r.optimizer.Optimize(doc)
	if err := doc.Render(dst); err != nil {
		return st, err
	}
	r.metrics.PageRewritten()
	return st, nil
}

// Middleware rewrites successful text/html responses from next.
//
// The decision is made when next first writes: anything that is not an
// uncompressed 200 text/html response streams straight through. HTML bodies
// are buffered up to the size limit; a larger page is flushed as-is and the
// rest of it streams.
func (r *Rewriter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			next.ServeHTTP(w, req)
			return
		}

		cw := &captureWriter{w: w, header: make(http.Header), status: http.StatusOK, limit: r.maxBodyBytes}
		next.ServeHTTP(cw, req)

		if cw.mode != modeBuffer {
			_ = cw.passThrough()
			return
		}

		var out bytes.Buffer
		st, err := r.Rewrite(&out, bytes.NewReader(cw.body.Bytes()))
		if err != nil {
			r.logger.Warn("rewrite failed, serving original", "path", req.URL.Path, "error", err)
			_ = cw.passThrough()
			return
		}
		r.logger.Debug("page rewritten", "path", req.URL.Path, "images", st.Images)

		copyHeader(w.Header(), cw.header)
		w.Header().Set("Content-Length", strconv.Itoa(out.Len()))
		w.Header().Del("ETag")
		w.WriteHeader(cw.status)
		_, _ = w.Write(out.Bytes())
	})
}

type writeMode int

const (
	modeUndecided writeMode = iota
	modeBuffer
	modePass
)

// captureWriter holds back an HTML response so it can be rewritten and
// forwards everything else to w as it arrives.
type captureWriter struct {
	w      http.ResponseWriter
	header http.Header
	status int
	wrote  bool
	mode   writeMode
	body   bytes.Buffer
	limit  int
}

func (c *captureWriter) Header() http.Header {
	if c.mode == modePass {
		return c.w.Header()
	}
	return c.header
}

func (c *captureWriter) WriteHeader(status int) {
	if c.wrote {
		return
	}
	c.wrote = true
	c.status = status
	// A 200 waits for the first body bytes in case the type must be sniffed.
	if status != http.StatusOK {
		c.passThrough()
	}
}

func (c *captureWriter) Write(p []byte) (int, error) {
	if !c.wrote {
		c.WriteHeader(http.StatusOK)
	}
	if c.mode == modeUndecided {
		if c.isHTML(p) {
			c.mode = modeBuffer
		} else {
			c.passThrough()
		}
	}
	if c.mode == modePass {
		return c.w.Write(p)
	}
	if c.body.Len()+len(p) > c.limit {
		if err := c.passThrough(); err != nil {
			return 0, err
		}
		return c.w.Write(p)
	}
	return c.body.Write(p)
}

// isHTML reports whether the response is an uncompressed HTML page, sniffing
// first when no Content-Type was set.
func (c *captureWriter) isHTML(first []byte) bool {
	if c.header.Get("Content-Encoding") != "" {
		return false
	}
	ct := c.header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(first)
	}
	mt, _, err := mime.ParseMediaType(ct)
	return err == nil && mt == "text/html"
}

// passThrough sends the held header and any buffered body to w and makes
// later writes go straight to it.
func (c *captureWriter) passThrough() error {
	if c.mode == modePass {
		return nil
	}
	c.mode = modePass
	copyHeader(c.w.Header(), c.header)
	c.w.WriteHeader(c.status)
	if c.body.Len() == 0 {
		return nil
	}
	_, err := c.w.Write(c.body.Bytes())
	c.body.Reset()
	return err
}

// Flush forwards to w once the response is streaming.
func (c *captureWriter) Flush() {
	if c.mode != modePass {
		return
	}
	if f, ok := c.w.(http.Flusher); ok {
		f.Flush()
	}
}

func copyHeader(dst, src http.Header) {
	for k, vs := range src {
		dst[k] = append([]string(nil), vs...)
	}
}
