package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrProbeTransport marks a probe that did not get an answer from the origin.
// Classifiers treat it as inconclusive.
var ErrProbeTransport = errors.New("retry: probe transport error")

// DefaultProbeTimeout bounds a single existence probe.
const DefaultProbeTimeout = 10 * time.Second

const tracerName = "github.com/daxnoob/lazyimg/pkg/retry"

// Prober checks whether a resource exists without downloading it.
type Prober interface {
	// Probe returns the HTTP status the origin answered with. Errors that
	// mean "no answer" wrap ErrProbeTransport.
	Probe(ctx context.Context, locator string) (int, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, locator string) (int, error)

// Probe calls f.
func (f ProberFunc) Probe(ctx context.Context, locator string) (int, error) {
	return f(ctx, locator)
}

// HTTPProber probes with HEAD requests.
type HTTPProber struct {
	client    *http.Client
	base      *url.URL
	userAgent string
	tracer    trace.Tracer
}

// HTTPProberOption configures an HTTPProber.
type HTTPProberOption func(*HTTPProber)

// WithHTTPClient sets the client used for probes.
func WithHTTPClient(c *http.Client) HTTPProberOption {
	return func(p *HTTPProber) {
		if c != nil {
			p.client = c
		}
	}
}

// WithBaseURL resolves relative locators against base, typically the page's
// origin.
func WithBaseURL(base *url.URL) HTTPProberOption {
	return func(p *HTTPProber) {
		p.base = base
	}
}

// WithUserAgent sets the User-Agent header on probes.
func WithUserAgent(ua string) HTTPProberOption {
	return func(p *HTTPProber) {
		p.userAgent = ua
	}
}

// WithTracer sets the tracer used for probe spans.
func WithTracer(t trace.Tracer) HTTPProberOption {
	return func(p *HTTPProber) {
		if t != nil {
			p.tracer = t
		}
	}
}

// NewHTTPProber creates a prober. Without options it uses a client with
// DefaultProbeTimeout and the global OpenTelemetry tracer provider.
func NewHTTPProber(opts ...HTTPProberOption) *HTTPProber {
	p := &HTTPProber{
		client: &http.Client{Timeout: DefaultProbeTimeout},
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Resolve turns locator into an absolute URL.
func (p *HTTPProber) Resolve(locator string) (*url.URL, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return nil, err
	}
	if p.base != nil {
		u = p.base.ResolveReference(u)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("locator %q is not absolute and no base URL is set", locator)
	}
	return u, nil
}

// Probe sends a HEAD request for locator.
func (p *HTTPProber) Probe(ctx context.Context, locator string) (status int, err error) {
	ctx, span := p.tracer.Start(ctx, "lazyimg.probe",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", http.MethodHead),
			attribute.String("lazyimg.locator", locator),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("http.status_code", status))
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	u, err := p.Resolve(locator)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProbeTransport, err)
	}
	span.SetAttributes(attribute.String("http.url", u.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProbeTransport, err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProbeTransport, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
