package retry

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/daxnoob/lazyimg/pkg/dom"
	"github.com/daxnoob/lazyimg/pkg/eventloop"
)

// fakeProber answers from a status table and counts calls per locator.
type fakeProber struct {
	mu       sync.Mutex
	statuses map[string]int
	errs     map[string]error
	calls    map[string]int
}

func newFakeProber() *fakeProber {
	return &fakeProber{
		statuses: make(map[string]int),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (f *fakeProber) Probe(_ context.Context, locator string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[locator]++
	if err, ok := f.errs[locator]; ok {
		return 0, err
	}
	if s, ok := f.statuses[locator]; ok {
		return s, nil
	}
	return http.StatusOK, nil
}

func (f *fakeProber) Calls(locator string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[locator]
}

var epoch = time.Unix(1_700_000_000, 0)

// newTestController wires a controller that runs probes synchronously and
// schedules timers on a manual clock.
func newTestController(p Prober, opts ...Option) (*Controller, *eventloop.ManualClock) {
	clock := eventloop.NewManualClock(epoch)
	base := []Option{
		WithProber(p),
		WithClock(clock),
		WithDispatcher(eventloop.Inline{}),
		WithAsync(func(fn func()) { fn() }),
	}
	return New(append(base, opts...)...), clock
}

func src(n *dom.Node) string {
	v, _ := n.GetAttribute(dom.AttrSrc)
	return v
}

func TestAttachIsIdempotent(t *testing.T) {
	c, _ := newTestController(newFakeProber())
	img := dom.Img(dom.Src("/a.png"))
	tree := dom.NewTree(800, img)

	if n := c.Instrument(tree); n != 1 {
		t.Fatalf("first Instrument() = %d, want 1", n)
	}
	if n := c.Instrument(tree); n != 0 {
		t.Fatalf("second Instrument() = %d, want 0", n)
	}
	if c.Attach(img) {
		t.Error("Attach() on an instrumented image should report false")
	}

	if got := img.ListenerCount(dom.EventError); got != 1 {
		t.Errorf("error listeners = %d, want 1", got)
	}
	if got := img.ListenerCount(dom.EventLoad); got != 1 {
		t.Errorf("load listeners = %d, want 1", got)
	}
	if v, _ := img.Data(DataInstrumented); v != "true" {
		t.Errorf("data-%s = %q, want true", DataInstrumented, v)
	}
}

type releasableImage struct {
	*dom.Node
	released int
}

func (r *releasableImage) Release() { r.released++ }

type imageList []dom.Element

func (l imageList) Images() []dom.Element { return l }
func (imageList) ViewportHeight() float64 { return 800 }

func TestInstrumentReleasesDetachedImages(t *testing.T) {
	c, _ := newTestController(newFakeProber())
	a := &releasableImage{Node: dom.Img(dom.Src("/a.png"))}
	b := &releasableImage{Node: dom.Img(dom.Src("/b.png"))}

	if n := c.Instrument(imageList{a, b}); n != 2 {
		t.Fatalf("Instrument() = %d, want 2", n)
	}
	if n := c.Instrument(imageList{b}); n != 0 {
		t.Fatalf("Instrument() after removal = %d, want 0", n)
	}
	if c.Tracked() != 1 {
		t.Errorf("Tracked() = %d, want 1", c.Tracked())
	}
	if a.released != 1 || b.released != 0 {
		t.Errorf("released = %d/%d, want 1/0", a.released, b.released)
	}
	if v, _ := a.Data(DataInstrumented); v != "" {
		t.Errorf("released image keeps marker %q", v)
	}

	// A node that comes back is instrumented again.
	if n := c.Instrument(imageList{a, b}); n != 1 {
		t.Errorf("Instrument() after reinsertion = %d, want 1", n)
	}
	if c.Tracked() != 2 {
		t.Errorf("Tracked() = %d, want 2", c.Tracked())
	}
}

func TestInstrumentForgetsReplacedContent(t *testing.T) {
	c, _ := newTestController(newFakeProber())
	old := dom.Img(dom.Src("/old.png"))
	tree := dom.NewTree(800, old)
	c.Instrument(tree)

	tree.Replace(dom.Img(dom.Src("/new.png")))
	if n := c.Instrument(tree); n != 1 {
		t.Fatalf("Instrument() = %d, want 1", n)
	}
	if c.Tracked() != 1 {
		t.Errorf("Tracked() = %d, want 1", c.Tracked())
	}
	if c.Retries(old) != 0 {
		t.Error("replaced image should have no state")
	}
	// Listeners on plain nodes stay, so the marker does too.
	if v, _ := old.Data(DataInstrumented); v != "true" {
		t.Errorf("marker = %q, want true", v)
	}
}

func TestNotFoundMarksBrokenWithoutRetry(t *testing.T) {
	p := newFakeProber()
	p.statuses["/img/missing.png"] = http.StatusNotFound
	c, clock := newTestController(p)

	img := dom.Img(dom.Src("/img/missing.png?v=3"))
	c.Instrument(dom.NewTree(800, img))

	img.Dispatch(dom.EventError)

	if got := p.Calls("/img/missing.png"); got != 1 {
		t.Errorf("probes = %d, want 1", got)
	}
	if clock.Pending() != 0 {
		t.Errorf("pending timers = %d, want 0", clock.Pending())
	}
	if got := img.Style(dom.StyleOpacity); got != BrokenOpacity {
		t.Errorf("opacity = %q, want %q", got, BrokenOpacity)
	}
	if got := img.Style(dom.StyleBorder); !strings.Contains(got, "dashed") {
		t.Errorf("border = %q, want dashed", got)
	}
	if got, _ := img.Data(DataOriginalSrc); got != "/img/missing.png" {
		t.Errorf("data-original-src = %q", got)
	}
	if c.Retries(img) != 0 {
		t.Errorf("Retries() = %d, want 0", c.Retries(img))
	}

	clock.Advance(time.Minute)
	if got := src(img); got != "/img/missing.png?v=3" {
		t.Errorf("src changed to %q, want no retry", got)
	}
}

func TestNotFoundCacheSkipsSecondProbe(t *testing.T) {
	p := newFakeProber()
	p.statuses["/img/gone.png"] = http.StatusNotFound
	c, _ := newTestController(p)

	a := dom.Img(dom.Src("/img/gone.png"))
	b := dom.Img(dom.Src("/img/gone.png?x=1"))
	c.Instrument(dom.NewTree(800, a, b))

	a.Dispatch(dom.EventError)
	b.Dispatch(dom.EventError)

	if got := p.Calls("/img/gone.png"); got != 1 {
		t.Errorf("probes = %d, want 1 (second answered from cache)", got)
	}
	if !c.Cache().Contains("/img/gone.png") {
		t.Error("cache should contain the locator")
	}
	if b.Style(dom.StyleOpacity) != BrokenOpacity {
		t.Error("second image should be styled broken")
	}
}

func TestTransientFailureLinearBackoff(t *testing.T) {
	p := newFakeProber()
	p.statuses["/img/flaky.png"] = http.StatusServiceUnavailable
	c, clock := newTestController(p)

	img := dom.Img(dom.Src("/img/flaky.png"))
	c.Instrument(dom.NewTree(800, img))

	var sources []string
	for attempt := 1; attempt <= 3; attempt++ {
		img.Dispatch(dom.EventError)
		if c.Retries(img) != attempt {
			t.Fatalf("attempt %d: Retries() = %d", attempt, c.Retries(img))
		}

		// One millisecond short of the delay, nothing happens.
		want := time.Duration(attempt) * time.Second
		if fired := clock.Advance(want - time.Millisecond); fired != 0 {
			t.Fatalf("attempt %d: retry fired early", attempt)
		}
		if fired := clock.Advance(time.Millisecond); fired != 1 {
			t.Fatalf("attempt %d: retry did not fire at %v", attempt, want)
		}
		sources = append(sources, src(img))
	}

	// Fourth failure: budget exhausted.
	img.Dispatch(dom.EventError)
	if clock.Pending() != 0 {
		t.Fatalf("pending timers after exhaustion = %d, want 0", clock.Pending())
	}
	clock.Advance(time.Hour)

	wantDelays := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}
	delays := clock.Delays()
	if len(delays) != len(wantDelays) {
		t.Fatalf("delays = %v, want %v", delays, wantDelays)
	}
	for i := range wantDelays {
		if delays[i] != wantDelays[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], wantDelays[i])
		}
	}

	// Every attempt reloads the original source with a fresh stamp.
	seen := make(map[string]bool)
	for _, s := range sources {
		if !strings.HasPrefix(s, "/img/flaky.png?t=") {
			t.Errorf("retry src = %q, want original with ?t=", s)
		}
		if seen[s] {
			t.Errorf("retry src %q repeated", s)
		}
		seen[s] = true
	}
	if got := p.Calls("/img/flaky.png"); got != 4 {
		t.Errorf("probes = %d, want 4 (one per failure)", got)
	}
	if c.Cache().Len() != 0 {
		t.Error("non-404 results must not be cached")
	}
	if img.Style(dom.StyleOpacity) != "" {
		t.Error("transient failures must not apply broken styling")
	}
}

func TestTransportErrorFailsOpen(t *testing.T) {
	p := newFakeProber()
	p.errs["/img/a.png"] = fmt.Errorf("%w: connection refused", ErrProbeTransport)
	c, clock := newTestController(p)

	img := dom.Img(dom.Src("/img/a.png"))
	c.Instrument(dom.NewTree(800, img))
	img.Dispatch(dom.EventError)

	if clock.Pending() != 1 {
		t.Fatalf("pending timers = %d, want 1 retry", clock.Pending())
	}
	if c.Cache().Contains("/img/a.png") {
		t.Error("transport errors must not be cached as absent")
	}
	if img.Style(dom.StyleOpacity) != "" {
		t.Error("transport errors must not mark the image broken")
	}
}

func TestSuccessResetsCounterAndStyling(t *testing.T) {
	p := newFakeProber()
	p.statuses["/img/b.png"] = http.StatusInternalServerError
	c, clock := newTestController(p)

	img := dom.Img(dom.Src("/img/b.png"))
	c.Instrument(dom.NewTree(800, img))

	img.Dispatch(dom.EventError)
	clock.Advance(time.Second)
	img.Dispatch(dom.EventError)
	clock.Advance(2 * time.Second)
	if c.Retries(img) != 2 {
		t.Fatalf("Retries() = %d, want 2", c.Retries(img))
	}

	// Leftover styling from an earlier classification.
	img.SetStyle(dom.StyleOpacity, BrokenOpacity)
	img.SetStyle(dom.StyleBorder, BrokenBorder)

	img.Dispatch(dom.EventLoad)

	if c.Retries(img) != 0 {
		t.Errorf("Retries() after load = %d, want 0", c.Retries(img))
	}
	if img.Style(dom.StyleOpacity) != "" || img.Style(dom.StyleBorder) != "" {
		t.Error("load should clear broken styling")
	}

	// The budget is fresh again: the next failure waits one unit.
	img.Dispatch(dom.EventError)
	delays := clock.Delays()
	if last := delays[len(delays)-1]; last != time.Second {
		t.Errorf("delay after reset = %v, want 1s", last)
	}
}

// A load that arrives while a retry is pending does not cancel the timer; the
// timer still reassigns src. Kept deliberately: the browser script behaves the
// same way.
func TestPendingRetryFiresAfterSuccess(t *testing.T) {
	p := newFakeProber()
	p.statuses["/img/c.png"] = http.StatusBadGateway
	c, clock := newTestController(p)

	img := dom.Img(dom.Src("/img/c.png"))
	c.Instrument(dom.NewTree(800, img))

	img.Dispatch(dom.EventError)
	img.Dispatch(dom.EventLoad)
	if c.Retries(img) != 0 {
		t.Fatalf("Retries() = %d, want 0", c.Retries(img))
	}

	before := src(img)
	if fired := clock.Advance(time.Second); fired != 1 {
		t.Fatalf("pending retry fired %d times, want 1", fired)
	}
	if after := src(img); after == before || !strings.HasPrefix(after, "/img/c.png?t=") {
		t.Errorf("src = %q, want redundant reload with cache-busting query", after)
	}
}

func TestOriginalSourceRemembered(t *testing.T) {
	p := newFakeProber()
	p.statuses["/img/d.png"] = http.StatusServiceUnavailable
	c, clock := newTestController(p)

	img := dom.Img(dom.Src("/img/d.png?size=large"))
	c.Instrument(dom.NewTree(800, img))

	img.Dispatch(dom.EventError)
	clock.Advance(time.Second)

	// The retry dropped the original query; the remembered source wins.
	if got := OriginalSource(img); got != "/img/d.png" {
		t.Errorf("OriginalSource() = %q", got)
	}
	img.Dispatch(dom.EventError)
	if p.Calls("/img/d.png") != 2 {
		t.Errorf("probes = %d, want 2", p.Calls("/img/d.png"))
	}
}

func TestRetryStampUsesFireTime(t *testing.T) {
	p := newFakeProber()
	p.statuses["/e.png"] = http.StatusServiceUnavailable
	c, clock := newTestController(p)

	img := dom.Img(dom.Src("/e.png"))
	c.Instrument(dom.NewTree(800, img))
	img.Dispatch(dom.EventError)
	clock.Advance(time.Second)

	want := CacheBust("/e.png", epoch.Add(time.Second))
	if got := src(img); got != want {
		t.Errorf("src = %q, want %q", got, want)
	}
}

func TestZeroMaxRetries(t *testing.T) {
	p := newFakeProber()
	p.statuses["/f.png"] = http.StatusServiceUnavailable
	c, clock := newTestController(p, WithMaxRetries(0))

	img := dom.Img(dom.Src("/f.png"))
	c.Instrument(dom.NewTree(800, img))
	img.Dispatch(dom.EventError)

	if clock.Pending() != 0 {
		t.Errorf("pending = %d, want 0", clock.Pending())
	}
}

func TestCustomBaseDelay(t *testing.T) {
	p := newFakeProber()
	p.statuses["/g.png"] = http.StatusServiceUnavailable
	c, clock := newTestController(p, WithBaseDelay(250*time.Millisecond))

	img := dom.Img(dom.Src("/g.png"))
	c.Instrument(dom.NewTree(800, img))
	img.Dispatch(dom.EventError)
	clock.Advance(250 * time.Millisecond)
	img.Dispatch(dom.EventError)

	d := clock.Delays()
	if len(d) != 2 || d[0] != 250*time.Millisecond || d[1] != 500*time.Millisecond {
		t.Errorf("delays = %v", d)
	}
}

func TestInjectedCacheSharedAcrossControllers(t *testing.T) {
	cache := NewNotFoundCache()
	cache.MarkAbsent("/known-missing.png")
	p := newFakeProber()
	c, _ := newTestController(p, WithCache(cache))

	img := dom.Img(dom.Src("/known-missing.png"))
	c.Instrument(dom.NewTree(800, img))
	img.Dispatch(dom.EventError)

	if p.Calls("/known-missing.png") != 0 {
		t.Error("cached locator should not be probed")
	}
	if img.Style(dom.StyleOpacity) != BrokenOpacity {
		t.Error("cached locator should be styled broken")
	}
	if c.Cache() != cache {
		t.Error("Cache() should return the injected cache")
	}
}

func TestControllerWithEventLoop(t *testing.T) {
	p := newFakeProber()
	p.statuses["/h.png"] = http.StatusNotFound
	loop := eventloop.New(16, nil)
	clock := eventloop.NewManualClock(epoch)

	var wg sync.WaitGroup
	c := New(
		WithProber(p),
		WithClock(clock),
		WithDispatcher(loop),
		WithAsync(func(fn func()) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				fn()
			}()
		}),
	)

	img := dom.Img(dom.Src("/h.png"))
	c.Instrument(dom.NewTree(800, img))
	img.Dispatch(dom.EventError)
	if c.Retries(img) != 0 || img.HasAttribute(DataOriginalSrc) {
		t.Fatal("error handled before the loop ran it")
	}
	if n := loop.Drain(); n != 1 {
		t.Fatalf("Drain() = %d, want 1", n)
	}

	wg.Wait()
	// Nothing touches the element until the loop runs the continuation.
	if img.Style(dom.StyleOpacity) != "" {
		t.Fatal("element mutated off the loop")
	}
	if n := loop.Drain(); n != 1 {
		t.Fatalf("Drain() = %d, want 1", n)
	}
	if img.Style(dom.StyleOpacity) != BrokenOpacity {
		t.Error("continuation should mark the image broken")
	}
}

func TestStripQueryAndCacheBust(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/a.png", "/a.png"},
		{"/a.png?t=1", "/a.png"},
		{"https://x.dev/a.png?w=1&h=2", "https://x.dev/a.png"},
		{"/a.png?", "/a.png"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripQuery(tt.in); got != tt.want {
			t.Errorf("StripQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if got := CacheBust("/a.png", time.UnixMilli(1234)); got != "/a.png?t=1234" {
		t.Errorf("CacheBust() = %q", got)
	}
}
