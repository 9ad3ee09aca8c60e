package eventloop

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// DefaultQueueSize is the dispatch queue capacity used when none is given.
const DefaultQueueSize = 256

// ErrLoopClosed is returned by Run when the loop was closed before it started.
var ErrLoopClosed = errors.New("eventloop: loop closed")

// Dispatcher runs continuations on the owning event loop.
type Dispatcher interface {
	// Dispatch queues fn. Safe to call from any goroutine.
	Dispatch(fn func())
}

// Inline is a Dispatcher that runs functions immediately on the caller's
// goroutine.
type Inline struct{}

// Dispatch runs fn.
func (Inline) Dispatch(fn func()) { fn() }

// Do runs fn.
func (Inline) Do(fn func()) { fn() }

// Syncer is implemented by dispatchers that can run a function serialized
// with their queued work and wait for it.
type Syncer interface {
	Do(fn func())
}

var (
	_ Syncer = Inline{}
	_ Syncer = (*Serial)(nil)
)

// Loop is a serialized executor. Functions queued with Dispatch run one at a
// time, in order, on the goroutine that called Run.
type Loop struct {
	queue     chan func()
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
	logger    *slog.Logger

	executed atomic.Uint64
	dropped  atomic.Uint64
}

// New creates a loop with the given queue capacity.
func New(size int, logger *slog.Logger) *Loop {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		queue:  make(chan func(), size),
		done:   make(chan struct{}),
		logger: logger.With("component", "eventloop"),
	}
}

// Dispatch queues fn to run on the loop. Calls after Close are discarded, as
// are calls made while the queue is full.
func (l *Loop) Dispatch(fn func()) {
	if fn == nil || l.closed.Load() {
		return
	}
	select {
	case l.queue <- fn:
	case <-l.done:
	default:
		l.dropped.Add(1)
		l.logger.Warn("dispatch queue full, discarding callback")
	}
}

// Run executes queued functions until ctx is done or Close is called.
// It returns ctx.Err() on cancellation and nil after Close.
func (l *Loop) Run(ctx context.Context) error {
	if l.closed.Load() {
		return ErrLoopClosed
	}
	for {
		select {
		case fn := <-l.queue:
			l.safeExecute(fn)
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		}
	}
}

// Drain runs every function currently queued and returns how many ran.
// Intended for callers that own the thread, such as tests.
func (l *Loop) Drain() int {
	n := 0
	for {
		select {
		case fn := <-l.queue:
			l.safeExecute(fn)
			n++
		default:
			return n
		}
	}
}

// Close stops the loop. Queued functions that have not run are discarded.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.done)
	})
}

// Stats returns how many functions ran and how many were dropped.
func (l *Loop) Stats() (executed, dropped uint64) {
	return l.executed.Load(), l.dropped.Load()
}

// safeExecute runs fn with panic recovery so one bad listener cannot stop
// the loop.
func (l *Loop) safeExecute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("dispatched callback panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	l.executed.Add(1)
	fn()
}
