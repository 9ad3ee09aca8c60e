package eventloop

import (
	"log/slog"
	"runtime/debug"
	"sync"
)

// Serial is a Dispatcher without a goroutine of its own. The first caller to
// find it idle becomes the runner and executes queued functions until the
// queue is empty; callers that arrive while a runner is active only enqueue.
// Functions therefore never overlap, and a function may dispatch further
// work without deadlocking.
//
// The zero value is ready to use.
type Serial struct {
	mu      sync.Mutex
	queue   []func()
	running bool

	// Logger receives recovered panics. Nil means slog.Default().
	Logger *slog.Logger
}

// NewSerial creates a Serial that logs recovered panics to logger.
func NewSerial(logger *slog.Logger) *Serial {
	return &Serial{Logger: logger}
}

// Dispatch runs fn now if no other function is running, otherwise queues it
// behind the current runner.
func (s *Serial) Dispatch(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()
		s.safeExecute(next)
		s.mu.Lock()
	}
	s.running = false
	s.mu.Unlock()
}

// Do runs fn serialized with dispatched work and returns after it ran.
// It must not be called from a function running on s.
func (s *Serial) Do(fn func()) {
	done := make(chan struct{})
	s.Dispatch(func() {
		defer close(done)
		fn()
	})
	<-done
}

func (s *Serial) safeExecute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger := s.Logger
			if logger == nil {
				logger = slog.Default()
			}
			logger.Error("dispatched callback panic",
				"component", "eventloop",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}
