// Package eventloop serializes DOM work onto a single logical thread.
//
// Browsers run page scripts on one thread; listeners, timers and network
// completions are queued and executed one at a time. The image passes rely on
// that: element state is never touched concurrently. In Go the same guarantee
// comes from a Dispatcher. Goroutines doing blocking work (existence probes)
// and timer callbacks (retry backoff) hand their continuation to Dispatch
// instead of mutating elements directly.
//
// Loop is a channel-backed Dispatcher drained by Run. Serial needs no
// goroutine: whoever finds it idle runs the queue, so work handed over by
// lookup goroutines, timers and the caller never overlaps. It is the default for
// embedding programs. Inline runs functions synchronously on the caller's
// goroutine; it is only safe when every producer runs on one thread, as in
// tests with synchronous probes or in the wasm build, where JavaScript
// callbacks and goroutines share a single thread.
//
// The package also defines Clock, the time source for backoff delays, with a
// wall-clock implementation and a ManualClock for deterministic tests.
package eventloop
