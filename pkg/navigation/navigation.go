// Package navigation models the page-activation signal raised by client-side
// navigation frameworks when they swap page content without a full reload.
package navigation

import "sync"

// Stream is a source of page-activation events.
type Stream interface {
	// Subscribe registers fn for every future activation and returns a
	// function that removes the subscription.
	Subscribe(fn func()) (unsubscribe func())
}

// Hub is an in-memory Stream. Publish notifies subscribers synchronously in
// subscription order.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]func()
	ids  []int
}

var _ Stream = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]func())}
}

// Subscribe registers fn.
func (h *Hub) Subscribe(fn func()) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	h.subs[id] = fn
	h.ids = append(h.ids, id)

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(id) })
	}
}

func (h *Hub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
	for i, v := range h.ids {
		if v == id {
			h.ids = append(h.ids[:i], h.ids[i+1:]...)
			break
		}
	}
}

// Publish emits one activation.
func (h *Hub) Publish() {
	h.mu.Lock()
	fns := make([]func(), 0, len(h.ids))
	for _, id := range h.ids {
		fns = append(fns, h.subs[id])
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.ids)
}
