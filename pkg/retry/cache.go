package retry

import "sync"

// NotFoundCache remembers locators confirmed absent. Entries are never
// evicted; the cache lives as long as the page session that owns it and is
// bounded by the number of distinct failing image URLs on one page view.
type NotFoundCache struct {
	mu     sync.RWMutex
	absent map[string]struct{}
}

// NewNotFoundCache creates an empty cache.
func NewNotFoundCache() *NotFoundCache {
	return &NotFoundCache{absent: make(map[string]struct{})}
}

// Contains reports whether locator is confirmed absent.
func (c *NotFoundCache) Contains(locator string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.absent[locator]
	return ok
}

// MarkAbsent records locator as confirmed absent.
func (c *NotFoundCache) MarkAbsent(locator string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.absent[locator] = struct{}{}
}

// Len returns the number of cached locators.
func (c *NotFoundCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.absent)
}

// Reset empties the cache, starting a new page session.
func (c *NotFoundCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.absent = make(map[string]struct{})
}
