// Package cache provides a small generic memoization map used for
// append-mostly GPU object caches (render passes, layouts).
package cache

import "sync"

// Memo is a generic thread-safe memoization cache. Entries are created at
// most once per key; creation errors are not cached, so a failed key is
// retried on next request.
//
// Memo is safe for concurrent use and must not be copied after creation.
type Memo[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]V
}

// New creates an empty memo cache.
func New[K comparable, V any]() *Memo[K, V] {
	return &Memo[K, V]{entries: make(map[K]V)}
}

// Get retrieves a value from the cache.
// Returns (value, true) if found, (zero, false) otherwise.
func (c *Memo[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries[key]
	return v, ok
}

// GetOrCreate returns the cached value for key, calling create on first
// reference. create runs under the cache lock so a key is never created
// twice. If create fails, nothing is stored and the error is returned.
func (c *Memo[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.entries[key]; ok {
		return v, nil
	}

	v, err := create()
	if err != nil {
		var zero V
		return zero, err
	}

	c.entries[key] = v
	return v, nil
}

// Delete removes an entry from the cache.
// Returns true if the entry was found and removed.
func (c *Memo[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		return true
	}
	return false
}

// Clear removes all entries. The previous entries are returned so the
// caller can release any resources they own.
func (c *Memo[K, V]) Clear() map[K]V {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.entries
	c.entries = make(map[K]V)
	return old
}

// Len returns the number of entries in the cache.
func (c *Memo[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
