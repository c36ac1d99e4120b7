package registry

import (
	"sync"
	"weak"
)

// cache maps keys to live entities without keeping them alive.
type cache[K comparable, T any] struct {
	mu      sync.Mutex
	entries map[K]weak.Pointer[T]
}

func newCache[K comparable, T any]() *cache[K, T] {
	return &cache[K, T]{entries: make(map[K]weak.Pointer[T])}
}

// getOrCreate returns the live entry for key, calling create (with the cache
// locked) when there is none.
func (c *cache[K, T]) getOrCreate(key K, create func() *T) (v *T, created bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if wp, ok := c.entries[key]; ok {
		if v := wp.Value(); v != nil {
			return v, false
		}
	}
	v = create()
	c.entries[key] = weak.Make(v)
	return v, true
}

func (c *cache[K, T]) get(key K) *T {
	c.mu.Lock()
	defer c.mu.Unlock()

	if wp, ok := c.entries[key]; ok {
		return wp.Value()
	}
	return nil
}

func (c *cache[K, T]) put(key K, v *T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = weak.Make(v)
}

// sweep drops entries whose entity has been collected.
func (c *cache[K, T]) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, wp := range c.entries {
		if wp.Value() == nil {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *cache[K, T]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
