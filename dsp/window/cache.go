package window

import "sync"

type cacheKey struct {
	typ      Type
	length   int
	periodic bool
}

// Cache memoizes generated windows. Returned slices are shared and must be
// treated as read-only. A Cache is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	windows map[cacheKey][]float64
}

// NewCache returns an empty window cache.
func NewCache() *Cache {
	return &Cache{windows: make(map[cacheKey][]float64)}
}

// Get returns the cached window for (t, length), generating it on first use.
func (c *Cache) Get(t Type, length int, opts ...Option) []float64 {
	key := cacheKey{typ: t, length: length, periodic: newConfig(opts).periodic}

	c.mu.RLock()
	w, ok := c.windows[key]
	c.mu.RUnlock()

	if ok {
		return w
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if w, ok = c.windows[key]; ok {
		return w
	}

	w = Generate(t, length, opts...)
	c.windows[key] = w

	return w
}

// Len reports the number of cached windows.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.windows)
}
