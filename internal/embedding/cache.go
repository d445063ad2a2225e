package embedding

import "sync"

// DefaultCacheCapacity is the fallback entry bound when the caller
// passes a non-positive capacity.
const DefaultCacheCapacity = 2048

// cacheKey addresses one vector by provider and normalized-text hash.
type cacheKey struct {
	provider string
	textHash string
}

// Cache is a bounded vector cache with strict insertion-order (FIFO)
// eviction. Embedding reuse is driven by exact text repeats rather
// than recency-weighted access, so a Get never promotes an entry.
//
// Safe for concurrent use by multiple goroutines.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[cacheKey]Vector
	queue    []cacheKey // insertion order, oldest first
}

// NewCache creates a cache bounded to capacity entries.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[cacheKey]Vector, capacity),
		queue:    make([]cacheKey, 0, capacity),
	}
}

// Get returns the cached vector for (providerID, textHash), if any.
func (c *Cache) Get(providerID, textHash string) (Vector, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries[cacheKey{provider: providerID, textHash: textHash}]
	return v, ok
}

// Put stores a vector under (providerID, textHash). Re-putting an
// existing key replaces the value but keeps its original eviction
// position. When the bound is exceeded the oldest entry is evicted.
func (c *Cache) Put(providerID, textHash string, v Vector) {
	key := cacheKey{provider: providerID, textHash: textHash}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = v
		return
	}

	c.entries[key] = v
	c.queue = append(c.queue, key)

	if len(c.entries) > c.capacity {
		oldest := c.queue[0]
		c.queue = c.queue[1:]
		delete(c.entries, oldest)
	}
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Capacity returns the configured entry bound.
func (c *Cache) Capacity() int {
	return c.capacity
}
