package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Weigher returns the byte footprint of a cached value (spec.md §4.7's
// weighted cache kind). Callers typically pass types.ArrayBytes.Size or
// len(encodedBytes).
type Weigher[T any] func(T) int

// LRUSizeLimit is a chunk cache bounded by total weighted size rather than
// entry count. golang-lru/v2 has no built-in weigher (unlike the Rust
// original's moka-based ChunkCacheLruSizeLimit), so this wraps an ordinary
// LRU with an eviction callback that maintains a running weight total and
// evicts oldest entries until newly-inserted values fit within capacity.
type LRUSizeLimit[T any] struct {
	mu       sync.Mutex
	cache    *lru.Cache[string, T]
	weigher  Weigher[T]
	capacity int
	weight   int
	singleflightGroup
}

// NewLRUSizeLimit builds a cache holding entries up to capacity bytes
// (by weigher's accounting), evicting least-recently-used entries as
// needed to make room.
func NewLRUSizeLimit[T any](capacity int, weigher Weigher[T]) *LRUSizeLimit[T] {
	s := &LRUSizeLimit[T]{weigher: weigher, capacity: capacity}
	c, _ := lru.NewWithEvict[string, T](capacity, func(_ string, v T) {
		s.weight -= weigher(v)
	})
	s.cache = c
	return s
}

func (c *LRUSizeLimit[T]) Get(key Key) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Get(key.String())
}

func (c *LRUSizeLimit[T]) Insert(key Key, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertLocked(key, value)
}

func (c *LRUSizeLimit[T]) insertLocked(key Key, value T) {
	k := key.String()
	// Remove fires the eviction callback, which subtracts the old weight.
	c.cache.Remove(k)
	w := c.weigher(value)
	for c.weight+w > c.capacity && c.cache.Len() > 0 {
		c.cache.RemoveOldest()
	}
	c.cache.Add(k, value)
	c.weight += w
}

func (c *LRUSizeLimit[T]) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Remove(key.String())
}

func (c *LRUSizeLimit[T]) GetOrTryInsertWith(key Key, loader func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := c.do(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := loader()
		if err != nil {
			return v, err
		}
		c.Insert(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (c *LRUSizeLimit[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}

func (c *LRUSizeLimit[T]) IsEmpty() bool { return c.Len() == 0 }

// Size returns the current total weight of all cached entries.
func (c *LRUSizeLimit[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}
