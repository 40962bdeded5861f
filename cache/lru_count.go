package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUCountLimit is a chunk cache bounded by a fixed number of entries
// (spec.md §4.7), backed by hashicorp/golang-lru/v2 (grounded on
// dolthub-dolt's use of the same library for its own block caches).
type LRUCountLimit[T any] struct {
	cache *lru.Cache[string, T]
	singleflightGroup
}

// NewLRUCountLimit builds a cache holding at most capacity entries.
func NewLRUCountLimit[T any](capacity int) *LRUCountLimit[T] {
	c, _ := lru.New[string, T](capacity)
	return &LRUCountLimit[T]{cache: c}
}

func (c *LRUCountLimit[T]) Get(key Key) (T, bool) {
	return c.cache.Get(key.String())
}

func (c *LRUCountLimit[T]) Insert(key Key, value T) {
	c.cache.Add(key.String(), value)
}

func (c *LRUCountLimit[T]) Invalidate(key Key) {
	c.cache.Remove(key.String())
}

func (c *LRUCountLimit[T]) GetOrTryInsertWith(key Key, loader func() (T, error)) (T, error) {
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

func (c *LRUCountLimit[T]) Len() int { return c.cache.Len() }

func (c *LRUCountLimit[T]) IsEmpty() bool { return c.Len() == 0 }
