// Package cache implements the chunk cache layer (spec.md §4.7), grounded
// on original_source/src/array/chunk_cache.rs's ChunkCache trait.
package cache

import (
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"
)

// Key identifies a cached chunk by its chunk-grid coordinates plus an
// owning array identity (so one cache instance can safely be shared by
// several arrays backed by the same store).
type Key struct {
	ArrayPath string
	Indices   []int
}

// String renders the key as a stable map/log identifier.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.ArrayPath)
	b.WriteByte('#')
	for i, idx := range k.Indices {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(idx))
	}
	return b.String()
}

func (k Key) marshalIndices() string {
	data, _ := json.Marshal(k.Indices)
	return string(data)
}

// ChunkCache is a cache of chunk values of type T — either encoded bytes or
// decoded types.ArrayBytes (spec.md §4.7's two cache kinds). Get/Insert
// mirror chunk_cache.rs's get/insert; GetOrTryInsertWith mirrors
// try_get_or_insert_with with genuine single-flight semantics (concurrent
// misses on the same key run the loader once), via golang.org/x/sync/singleflight.
type ChunkCache[T any] interface {
	Get(key Key) (T, bool)
	Insert(key Key, value T)
	GetOrTryInsertWith(key Key, loader func() (T, error)) (T, error)
	Invalidate(key Key)
	Len() int
	IsEmpty() bool
}

// singleflightGroup is embedded by both LRU variants to provide
// GetOrTryInsertWith without duplicating the dedupe logic.
type singleflightGroup struct {
	group singleflight.Group
}

func (g *singleflightGroup) do(key Key, fn func() (any, error)) (any, error) {
	v, err, _ := g.group.Do(key.marshalIndices()+"|"+key.ArrayPath, fn)
	return v, err
}
