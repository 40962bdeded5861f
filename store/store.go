// Package store implements the storage abstraction (spec.md §4.1): byte-
// addressable get/set/erase/list operations over chunk and metadata keys,
// with an optional byte-range and partial-write capability a backend may
// or may not support.
package store

import (
	"context"

	"github.com/TuSKan/zarrcore/types"
)

// Store is the capability set a backend exposes. A Get for an absent key
// returns (nil, nil) — the "absent" case is not an error (spec.md §4.1).
type Store interface {
	// Get reads the whole value for key, or (nil, nil) if key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// GetRanges reads a list of byte ranges from key's value in one call.
	// A backend without native ranged reads returns *types.UnsupportedError;
	// callers fall back to Get plus local slicing.
	GetRanges(ctx context.Context, key string, ranges []types.ByteRange) ([][]byte, error)

	// Set writes the whole value for key, replacing any prior value.
	Set(ctx context.Context, key string, value []byte) error

	// SetPartial writes byte ranges into key's existing value (a
	// read-modify-write at the store layer if the backend has no native
	// partial write). Returns *types.UnsupportedError if the backend
	// cannot support partial writes on keys it hasn't already seen.
	SetPartial(ctx context.Context, key string, ranges []types.ByteRange, data [][]byte) error

	// Erase removes key. Erasing an absent key is not an error.
	Erase(ctx context.Context, key string) error

	// ErasePrefix removes every key with the given prefix.
	ErasePrefix(ctx context.Context, prefix string) error

	// ListPrefix returns every key with the given prefix.
	ListPrefix(ctx context.Context, prefix string) ([]string, error)
}

// ChunkAccessor adapts a Store + a single key into the codec package's
// BytesPartialDecoder/BytesPartialEncoder duo (structurally — store does
// not import codec, to keep the package graph acyclic). See
// codec.ChunkAccessor.
type ChunkAccessor struct {
	Store Store
	Key   string
	ctx   context.Context
}

// NewChunkAccessor binds a Store + key + request context into an accessor.
func NewChunkAccessor(ctx context.Context, s Store, key string) *ChunkAccessor {
	return &ChunkAccessor{Store: s, Key: key, ctx: ctx}
}

func (a *ChunkAccessor) Decode(opts types.CodecOptions) ([]byte, error) {
	return a.Store.Get(a.ctx, a.Key)
}

func (a *ChunkAccessor) PartialDecode(ranges []types.ByteRange, opts types.CodecOptions) ([][]byte, error) {
	parts, err := a.Store.GetRanges(a.ctx, a.Key, ranges)
	if err == nil {
		return parts, nil
	}
	if _, ok := err.(*types.UnsupportedError); !ok {
		return nil, err
	}
	whole, err := a.Store.Get(a.ctx, a.Key)
	if err != nil {
		return nil, err
	}
	if whole == nil {
		return nil, nil
	}
	out := make([][]byte, len(ranges))
	for i, r := range ranges {
		out[i] = whole[r.Offset : r.Offset+r.Length]
	}
	return out, nil
}

func (a *ChunkAccessor) PartialEncode(ranges []types.ByteRange, data [][]byte, opts types.CodecOptions) error {
	err := a.Store.SetPartial(a.ctx, a.Key, ranges, data)
	if err == nil {
		return nil
	}
	if _, ok := err.(*types.UnsupportedError); !ok {
		return err
	}
	whole, err := a.Store.Get(a.ctx, a.Key)
	if err != nil {
		return err
	}
	maxEnd := int64(len(whole))
	for i, r := range ranges {
		if end := r.Offset + int64(len(data[i])); end > maxEnd {
			maxEnd = end
		}
	}
	grown := make([]byte, maxEnd)
	copy(grown, whole)
	for i, r := range ranges {
		copy(grown[r.Offset:], data[i])
	}
	return a.Store.Set(a.ctx, a.Key, grown)
}

func (a *ChunkAccessor) Erase() error {
	return a.Store.Erase(a.ctx, a.Key)
}
