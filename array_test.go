package zarr_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TuSKan/zarrcore/cache"
	"github.com/TuSKan/zarrcore/codec"
	"github.com/TuSKan/zarrcore/store"
	"github.com/TuSKan/zarrcore/types"

	zarr "github.com/TuSKan/zarrcore"
)

// countingStore wraps a store.Store and counts Get calls, so tests can
// assert on spec.md §8's "exactly N store reads" properties.
type countingStore struct {
	store.Store
	reads int32
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	atomic.AddInt32(&c.reads, 1)
	return c.Store.Get(ctx, key)
}

// newTestArray builds the 8x8 uint8, 4x4-chunked, gzip-codec array every
// S1-S6 scenario in spec.md §8 is specified against.
func newTestArray(t *testing.T) (*zarr.Array, *countingStore) {
	t.Helper()
	ctx := context.Background()
	mem, err := store.OpenMemStore(ctx)
	require.NoError(t, err)
	cs := &countingStore{Store: mem}

	chain, err := codec.NewChain(nil, codec.NewBytes(codec.LittleEndian), []codec.BytesToBytesCodec{codec.NewGzip(0)})
	require.NoError(t, err)

	a := zarr.NewArray(cs, "arr", []int{8, 8}, []int{4, 4}, types.Uint8, types.FillValue{0}, chain, zarr.DefaultChunkKeyEncoding())
	return a, cs
}

func s1Buffer() []byte {
	buf := make([]byte, 64)
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			buf[i*8+j] = byte(i*8 + j)
		}
	}
	return buf
}

func TestS1WriteWholeReadWhole(t *testing.T) {
	a, _ := newTestArray(t)
	ctx := context.Background()
	opts := types.CodecOptions{ConcurrentTarget: 4, StoreEmptyChunks: true}

	full := types.NewArraySubset([]int{0, 0}, []int{8, 8})
	data := s1Buffer()

	require.NoError(t, a.StoreArraySubset(ctx, full, types.NewFixedArrayBytes(data, true), opts))

	got, err := a.RetrieveArraySubset(ctx, full, opts)
	require.NoError(t, err)
	require.Equal(t, data, got.Fixed)
}

func TestS2CrossChunkSubsetRead(t *testing.T) {
	a, cs := newTestArray(t)
	ctx := context.Background()
	opts := types.CodecOptions{ConcurrentTarget: 4, StoreEmptyChunks: true}

	full := types.NewArraySubset([]int{0, 0}, []int{8, 8})
	require.NoError(t, a.StoreArraySubset(ctx, full, types.NewFixedArrayBytes(s1Buffer(), true), opts))

	atomic.StoreInt32(&cs.reads, 0)
	sub := types.NewArraySubset([]int{3, 0}, []int{2, 4})
	got, err := a.RetrieveArraySubset(ctx, sub, opts)
	require.NoError(t, err)
	require.Equal(t, []byte{24, 25, 26, 27, 32, 33, 34, 35}, got.Fixed)
	require.Equal(t, int32(2), atomic.LoadInt32(&cs.reads))
}

func TestS3ColumnOverwrite(t *testing.T) {
	a, _ := newTestArray(t)
	ctx := context.Background()
	opts := types.CodecOptions{ConcurrentTarget: 4, StoreEmptyChunks: true}

	full := types.NewArraySubset([]int{0, 0}, []int{8, 8})
	require.NoError(t, a.StoreArraySubset(ctx, full, types.NewFixedArrayBytes(s1Buffer(), true), opts))

	col := types.NewArraySubset([]int{0, 6}, []int{8, 1})
	overwrite := make([]byte, 8)
	for i := range overwrite {
		overwrite[i] = 123
	}
	require.NoError(t, a.StoreArraySubset(ctx, col, types.NewFixedArrayBytes(overwrite, true), opts))

	got, err := a.RetrieveArraySubset(ctx, types.NewArraySubset([]int{0, 6}, []int{8, 1}), opts)
	require.NoError(t, err)
	require.Equal(t, overwrite, got.Fixed)

	cell, err := a.RetrieveArraySubset(ctx, types.NewArraySubset([]int{0, 7}, []int{1, 1}), opts)
	require.NoError(t, err)
	require.Equal(t, []byte{7}, cell.Fixed)
}

func TestS4ChunkSubsetOverwrite(t *testing.T) {
	a, _ := newTestArray(t)
	ctx := context.Background()
	opts := types.CodecOptions{ConcurrentTarget: 4, StoreEmptyChunks: true}

	overwrite := []byte{255, 255, 255, 255}
	sub := types.NewArraySubset([]int{3, 0}, []int{1, 4})
	require.NoError(t, a.StoreChunkSubset(ctx, []int{1, 1}, sub, types.NewFixedArrayBytes(overwrite, true), opts))

	row7, err := a.RetrieveArraySubset(ctx, types.NewArraySubset([]int{7, 0}, []int{1, 8}), opts)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 0, 255, 255, 255, 255}, row7.Fixed)
}

func TestS5EmptyChunkElision(t *testing.T) {
	a, cs := newTestArray(t)
	ctx := context.Background()
	opts := types.CodecOptions{StoreEmptyChunks: false}

	fillChunk := types.NewFillValueArrayBytes(types.Uint8, types.FillValue{0}, 16)
	require.NoError(t, a.StoreChunk(ctx, []int{0, 0}, fillChunk, opts))

	raw, err := cs.Get(ctx, a.ChunkKey([]int{0, 0}))
	require.NoError(t, err)
	require.Nil(t, raw)

	got, err := a.RetrieveArraySubset(ctx, types.NewArraySubset([]int{0, 0}, []int{4, 4}), opts)
	require.NoError(t, err)
	require.True(t, got.IsFillValue(types.Uint8, types.FillValue{0}))
}

func TestS6CacheEvictionSizeLimited(t *testing.T) {
	a, cs := newTestArray(t)
	ctx := context.Background()
	opts := types.CodecOptions{ConcurrentTarget: 4, StoreEmptyChunks: true}

	full := types.NewArraySubset([]int{0, 0}, []int{8, 8})
	require.NoError(t, a.StoreArraySubset(ctx, full, types.NewFixedArrayBytes(s1Buffer(), true), opts))

	const chunkSize = 16 // 4x4 uint8 decoded
	a.Cache = cache.NewLRUSizeLimit[types.ArrayBytes](2*chunkSize, func(v types.ArrayBytes) int { return v.Size() })

	atomic.StoreInt32(&cs.reads, 0)
	_, err := a.RetrieveChunk(ctx, []int{0, 0}, opts)
	require.NoError(t, err)
	_, err = a.RetrieveChunk(ctx, []int{1, 0}, opts)
	require.NoError(t, err)
	_, err = a.RetrieveChunk(ctx, []int{0, 1}, opts)
	require.NoError(t, err)

	require.Equal(t, 2, a.Cache.Len())
	sized, ok := a.Cache.(*cache.LRUSizeLimit[types.ArrayBytes])
	require.True(t, ok)
	require.Equal(t, 2*chunkSize, sized.Size())

	_, ok = a.Cache.Get(cache.Key{ArrayPath: "arr", Indices: []int{0, 1}})
	require.True(t, ok)
	evicted00 := func() bool { _, ok := a.Cache.Get(cache.Key{ArrayPath: "arr", Indices: []int{0, 0}}); return !ok }()
	evicted10 := func() bool { _, ok := a.Cache.Get(cache.Key{ArrayPath: "arr", Indices: []int{1, 0}}); return !ok }()
	require.True(t, evicted00 || evicted10)
	require.False(t, evicted00 && evicted10)

	require.Equal(t, int32(3), atomic.LoadInt32(&cs.reads))
}

func TestCacheCoherenceNoStoreReadOnSecondHit(t *testing.T) {
	a, cs := newTestArray(t)
	ctx := context.Background()
	opts := types.CodecOptions{StoreEmptyChunks: true}
	a.Cache = cache.NewLRUCountLimit[types.ArrayBytes](10)

	require.NoError(t, a.StoreChunk(ctx, []int{0, 0}, types.NewFixedArrayBytes(make([]byte, 16), true), opts))

	atomic.StoreInt32(&cs.reads, 0)
	first, err := a.RetrieveChunk(ctx, []int{0, 0}, opts)
	require.NoError(t, err)
	second, err := a.RetrieveChunk(ctx, []int{0, 0}, opts)
	require.NoError(t, err)

	require.Equal(t, first.Fixed, second.Fixed)
	require.Equal(t, int32(1), atomic.LoadInt32(&cs.reads))
}

func TestChunkBoundaryIdempotence(t *testing.T) {
	a, _ := newTestArray(t)
	ctx := context.Background()
	opts := types.CodecOptions{StoreEmptyChunks: true}

	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(i + 1)
	}

	chunkAligned := types.NewArraySubset([]int{4, 0}, []int{4, 4})
	require.NoError(t, a.StoreArraySubset(ctx, chunkAligned, types.NewFixedArrayBytes(data, true), opts))
	viaSubset, err := a.Store.Get(ctx, a.ChunkKey([]int{1, 0}))
	require.NoError(t, err)

	b, _ := newTestArray(t)
	require.NoError(t, b.StoreChunk(ctx, []int{1, 0}, types.NewFixedArrayBytes(data, true), opts))
	viaChunk, err := b.Store.Get(ctx, b.ChunkKey([]int{1, 0}))
	require.NoError(t, err)

	require.Equal(t, viaChunk, viaSubset)
}

func TestFillValueMaterialisationBeforeAnyWrite(t *testing.T) {
	a, _ := newTestArray(t)
	ctx := context.Background()
	opts := types.CodecOptions{StoreEmptyChunks: true}

	got, err := a.RetrieveArraySubset(ctx, types.NewArraySubset([]int{0, 0}, []int{8, 8}), opts)
	require.NoError(t, err)
	require.True(t, got.IsFillValue(types.Uint8, types.FillValue{0}))

	keys, err := a.Store.ListPrefix(ctx, a.Path+"/")
	require.NoError(t, err)
	require.Empty(t, keys)
}
