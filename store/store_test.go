package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TuSKan/zarrcore/store"
	"github.com/TuSKan/zarrcore/types"
)

func TestBlobStoreGetAbsentKeyIsNilNil(t *testing.T) {
	ctx := context.Background()
	s, err := store.OpenMemStore(ctx)
	require.NoError(t, err)

	data, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	require.Nil(t, data)
}

func TestBlobStoreSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := store.OpenMemStore(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "c/0/0", []byte("hello")))
	data, err := s.Get(ctx, "c/0/0")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)
}

func TestBlobStoreGetRanges(t *testing.T) {
	ctx := context.Background()
	s, err := store.OpenMemStore(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", []byte("0123456789")))

	parts, err := s.GetRanges(ctx, "k", []types.ByteRange{{Offset: 2, Length: 3}, {Offset: 7, Length: 2}})
	require.NoError(t, err)
	require.Equal(t, []byte("234"), parts[0])
	require.Equal(t, []byte("89"), parts[1])
}

func TestBlobStoreErase(t *testing.T) {
	ctx := context.Background()
	s, err := store.OpenMemStore(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", []byte("x")))
	require.NoError(t, s.Erase(ctx, "k"))
	data, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Nil(t, data)
	// Erasing an already-absent key is not an error.
	require.NoError(t, s.Erase(ctx, "k"))
}

func TestBlobStoreListPrefix(t *testing.T) {
	ctx := context.Background()
	s, err := store.OpenMemStore(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "c/0/0", []byte("a")))
	require.NoError(t, s.Set(ctx, "c/0/1", []byte("b")))
	require.NoError(t, s.Set(ctx, "meta.json", []byte("{}")))

	keys, err := s.ListPrefix(ctx, "c/")
	require.NoError(t, err)
	require.Len(t, keys, 2)
}

func TestChunkAccessorPartialEncodeFallsBackToReadModifyWrite(t *testing.T) {
	ctx := context.Background()
	s, err := store.OpenMemStore(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", []byte("0123456789")))

	accessor := store.NewChunkAccessor(ctx, s, "k")
	err = accessor.PartialEncode([]types.ByteRange{{Offset: 2, Length: 2}}, [][]byte{[]byte("XY")}, types.CodecOptions{})
	require.NoError(t, err)

	data, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("01XY456789"), data)
}
