package codec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TuSKan/zarrcore/codec"
	"github.com/TuSKan/zarrcore/types"
)

func byteChain(t *testing.T) *codec.Chain {
	t.Helper()
	c, err := codec.NewChain(nil, codec.NewBytes(codec.LittleEndian), nil)
	require.NoError(t, err)
	return c
}

func u8(vals ...byte) types.ArrayBytes { return types.NewFixedArrayBytes(vals, true) }

func TestShardingEncodeDecodeRoundTrip(t *testing.T) {
	// 4x4 uint8 "array", sharded into 2x2 inner chunks (4 inner chunks).
	rep := types.ChunkRepresentation{Shape: []int{4, 4}, DataType: types.Uint8, FillValue: types.FillValue{0}}
	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(i + 1)
	}
	in := u8(data...)

	sharding := codec.NewSharding([]int{2, 2}, byteChain(t), byteChain(t), codec.IndexAtEnd)
	opts := types.CodecOptions{StoreEmptyChunks: true}

	encoded, err := sharding.Encode(in, rep, opts)
	require.NoError(t, err)

	decoded, err := sharding.Decode(encoded, rep, opts)
	require.NoError(t, err)
	require.Equal(t, data, decoded.Fixed)
}

func TestShardingElidesFillValueInnerChunksByDefault(t *testing.T) {
	rep := types.ChunkRepresentation{Shape: []int{4, 4}, DataType: types.Uint8, FillValue: types.FillValue{0}}
	in := types.NewFillValueArrayBytes(types.Uint8, types.FillValue{0}, 16)

	sharding := codec.NewSharding([]int{2, 2}, byteChain(t), byteChain(t), codec.IndexAtEnd)
	opts := types.CodecOptions{StoreEmptyChunks: false}

	encoded, err := sharding.Encode(in, rep, opts)
	require.NoError(t, err)
	// All four inner chunks are fill-value and elided: only the index remains.
	require.Equal(t, 4*2*8, len(encoded))

	decoded, err := sharding.Decode(encoded, rep, opts)
	require.NoError(t, err)
	require.True(t, decoded.IsFillValue(types.Uint8, types.FillValue{0}))
}

func TestShardingPartialEncoderUpdatesSingleInnerChunk(t *testing.T) {
	rep := types.ChunkRepresentation{Shape: []int{4, 4}, DataType: types.Uint8, FillValue: types.FillValue{0}}
	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(i + 1)
	}
	in := u8(data...)

	sharding := codec.NewSharding([]int{2, 2}, byteChain(t), byteChain(t), codec.IndexAtEnd)
	opts := types.CodecOptions{StoreEmptyChunks: true}

	encoded, err := sharding.Encode(in, rep, opts)
	require.NoError(t, err)

	accessor := &fakeAccessor{data: encoded}
	enc, err := sharding.PartialEncoder(accessor, accessor, rep, opts)
	require.NoError(t, err)

	overwrite := u8(100, 101)
	subset := types.NewArraySubset([]int{0, 0}, []int{1, 2})
	require.NoError(t, enc.PartialEncode([]types.ArraySubset{subset}, []types.ArrayBytes{overwrite}, opts))

	decoded, err := sharding.Decode(accessor.data, rep, opts)
	require.NoError(t, err)
	want := append([]byte(nil), data...)
	want[0], want[1] = 100, 101
	require.Equal(t, want, decoded.Fixed)
}

// fakeAccessor is a minimal in-memory codec.ChunkAccessor for codec-level
// tests that don't need a real store.
type fakeAccessor struct {
	data []byte
}

func (a *fakeAccessor) Decode(opts types.CodecOptions) ([]byte, error) {
	if a.data == nil {
		return nil, nil
	}
	return a.data, nil
}

func (a *fakeAccessor) PartialDecode(ranges []types.ByteRange, opts types.CodecOptions) ([][]byte, error) {
	out := make([][]byte, len(ranges))
	for i, r := range ranges {
		out[i] = a.data[r.Offset : r.Offset+r.Length]
	}
	return out, nil
}

func (a *fakeAccessor) PartialEncode(ranges []types.ByteRange, data [][]byte, opts types.CodecOptions) error {
	maxEnd := int64(len(a.data))
	for i, r := range ranges {
		if end := r.Offset + int64(len(data[i])); end > maxEnd {
			maxEnd = end
		}
	}
	grown := make([]byte, maxEnd)
	copy(grown, a.data)
	for i, r := range ranges {
		copy(grown[r.Offset:], data[i])
	}
	a.data = grown
	return nil
}

func (a *fakeAccessor) Erase() error {
	a.data = nil
	return nil
}
