package codec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TuSKan/zarrcore/codec"
	"github.com/TuSKan/zarrcore/types"
)

func uint32Rep(shape []int) types.ChunkRepresentation {
	return types.ChunkRepresentation{Shape: shape, DataType: types.Uint32, FillValue: types.FillValue{0, 0, 0, 0}}
}

func TestBytesCodecRoundTripLittleEndian(t *testing.T) {
	rep := uint32Rep([]int{2, 2})
	in := types.NewFixedArrayBytes([]byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0, 4, 0, 0, 0}, true)

	c := codec.NewBytes(codec.LittleEndian)
	encoded, err := c.Encode(in, rep, types.CodecOptions{})
	require.NoError(t, err)
	require.Equal(t, in.Fixed, encoded)

	decoded, err := c.Decode(encoded, rep, types.CodecOptions{})
	require.NoError(t, err)
	require.Equal(t, in.Fixed, decoded.Fixed)
}

func TestBytesCodecSwapsBigEndian(t *testing.T) {
	rep := uint32Rep([]int{1})
	in := types.NewFixedArrayBytes([]byte{1, 0, 0, 0}, true)

	c := codec.NewBytes(codec.BigEndian)
	encoded, err := c.Encode(in, rep, types.CodecOptions{})
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 1}, encoded)

	decoded, err := c.Decode(encoded, rep, types.CodecOptions{})
	require.NoError(t, err)
	require.Equal(t, in.Fixed, decoded.Fixed)
}

func TestTransposeRoundTrip2D(t *testing.T) {
	// 2x3 uint8 "array", values 0..5 row-major.
	rep := types.ChunkRepresentation{Shape: []int{2, 3}, DataType: types.Uint8}
	in := types.NewFixedArrayBytes([]byte{0, 1, 2, 3, 4, 5}, true)

	tr := codec.NewTranspose([]int{1, 0})
	encRep := tr.EncodedRepresentation(rep)
	require.Equal(t, []int{3, 2}, encRep.Shape)

	encoded, err := tr.Encode(in, rep, types.CodecOptions{})
	require.NoError(t, err)
	// Column-major reading of the original 2x3 grid.
	require.Equal(t, []byte{0, 3, 1, 4, 2, 5}, encoded.Fixed)

	decoded, err := tr.Decode(encoded, rep, types.CodecOptions{})
	require.NoError(t, err)
	require.Equal(t, in.Fixed, decoded.Fixed)
}

func TestGzipRoundTrip(t *testing.T) {
	g := codec.NewGzip(0)
	payload := []byte("some chunk payload data, repeated repeated repeated")
	encoded, err := g.Encode(payload, types.CodecOptions{})
	require.NoError(t, err)
	require.NotEqual(t, payload, encoded)
	decoded, err := g.Decode(encoded, types.CodecOptions{})
	require.NoError(t, err)
	require.Equal(t, payload, decoded)
}

func TestCRC32CDetectsCorruption(t *testing.T) {
	c := codec.NewCRC32C()
	payload := []byte("abcdefgh")
	encoded, err := c.Encode(payload, types.CodecOptions{})
	require.NoError(t, err)
	require.Len(t, encoded, len(payload)+4)

	decoded, err := c.Decode(encoded, types.CodecOptions{})
	require.NoError(t, err)
	require.Equal(t, payload, decoded)

	encoded[0] ^= 0xFF
	_, err = c.Decode(encoded, types.CodecOptions{})
	require.Error(t, err)
}

func TestChainEncodeDecodeRoundTrip(t *testing.T) {
	rep := uint32Rep([]int{4})
	in := types.NewFixedArrayBytes([]byte{
		1, 0, 0, 0,
		2, 0, 0, 0,
		3, 0, 0, 0,
		4, 0, 0, 0,
	}, true)

	chain, err := codec.NewChain(nil, codec.NewBytes(codec.LittleEndian), []codec.BytesToBytesCodec{codec.NewGzip(0), codec.NewCRC32C()})
	require.NoError(t, err)

	encoded, err := chain.Encode(in, rep, types.CodecOptions{})
	require.NoError(t, err)

	decoded, err := chain.Decode(encoded, rep, types.CodecOptions{})
	require.NoError(t, err)
	require.Equal(t, in.Fixed, decoded.Fixed)
}

func TestChainRejectsMissingArrayToBytesCodec(t *testing.T) {
	_, err := codec.NewChain(nil, nil, nil)
	require.Error(t, err)
}
