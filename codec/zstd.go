package codec

import (
	"github.com/klauspost/compress/zstd"

	"github.com/TuSKan/zarrcore/types"
)

// Zstd is a bytes→bytes compression codec backed by klauspost/compress/zstd
// (grounded on the teacher's zarr/dataset.go zstd.NewReader/DecodeAll use).
// Like Gzip it offers no native partial decode/encode.
type Zstd struct {
	Level zstd.EncoderLevel
}

func NewZstd(level zstd.EncoderLevel) *Zstd {
	if level == 0 {
		level = zstd.SpeedDefault
	}
	return &Zstd{Level: level}
}

func (z *Zstd) Name() string { return "zstd" }

func (z *Zstd) Encode(in []byte, opts types.CodecOptions) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(z.Level))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(in, nil), nil
}

func (z *Zstd) Decode(in []byte, opts types.CodecOptions) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(in, nil)
}

func (z *Zstd) RecommendedConcurrency() types.ConcurrencyRange {
	return types.ConcurrencyRange{Min: 1, Max: 1}
}

func (z *Zstd) PartialDecoder(input BytesPartialDecoder, opts types.CodecOptions) (BytesPartialDecoder, error) {
	return nil, ErrNoNativePartialDecoder
}

func (z *Zstd) PartialEncoder(input BytesPartialDecoder, output BytesPartialEncoder, opts types.CodecOptions) (BytesPartialEncoder, error) {
	return nil, ErrNoNativePartialEncoder
}
