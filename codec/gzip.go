package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/TuSKan/zarrcore/types"
)

// Gzip is a bytes→bytes compression codec (spec.md §3). It has no native
// partial decode/encode: a gzip stream must be read from the start, and a
// partial rewrite would require recompressing the whole thing.
type Gzip struct {
	Level int
}

func NewGzip(level int) *Gzip {
	if level == 0 {
		level = gzip.DefaultCompression
	}
	return &Gzip{Level: level}
}

func (g *Gzip) Name() string { return "gzip" }

func (g *Gzip) Encode(in []byte, opts types.CodecOptions) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, g.Level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(in); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Gzip) Decode(in []byte, opts types.CodecOptions) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (g *Gzip) RecommendedConcurrency() types.ConcurrencyRange {
	return types.ConcurrencyRange{Min: 1, Max: 1}
}

func (g *Gzip) PartialDecoder(input BytesPartialDecoder, opts types.CodecOptions) (BytesPartialDecoder, error) {
	return nil, ErrNoNativePartialDecoder
}

func (g *Gzip) PartialEncoder(input BytesPartialDecoder, output BytesPartialEncoder, opts types.CodecOptions) (BytesPartialEncoder, error) {
	return nil, ErrNoNativePartialEncoder
}
