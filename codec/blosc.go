package codec

import (
	"github.com/mrjoshuak/go-blosc"

	"github.com/TuSKan/zarrcore/types"
)

// Blosc is a bytes→bytes compression codec backed by mrjoshuak/go-blosc
// (grounded on the teacher's reader.go blosc.Decompress use). Shuffle
// reorders bytes by significance before compression, which helps
// compressibility of numeric arrays; TypeSize should be the element size of
// the array this chunk holds so the shuffle step operates on real elements
// rather than raw bytes.
type Blosc struct {
	Level    int
	Shuffle  bool
	TypeSize int
}

func NewBlosc(level int, shuffle bool, typeSize int) *Blosc {
	return &Blosc{Level: level, Shuffle: shuffle, TypeSize: typeSize}
}

func (b *Blosc) Name() string { return "blosc" }

func (b *Blosc) Encode(in []byte, opts types.CodecOptions) ([]byte, error) {
	typeSize := b.TypeSize
	if typeSize <= 0 {
		typeSize = 1
	}
	return blosc.Compress(b.Level, b.Shuffle, typeSize, in)
}

func (b *Blosc) Decode(in []byte, opts types.CodecOptions) ([]byte, error) {
	return blosc.Decompress(in)
}

func (b *Blosc) RecommendedConcurrency() types.ConcurrencyRange {
	return types.ConcurrencyRange{Min: 1, Max: 1}
}

func (b *Blosc) PartialDecoder(input BytesPartialDecoder, opts types.CodecOptions) (BytesPartialDecoder, error) {
	return nil, ErrNoNativePartialDecoder
}

func (b *Blosc) PartialEncoder(input BytesPartialDecoder, output BytesPartialEncoder, opts types.CodecOptions) (BytesPartialEncoder, error) {
	return nil, ErrNoNativePartialEncoder
}
