// Package codec implements the uniform codec contract (spec.md §4.4): an
// ordered chain of array→array, exactly one array→bytes, and zero or more
// bytes→bytes stages, each with a partial-decoder/partial-encoder factory.
package codec

import (
	"github.com/TuSKan/zarrcore/types"
)

// ArrayToArrayCodec transforms array-bytes while staying in the array
// domain (e.g. transpose). It may change the declared shape (the
// "representation") that downstream stages see.
type ArrayToArrayCodec interface {
	Name() string
	// EncodedRepresentation returns the representation produced by Encode
	// for a given input representation (e.g. transpose permutes Shape).
	EncodedRepresentation(in types.ChunkRepresentation) types.ChunkRepresentation
	Encode(in types.ArrayBytes, rep types.ChunkRepresentation, opts types.CodecOptions) (types.ArrayBytes, error)
	Decode(in types.ArrayBytes, rep types.ChunkRepresentation, opts types.CodecOptions) (types.ArrayBytes, error)
	RecommendedConcurrency(rep types.ChunkRepresentation) types.ConcurrencyRange
}

// ArrayToBytesCodec is the single mandatory stage of a chain that crosses
// from the array domain into raw bytes (e.g. the "bytes" endianness codec,
// or sharding).
type ArrayToBytesCodec interface {
	Name() string
	Encode(in types.ArrayBytes, rep types.ChunkRepresentation, opts types.CodecOptions) ([]byte, error)
	Decode(in []byte, rep types.ChunkRepresentation, opts types.CodecOptions) (types.ArrayBytes, error)
	RecommendedConcurrency(rep types.ChunkRepresentation) types.ConcurrencyRange

	// PartialDecoder builds a decoder that can answer subset/byte-range
	// queries against input without necessarily decoding the whole chunk.
	// input is the upstream byte source (usually a store-backed partial
	// byte reader after bytes→bytes stages have been stripped).
	PartialDecoder(input BytesPartialDecoder, rep types.ChunkRepresentation, opts types.CodecOptions) (ArrayPartialDecoder, error)

	// PartialEncoder builds an encoder that can splice subset writes into
	// input/output without necessarily rewriting the whole chunk. Codecs
	// that cannot do this return ErrNoNativePartialEncoder so the caller
	// falls back to the generic default (C6).
	PartialEncoder(input BytesPartialDecoder, output BytesPartialEncoder, rep types.ChunkRepresentation, opts types.CodecOptions) (ArrayPartialEncoder, error)
}

// BytesToBytesCodec is an optional post/pre-processing stage operating
// purely on raw bytes (compression, checksums).
type BytesToBytesCodec interface {
	Name() string
	Encode(in []byte, opts types.CodecOptions) ([]byte, error)
	Decode(in []byte, opts types.CodecOptions) ([]byte, error)
	RecommendedConcurrency() types.ConcurrencyRange

	// PartialDecoder wraps an upstream byte partial-decoder; codecs that
	// cannot translate byte ranges through their transform (e.g. any
	// compressor) return ErrNoNativePartialDecoder and the chain falls
	// back to decoding the whole thing.
	PartialDecoder(input BytesPartialDecoder, opts types.CodecOptions) (BytesPartialDecoder, error)
	PartialEncoder(input BytesPartialDecoder, output BytesPartialEncoder, opts types.CodecOptions) (BytesPartialEncoder, error)
}

// BytesPartialDecoder answers byte-range queries against an encoded chunk
// without necessarily reading the whole thing. A nil return from
// PartialDecode (with err == nil) in the outermost (store-backed) case
// indicates the chunk key is absent.
type BytesPartialDecoder interface {
	Decode(opts types.CodecOptions) ([]byte, error)
	PartialDecode(ranges []types.ByteRange, opts types.CodecOptions) ([][]byte, error)
}

// BytesPartialEncoder writes byte ranges into an encoded chunk.
type BytesPartialEncoder interface {
	PartialEncode(ranges []types.ByteRange, data [][]byte, opts types.CodecOptions) error
	Erase() error
}

// ArrayPartialDecoder answers array-subset decode queries against a chunk
// without necessarily decoding it whole.
type ArrayPartialDecoder interface {
	PartialDecode(subsets []types.ArraySubset, opts types.CodecOptions) ([]types.ArrayBytes, error)
}

// ArrayPartialEncoder splices subset writes into a chunk (spec.md §4.6).
type ArrayPartialEncoder interface {
	PartialEncode(subsets []types.ArraySubset, subsetBytes []types.ArrayBytes, opts types.CodecOptions) error
}
