package codec

import (
	"errors"

	"github.com/TuSKan/zarrcore/types"
)

// ErrNoNativePartialDecoder is returned by a codec's PartialDecoder factory
// when it has no cheaper-than-whole-chunk decode strategy; the chain falls
// back to decoding the whole thing and slicing.
var ErrNoNativePartialDecoder = errors.New("codec: no native partial decoder")

// ErrNoNativePartialEncoder is returned by a codec's PartialEncoder factory
// when it cannot splice a subset write without rewriting the whole chunk;
// the chain falls back to the generic default partial encoder (spec.md §4.6).
var ErrNoNativePartialEncoder = errors.New("codec: no native partial encoder")

// ChunkAccessor is the store-backed handle a Chain's partial decoder/encoder
// stack bottoms out on: byte-range reads and writes for one chunk key. It is
// satisfied structurally (no import needed) by e.g. store.ChunkAccessor.
type ChunkAccessor interface {
	BytesPartialDecoder
	BytesPartialEncoder
}

// PartialDecoder composes the chain's bytes→bytes partial decoders (from
// the store upward) and hands the result to the array→bytes codec's own
// partial decoder factory, falling back to whole-chunk decode+slice
// wherever a stage has no native support (spec.md §4.4).
func (c *Chain) PartialDecoder(accessor BytesPartialDecoder, rep types.ChunkRepresentation, opts types.CodecOptions) (ArrayPartialDecoder, error) {
	inner := accessor
	for i := len(c.BytesToBytes) - 1; i >= 0; i-- {
		pd, err := c.BytesToBytes[i].PartialDecoder(inner, opts)
		if err != nil {
			if !errors.Is(err, ErrNoNativePartialDecoder) {
				return nil, err
			}
			pd = &defaultBytesPartialDecoder{codec: c.BytesToBytes[i], inner: inner}
		}
		inner = pd
	}

	if len(c.ArrayToArray) > 0 {
		// An array→array stage reorders/reshapes elements; slicing the
		// array→bytes codec's partial output wouldn't line up with the
		// caller's subset, so fall back to a whole-chain decode and slice.
		return &defaultChainPartialDecoder{chain: c, accessor: accessor, rep: rep}, nil
	}

	apd, err := c.ArrayToBytes.PartialDecoder(inner, rep, opts)
	if err != nil {
		if !errors.Is(err, ErrNoNativePartialDecoder) {
			return nil, err
		}
		return &defaultArrayToBytesPartialDecoder{codec: c.ArrayToBytes, input: inner, rep: rep}, nil
	}
	return apd, nil
}

// PartialEncoder returns an ArrayPartialEncoder for the chain. A
// bytes→bytes codec (compression, checksumming) cannot be partially
// rewritten without re-running the whole transform, so the chain only
// attempts the array→bytes codec's native partial encoder (sharding) when
// there are no array→array or bytes→bytes stages in the way; otherwise it
// falls back to the generic default (spec.md §4.6).
func (c *Chain) PartialEncoder(accessor ChunkAccessor, rep types.ChunkRepresentation, opts types.CodecOptions) (ArrayPartialEncoder, error) {
	if len(c.BytesToBytes) == 0 && len(c.ArrayToArray) == 0 {
		pe, err := c.ArrayToBytes.PartialEncoder(accessor, accessor, rep, opts)
		if err == nil {
			return pe, nil
		}
		if !errors.Is(err, ErrNoNativePartialEncoder) {
			return nil, err
		}
	}
	return &defaultChainPartialEncoder{chain: c, accessor: accessor, rep: rep}, nil
}

// defaultBytesPartialDecoder answers byte-range queries by decoding the
// whole upstream value and slicing; used when a bytes→bytes codec (e.g. any
// compressor) has no native partial decode.
type defaultBytesPartialDecoder struct {
	codec BytesToBytesCodec
	inner BytesPartialDecoder
}

func (d *defaultBytesPartialDecoder) Decode(opts types.CodecOptions) ([]byte, error) {
	raw, err := d.inner.Decode(opts)
	if err != nil || raw == nil {
		return nil, err
	}
	return d.codec.Decode(raw, opts)
}

func (d *defaultBytesPartialDecoder) PartialDecode(ranges []types.ByteRange, opts types.CodecOptions) ([][]byte, error) {
	whole, err := d.Decode(opts)
	if err != nil {
		return nil, err
	}
	if whole == nil {
		return nil, nil
	}
	out := make([][]byte, len(ranges))
	for i, r := range ranges {
		lo, hi := r.Offset, r.Offset+r.Length
		if lo < 0 || hi > int64(len(whole)) {
			return nil, &types.ValidationError{Reason: "byte range out of bounds"}
		}
		out[i] = whole[lo:hi]
	}
	return out, nil
}

// defaultArrayToBytesPartialDecoder decodes the whole chunk through a
// single array→bytes codec and slices out requested array subsets.
type defaultArrayToBytesPartialDecoder struct {
	codec ArrayToBytesCodec
	input BytesPartialDecoder
	rep   types.ChunkRepresentation
}

func (d *defaultArrayToBytesPartialDecoder) PartialDecode(subsets []types.ArraySubset, opts types.CodecOptions) ([]types.ArrayBytes, error) {
	raw, err := d.input.Decode(opts)
	if err != nil {
		return nil, err
	}
	var whole types.ArrayBytes
	if raw == nil {
		whole = types.NewFillValueArrayBytes(d.rep.DataType, d.rep.FillValue, d.rep.NumElements())
	} else {
		whole, err = d.codec.Decode(raw, d.rep, opts)
		if err != nil {
			return nil, err
		}
	}
	return sliceSubsets(whole, d.rep, subsets)
}

// defaultChainPartialDecoder decodes the whole chunk through the entire
// chain and slices out requested array subsets (spec.md §4.4's documented
// fallback, applied at chain granularity when an array→array stage is
// present).
type defaultChainPartialDecoder struct {
	chain    *Chain
	accessor BytesPartialDecoder
	rep      types.ChunkRepresentation
}

func (d *defaultChainPartialDecoder) PartialDecode(subsets []types.ArraySubset, opts types.CodecOptions) ([]types.ArrayBytes, error) {
	raw, err := d.accessor.Decode(opts)
	if err != nil {
		return nil, err
	}
	var whole types.ArrayBytes
	if raw == nil {
		whole = types.NewFillValueArrayBytes(d.rep.DataType, d.rep.FillValue, d.rep.NumElements())
	} else {
		whole, err = d.chain.Decode(raw, d.rep, opts)
		if err != nil {
			return nil, err
		}
	}
	return sliceSubsets(whole, d.rep, subsets)
}

func sliceSubsets(whole types.ArrayBytes, rep types.ChunkRepresentation, subsets []types.ArraySubset) ([]types.ArrayBytes, error) {
	out := make([]types.ArrayBytes, len(subsets))
	for i, s := range subsets {
		ex, err := types.ExtractArraySubset(whole, rep.Shape, s, rep.DataType)
		if err != nil {
			return nil, err
		}
		out[i] = ex
	}
	return out, nil
}

// defaultChainPartialEncoder implements the generic (C6) partial encoder:
// decode the whole chunk, validate, splice every requested subset in,
// erase-or-rewrite (spec.md §4.6 "Default (generic) partial encoder").
type defaultChainPartialEncoder struct {
	chain    *Chain
	accessor ChunkAccessor
	rep      types.ChunkRepresentation
}

func (d *defaultChainPartialEncoder) PartialEncode(subsets []types.ArraySubset, subsetBytes []types.ArrayBytes, opts types.CodecOptions) error {
	raw, err := d.accessor.Decode(opts)
	if err != nil {
		return err
	}

	var chunkBytes types.ArrayBytes
	if raw == nil {
		chunkBytes = types.NewFillValueArrayBytes(d.rep.DataType, d.rep.FillValue, d.rep.NumElements())
	} else {
		chunkBytes, err = d.chain.Decode(raw, d.rep, opts)
		if err != nil {
			return err
		}
	}
	if err := chunkBytes.Validate(d.rep.NumElements(), d.rep.DataType.Size); err != nil {
		return err
	}

	for i, subset := range subsets {
		chunkBytes, err = types.UpdateArrayBytes(chunkBytes, d.rep.Shape, subsetBytes[i], subset, d.rep.DataType)
		if err != nil {
			return err
		}
	}

	if !opts.StoreEmptyChunks && chunkBytes.IsFillValue(d.rep.DataType, d.rep.FillValue) {
		return d.accessor.Erase()
	}

	encoded, err := d.chain.Encode(chunkBytes, d.rep, opts)
	if err != nil {
		return err
	}
	// Drop the old value first so a shorter re-encoding leaves no stale tail.
	if err := d.accessor.Erase(); err != nil {
		return err
	}
	return d.accessor.PartialEncode([]types.ByteRange{{Offset: 0, Length: int64(len(encoded))}}, [][]byte{encoded}, opts)
}
