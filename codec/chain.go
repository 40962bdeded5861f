package codec

import (
	"github.com/TuSKan/zarrcore/types"
)

// Chain is an ordered codec pipeline: zero or more array→array codecs,
// exactly one array→bytes codec, and zero or more bytes→bytes codecs
// (spec.md §3, §4.4). Construction enforces the exactly-one array→bytes
// rule — there is no way to build a Chain without one.
type Chain struct {
	ArrayToArray []ArrayToArrayCodec
	ArrayToBytes ArrayToBytesCodec
	BytesToBytes []BytesToBytesCodec
}

// NewChain builds a chain. arrayToBytes must not be nil.
func NewChain(arrayToArray []ArrayToArrayCodec, arrayToBytes ArrayToBytesCodec, bytesToBytes []BytesToBytesCodec) (*Chain, error) {
	if arrayToBytes == nil {
		return nil, &types.CodecError{Codec: "chain", Err: errNoArrayToBytesCodec}
	}
	return &Chain{ArrayToArray: arrayToArray, ArrayToBytes: arrayToBytes, BytesToBytes: bytesToBytes}, nil
}

var errNoArrayToBytesCodec = chainErr("a codec chain must contain exactly one array-to-bytes codec")

type chainErr string

func (e chainErr) Error() string { return string(e) }

// encodedRepresentation threads rep through the array→array stages in
// forward order, returning what the array→bytes stage will see.
func (c *Chain) encodedRepresentation(rep types.ChunkRepresentation) types.ChunkRepresentation {
	for _, a2a := range c.ArrayToArray {
		rep = a2a.EncodedRepresentation(rep)
	}
	return rep
}

// Encode drives bytes forward through the whole chain: array→array stages,
// then the array→bytes stage, then bytes→bytes stages, in that order.
func (c *Chain) Encode(in types.ArrayBytes, rep types.ChunkRepresentation, opts types.CodecOptions) ([]byte, error) {
	cur := in
	curRep := rep
	for _, a2a := range c.ArrayToArray {
		next, err := a2a.Encode(cur, curRep, opts)
		if err != nil {
			return nil, &types.CodecError{Codec: a2a.Name(), Err: err}
		}
		if err := next.Validate(curRep.NumElements(), curRep.DataType.Size); err != nil {
			return nil, err
		}
		cur = next
		curRep = a2a.EncodedRepresentation(curRep)
	}

	raw, err := c.ArrayToBytes.Encode(cur, curRep, opts)
	if err != nil {
		return nil, &types.CodecError{Codec: c.ArrayToBytes.Name(), Err: err}
	}

	for _, b2b := range c.BytesToBytes {
		raw, err = b2b.Encode(raw, opts)
		if err != nil {
			return nil, &types.CodecError{Codec: b2b.Name(), Err: err}
		}
	}
	return raw, nil
}

// Decode reverses Encode: bytes→bytes stages in reverse, then the
// array→bytes stage, then array→array stages in reverse. The decoded
// output is validated against rep after every stage.
func (c *Chain) Decode(raw []byte, rep types.ChunkRepresentation, opts types.CodecOptions) (types.ArrayBytes, error) {
	curRep := c.encodedRepresentation(rep)

	for i := len(c.BytesToBytes) - 1; i >= 0; i-- {
		b2b := c.BytesToBytes[i]
		var err error
		raw, err = b2b.Decode(raw, opts)
		if err != nil {
			return types.ArrayBytes{}, &types.CodecError{Codec: b2b.Name(), Err: err}
		}
	}

	cur, err := c.ArrayToBytes.Decode(raw, curRep, opts)
	if err != nil {
		return types.ArrayBytes{}, &types.CodecError{Codec: c.ArrayToBytes.Name(), Err: err}
	}
	if err := cur.Validate(curRep.NumElements(), curRep.DataType.Size); err != nil {
		return types.ArrayBytes{}, err
	}

	for i := len(c.ArrayToArray) - 1; i >= 0; i-- {
		a2a := c.ArrayToArray[i]
		// curRep is the representation downstream of stage i; recover the
		// representation stage i consumes by re-deriving it from rep up to i.
		prevRep := rep
		for j := 0; j < i; j++ {
			prevRep = c.ArrayToArray[j].EncodedRepresentation(prevRep)
		}
		next, err := a2a.Decode(cur, prevRep, opts)
		if err != nil {
			return types.ArrayBytes{}, &types.CodecError{Codec: a2a.Name(), Err: err}
		}
		if err := next.Validate(prevRep.NumElements(), prevRep.DataType.Size); err != nil {
			return types.ArrayBytes{}, err
		}
		cur = next
		curRep = prevRep
	}
	return cur, nil
}

// RecommendedConcurrency combines every stage's recommended concurrency
// range into one range for the whole chain: the tightest bounds across all
// stages (spec.md §4.4 "Concurrency recommendation").
func (c *Chain) RecommendedConcurrency(rep types.ChunkRepresentation) types.ConcurrencyRange {
	curRep := rep
	combined := types.ConcurrencyRange{Min: 1, Max: 1 << 30}
	merge := func(r types.ConcurrencyRange) {
		if r.Min > combined.Min {
			combined.Min = r.Min
		}
		if r.Max < combined.Max {
			combined.Max = r.Max
		}
	}
	for _, a2a := range c.ArrayToArray {
		merge(a2a.RecommendedConcurrency(curRep))
		curRep = a2a.EncodedRepresentation(curRep)
	}
	merge(c.ArrayToBytes.RecommendedConcurrency(curRep))
	for _, b2b := range c.BytesToBytes {
		merge(b2b.RecommendedConcurrency())
	}
	if combined.Max < combined.Min {
		combined.Max = combined.Min
	}
	return combined
}
