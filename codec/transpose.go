package codec

import (
	"github.com/TuSKan/zarrcore/types"
)

// Transpose is an array→array codec that permutes chunk axes (spec.md §3).
// Order[i] names which input axis becomes output axis i.
type Transpose struct {
	Order []int
}

func NewTranspose(order []int) *Transpose {
	return &Transpose{Order: append([]int(nil), order...)}
}

func (t *Transpose) Name() string { return "transpose" }

func (t *Transpose) inverse() []int {
	inv := make([]int, len(t.Order))
	for i, o := range t.Order {
		inv[o] = i
	}
	return inv
}

// EncodedRepresentation permutes Shape by Order; data type and fill value
// are unaffected by a pure axis permutation.
func (t *Transpose) EncodedRepresentation(in types.ChunkRepresentation) types.ChunkRepresentation {
	out := in
	out.Shape = permute(in.Shape, t.Order)
	return out
}

func (t *Transpose) Encode(in types.ArrayBytes, rep types.ChunkRepresentation, opts types.CodecOptions) (types.ArrayBytes, error) {
	return t.permuteBytes(in, rep.Shape, rep.DataType, t.Order)
}

// Decode reverses the permutation: rep is the PRE-transpose representation
// (what the chain threads into this stage on decode), so Decode applies the
// inverse order to in, which is shaped according to EncodedRepresentation(rep).
func (t *Transpose) Decode(in types.ArrayBytes, rep types.ChunkRepresentation, opts types.CodecOptions) (types.ArrayBytes, error) {
	encodedShape := permute(rep.Shape, t.Order)
	return t.permuteBytes(in, encodedShape, rep.DataType, t.inverse())
}

// permuteBytes reorders the axes of a row-major buffer shaped srcShape
// according to order, where order[i] is the source axis landing at
// destination axis i.
func (t *Transpose) permuteBytes(in types.ArrayBytes, srcShape []int, dt types.DataType, order []int) (types.ArrayBytes, error) {
	if in.Variable != nil {
		return types.ArrayBytes{}, &types.UnsupportedError{Op: "transpose codec on variable-width data"}
	}
	n := len(srcShape)
	dstShape := permute(srcShape, order)
	es := dt.Size
	srcStrides := rowMajorStrides(srcShape)
	dstStrides := rowMajorStrides(dstShape)

	total := 1
	for _, d := range srcShape {
		total *= d
	}
	out := make([]byte, total*es)

	srcIdx := make([]int, n)
	var walk func(axis, srcOff int)
	walk = func(axis, srcOff int) {
		if axis == n {
			dstOff := 0
			for dstAxis, srcAxis := range order {
				dstOff += srcIdx[srcAxis] * dstStrides[dstAxis]
			}
			copy(out[dstOff*es:dstOff*es+es], in.Fixed[srcOff*es:srcOff*es+es])
			return
		}
		for i := 0; i < srcShape[axis]; i++ {
			srcIdx[axis] = i
			walk(axis+1, srcOff+i*srcStrides[axis])
		}
	}
	walk(0, 0)

	return types.ArrayBytes{Fixed: out, Owned: true}, nil
}

func permute(shape []int, order []int) []int {
	out := make([]int, len(shape))
	for i, o := range order {
		out[i] = shape[o]
	}
	return out
}

func rowMajorStrides(shape []int) []int {
	n := len(shape)
	strides := make([]int, n)
	acc := 1
	for i := n - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}

func (t *Transpose) RecommendedConcurrency(rep types.ChunkRepresentation) types.ConcurrencyRange {
	return types.ConcurrencyRange{Min: 1, Max: 1}
}
