package zarr

import "github.com/TuSKan/zarrcore/types"

// scatterBuffer is the fixed-width output buffer for a parallel array-subset
// read (spec.md §4.8 C8): preallocated once, then written into by one worker
// goroutine per intersecting chunk. Safety rests entirely on the disjointness
// of the target ranges the engine computes via the subset algebra (§4.2) —
// no locking happens here, matching the teacher's own un-synchronised
// copyElements bulk-copy in reader.go's processChunk.
type scatterBuffer struct {
	shape []int
	dt    types.DataType
	buf   []byte
}

func newScatterBuffer(shape []int, dt types.DataType) *scatterBuffer {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &scatterBuffer{shape: shape, dt: dt, buf: make([]byte, n*dt.Size)}
}

// scatter splices subsetBytes, covering subset in the buffer's own
// coordinate frame, directly into buf. Concurrent calls must target
// pairwise disjoint subsets.
func (s *scatterBuffer) scatter(subsetBytes types.ArrayBytes, subset types.ArraySubset) error {
	return types.ScatterInto(s.buf, s.shape, subsetBytes, subset, s.dt)
}

func (s *scatterBuffer) intoArrayBytes() types.ArrayBytes {
	return types.ArrayBytes{Fixed: s.buf, Owned: true}
}

// variableContribution is one chunk's share of a variable-width array-subset
// read: the decoded bytes it produced, and the region (in the requested
// subset's own coordinate frame) that they cover.
type variableContribution struct {
	bytes  types.ArrayBytes
	region types.ArraySubset
}

// mergeVariable concatenates a set of per-chunk variable-width contributions
// that together exactly tile outputShape, recomputing the offsets table
// (spec.md §4.5 "For variable-width data types the engine ... delegates to
// merge_variable"). Every element of outputShape must be covered by exactly
// one contribution; ChunksInSubset+Overlap guarantee this when the caller
// enumerates every intersecting chunk.
func mergeVariable(contributions []variableContribution, outputShape []int) (types.ArrayBytes, error) {
	total := 1
	for _, d := range outputShape {
		total *= d
	}
	elems := make([][]byte, total)
	strides := rowMajorStrides(outputShape)

	for _, c := range contributions {
		if c.bytes.Variable == nil {
			return types.ArrayBytes{}, &types.InvalidArraySubsetError{Reason: "merge_variable requires variable-width contributions"}
		}
		v := c.bytes.Variable
		positions := c.region.Indices()
		for local, pos := range positions {
			global := 0
			for axis, coord := range pos {
				global += coord * strides[axis]
			}
			elems[global] = v.Data[v.Offsets[local]:v.Offsets[local+1]]
		}
	}

	data := make([]byte, 0)
	offsets := make([]int, total+1)
	for i, elem := range elems {
		if elem == nil {
			return types.ArrayBytes{}, &types.InvalidArraySubsetError{Reason: "merge_variable: output subset not fully covered by chunk contributions"}
		}
		data = append(data, elem...)
		offsets[i+1] = len(data)
	}
	return types.ArrayBytes{Variable: &types.VariableArrayBytes{Data: data, Offsets: offsets}, Owned: true}, nil
}

func rowMajorStrides(shape []int) []int {
	st := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		st[i] = acc
		acc *= shape[i]
	}
	return st
}
