package types

// VariableArrayBytes is the variable-width array-bytes representation: Data
// holds every element's bytes concatenated, and Offsets[i]..Offsets[i+1]
// bounds element i. len(Offsets) == numElements+1, Offsets is monotonically
// non-decreasing, Offsets[0] == 0 and Offsets[last] == len(Data).
type VariableArrayBytes struct {
	Data    []byte
	Offsets []int
}

// ArrayBytes is the decoded in-memory representation of a chunk or chunk
// subset: exactly one of Fixed or Variable is populated, matching the data
// type the value was produced for. Owned marks whether the buffers are safe
// to retain past the call that produced them; a borrowed value must be
// copied (IntoOwned) before being stashed anywhere that outlives the
// pipeline stage that produced it.
type ArrayBytes struct {
	Fixed    []byte
	Variable *VariableArrayBytes
	Owned    bool
}

// NewFixedArrayBytes wraps a fixed-width buffer.
func NewFixedArrayBytes(data []byte, owned bool) ArrayBytes {
	return ArrayBytes{Fixed: data, Owned: owned}
}

// NewVariableArrayBytes wraps a variable-width (data, offsets) pair.
func NewVariableArrayBytes(data []byte, offsets []int, owned bool) ArrayBytes {
	return ArrayBytes{Variable: &VariableArrayBytes{Data: data, Offsets: offsets}, Owned: owned}
}

// IsVariableWidth reports whether this value carries a Variable payload.
func (a ArrayBytes) IsVariableWidth() bool { return a.Variable != nil }

// NumElements returns the element count. elementSize is only consulted for
// fixed-width values.
func (a ArrayBytes) NumElements(elementSize int) int {
	if a.Variable != nil {
		return len(a.Variable.Offsets) - 1
	}
	if elementSize <= 0 {
		return 0
	}
	return len(a.Fixed) / elementSize
}

// Size returns the total byte footprint, including the offsets table for
// variable-width values (used by the weighted chunk cache).
func (a ArrayBytes) Size() int {
	if a.Variable != nil {
		return len(a.Variable.Data) + len(a.Variable.Offsets)*8
	}
	return len(a.Fixed)
}

// Validate checks the fixed-size or variable-width invariants (spec.md §3).
func (a ArrayBytes) Validate(numElements, elementSize int) error {
	if a.Variable != nil {
		v := a.Variable
		if len(v.Offsets) != numElements+1 {
			return &ValidationError{Reason: "offsets length must be numElements+1"}
		}
		if numElements > 0 && v.Offsets[0] != 0 {
			return &ValidationError{Reason: "offsets[0] must be 0"}
		}
		if len(v.Offsets) > 0 && v.Offsets[len(v.Offsets)-1] != len(v.Data) {
			return &ValidationError{Reason: "last offset must equal len(data)"}
		}
		for i := 1; i < len(v.Offsets); i++ {
			if v.Offsets[i] < v.Offsets[i-1] {
				return &ValidationError{Reason: "offsets must be monotonically non-decreasing"}
			}
		}
		return nil
	}
	if len(a.Fixed) != numElements*elementSize {
		return &ValidationError{Reason: "fixed-width buffer length must equal numElements*elementSize"}
	}
	return nil
}

// IntoOwned returns a value whose buffers are safe to retain, copying if a
// was borrowed. A value that is already owned is returned unchanged.
func (a ArrayBytes) IntoOwned() ArrayBytes {
	if a.Owned {
		return a
	}
	return a.clone(true)
}

// Clone returns an independent deep copy.
func (a ArrayBytes) Clone() ArrayBytes {
	return a.clone(true)
}

func (a ArrayBytes) clone(owned bool) ArrayBytes {
	if a.Variable != nil {
		data := make([]byte, len(a.Variable.Data))
		copy(data, a.Variable.Data)
		offsets := make([]int, len(a.Variable.Offsets))
		copy(offsets, a.Variable.Offsets)
		return ArrayBytes{Variable: &VariableArrayBytes{Data: data, Offsets: offsets}, Owned: owned}
	}
	fixed := make([]byte, len(a.Fixed))
	copy(fixed, a.Fixed)
	return ArrayBytes{Fixed: fixed, Owned: owned}
}

// NewFillValueArrayBytes materialises numElements copies of fv: a
// contiguous repeated buffer for a fixed-width type, or a variable-width
// value whose every element is fv's bytes.
func NewFillValueArrayBytes(dt DataType, fv FillValue, numElements int) ArrayBytes {
	if dt.IsVariableWidth() {
		data := make([]byte, 0, len(fv)*numElements)
		offsets := make([]int, numElements+1)
		for i := 0; i < numElements; i++ {
			data = append(data, fv...)
			offsets[i+1] = len(data)
		}
		return ArrayBytes{Variable: &VariableArrayBytes{Data: data, Offsets: offsets}, Owned: true}
	}
	buf := make([]byte, numElements*dt.Size)
	for i := 0; i < numElements; i++ {
		copy(buf[i*dt.Size:(i+1)*dt.Size], fv)
	}
	return ArrayBytes{Fixed: buf, Owned: true}
}

// IsFillValue reports whether every element of a equals fv.
func (a ArrayBytes) IsFillValue(dt DataType, fv FillValue) bool {
	if a.Variable != nil {
		v := a.Variable
		n := len(v.Offsets) - 1
		for i := 0; i < n; i++ {
			elem := v.Data[v.Offsets[i]:v.Offsets[i+1]]
			if !bytesEqual(elem, fv) {
				return false
			}
		}
		return true
	}
	if dt.Size <= 0 {
		return len(a.Fixed) == 0
	}
	n := len(a.Fixed) / dt.Size
	for i := 0; i < n; i++ {
		if !bytesEqual(a.Fixed[i*dt.Size:(i+1)*dt.Size], fv) {
			return false
		}
	}
	return true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ExtractArraySubset slices out the region of container (shaped
// containerShape) covered by subset, returning a new owned ArrayBytes.
func ExtractArraySubset(container ArrayBytes, containerShape []int, subset ArraySubset, dt DataType) (ArrayBytes, error) {
	if len(containerShape) != subset.Dimensionality() {
		return ArrayBytes{}, &InvalidArraySubsetError{Reason: "dimensionality mismatch in extract_array_subset"}
	}
	linear, err := subsetLinearIndices(containerShape, subset)
	if err != nil {
		return ArrayBytes{}, err
	}
	if container.Variable != nil {
		v := container.Variable
		data := make([]byte, 0)
		offsets := make([]int, len(linear)+1)
		for local, ci := range linear {
			elem := v.Data[v.Offsets[ci]:v.Offsets[ci+1]]
			data = append(data, elem...)
			offsets[local+1] = len(data)
		}
		return ArrayBytes{Variable: &VariableArrayBytes{Data: data, Offsets: offsets}, Owned: true}, nil
	}

	es := dt.Size
	dstStrides := strides(subset.Shape)
	srcStrides := strides(containerShape)
	out := make([]byte, subset.NumElements()*es)
	copyND(out, dstStrides, zeros(len(subset.Shape)), container.Fixed, srcStrides, subset.Start, subset.Shape, es)
	return ArrayBytes{Fixed: out, Owned: true}, nil
}

// UpdateArrayBytes splices subsetBytes (covering subset, in containerShape's
// coordinate frame) into dst (shaped containerShape), returning a new owned
// ArrayBytes. dst is not mutated.
func UpdateArrayBytes(dst ArrayBytes, containerShape []int, subsetBytes ArrayBytes, subset ArraySubset, dt DataType) (ArrayBytes, error) {
	if len(containerShape) != subset.Dimensionality() {
		return ArrayBytes{}, &InvalidArraySubsetError{Reason: "dimensionality mismatch in update_array_bytes"}
	}
	linear, err := subsetLinearIndices(containerShape, subset)
	if err != nil {
		return ArrayBytes{}, err
	}

	if dst.Variable != nil || subsetBytes.Variable != nil {
		if dst.Variable == nil || subsetBytes.Variable == nil {
			return ArrayBytes{}, &InvalidArraySubsetError{Reason: "cannot mix fixed and variable array-bytes in update"}
		}
		inSubset := make(map[int]int, len(linear))
		for local, ci := range linear {
			inSubset[ci] = local
		}
		total := 1
		for _, d := range containerShape {
			total *= d
		}
		data := make([]byte, 0, len(dst.Variable.Data))
		offsets := make([]int, total+1)
		for ci := 0; ci < total; ci++ {
			var elem []byte
			if local, ok := inSubset[ci]; ok {
				elem = subsetBytes.Variable.Data[subsetBytes.Variable.Offsets[local]:subsetBytes.Variable.Offsets[local+1]]
			} else {
				elem = dst.Variable.Data[dst.Variable.Offsets[ci]:dst.Variable.Offsets[ci+1]]
			}
			data = append(data, elem...)
			offsets[ci+1] = len(data)
		}
		return ArrayBytes{Variable: &VariableArrayBytes{Data: data, Offsets: offsets}, Owned: true}, nil
	}

	out := dst.clone(true)
	es := dt.Size
	dstStrides := strides(containerShape)
	srcStrides := strides(subset.Shape)
	copyND(out.Fixed, dstStrides, subset.Start, subsetBytes.Fixed, srcStrides, zeros(len(subset.Shape)), subset.Shape, es)
	return out, nil
}

// ScatterInto writes subsetBytes (covering subset, in containerShape's
// coordinate frame) directly into dst, which must already be sized
// numElements(containerShape)*dt.Size. Unlike UpdateArrayBytes, dst is
// mutated in place rather than cloned: the array engine's scatter buffer
// (spec.md §4.8) preallocates dst once and has each worker splice its own
// chunk's contribution directly into it. Safety is the caller's
// responsibility: concurrent calls must target pairwise disjoint subsets.
func ScatterInto(dst []byte, containerShape []int, subsetBytes ArrayBytes, subset ArraySubset, dt DataType) error {
	if subsetBytes.Variable != nil {
		return &InvalidArraySubsetError{Reason: "ScatterInto does not support variable-width array-bytes"}
	}
	if len(containerShape) != subset.Dimensionality() {
		return &InvalidArraySubsetError{Reason: "dimensionality mismatch in scatter_into"}
	}
	es := dt.Size
	dstStrides := strides(containerShape)
	srcStrides := strides(subset.Shape)
	copyND(dst, dstStrides, subset.Start, subsetBytes.Fixed, srcStrides, zeros(len(subset.Shape)), subset.Shape, es)
	return nil
}

func zeros(n int) []int { return make([]int, n) }

// subsetLinearIndices returns, for every position in subset enumerated in
// row-major order, the corresponding row-major linear index into a
// containerShape-shaped flat array.
func subsetLinearIndices(containerShape []int, subset ArraySubset) ([]int, error) {
	if subset.Dimensionality() == 0 {
		return []int{0}, nil
	}
	end := subset.End()
	for i, d := range containerShape {
		if subset.Start[i] < 0 || end[i] > d {
			return nil, &InvalidArraySubsetError{Reason: "subset out of bounds of container shape"}
		}
	}
	containerStrides := strides(containerShape)
	var out []int
	err := iterateIndices(subset.Shape, func(rel []int) error {
		idx := 0
		for i, r := range rel {
			idx += (subset.Start[i] + r) * containerStrides[i]
		}
		out = append(out, idx)
		return nil
	})
	return out, err
}

// copyND recursively copies an n-dimensional region from src to dst, using
// a bulk copy for the innermost contiguous dimension. Grounded on the
// teacher's own copyND (reader.go).
func copyND(dst []byte, dstStrides, dstOffset []int, src []byte, srcStrides, srcOffset []int, copyShape []int, itemSize int) {
	if len(copyShape) == 0 {
		copy(dst[:itemSize], src[:itemSize])
		return
	}

	startSrcIdx := 0
	startDstIdx := 0
	for i := range copyShape {
		startSrcIdx += srcOffset[i] * srcStrides[i]
		startDstIdx += dstOffset[i] * dstStrides[i]
	}

	var iterate func(dim int, currentSrcIdx, currentDstIdx int)
	iterate = func(dim int, currentSrcIdx, currentDstIdx int) {
		if dim == len(copyShape)-1 {
			n := copyShape[dim]
			if srcStrides[dim] == 1 && dstStrides[dim] == 1 {
				byteLen := n * itemSize
				srcStart := currentSrcIdx * itemSize
				dstStart := currentDstIdx * itemSize
				copy(dst[dstStart:dstStart+byteLen], src[srcStart:srcStart+byteLen])
				return
			}
			for i := 0; i < n; i++ {
				srcStart := (currentSrcIdx + i*srcStrides[dim]) * itemSize
				dstStart := (currentDstIdx + i*dstStrides[dim]) * itemSize
				copy(dst[dstStart:dstStart+itemSize], src[srcStart:srcStart+itemSize])
			}
			return
		}
		for i := 0; i < copyShape[dim]; i++ {
			iterate(dim+1, currentSrcIdx+i*srcStrides[dim], currentDstIdx+i*dstStrides[dim])
		}
	}
	iterate(0, startSrcIdx, startDstIdx)
}
