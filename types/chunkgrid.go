package types

// RegularChunkGrid maps array coordinates to chunk indices and back for a
// fixed chunk shape. The last chunk along each axis is clipped to the
// remaining array extent, per spec.
type RegularChunkGrid struct {
	ArrayShape []int
	ChunkShape []int
}

// NewRegularChunkGrid builds a grid, cloning both vectors.
func NewRegularChunkGrid(arrayShape, chunkShape []int) RegularChunkGrid {
	return RegularChunkGrid{ArrayShape: cloneInts(arrayShape), ChunkShape: cloneInts(chunkShape)}
}

// GridShape returns, for each axis, ceil(arrayShape[i] / chunkShape[i]).
func (g RegularChunkGrid) GridShape() []int {
	shape := make([]int, len(g.ArrayShape))
	for i := range g.ArrayShape {
		shape[i] = (g.ArrayShape[i] + g.ChunkShape[i] - 1) / g.ChunkShape[i]
	}
	return shape
}

// inBounds reports whether chunkIndices sit within the grid shape.
func (g RegularChunkGrid) inBounds(chunkIndices []int) bool {
	if len(chunkIndices) != len(g.ArrayShape) {
		return false
	}
	grid := g.GridShape()
	for i, idx := range chunkIndices {
		if idx < 0 || idx >= grid[i] {
			return false
		}
	}
	return true
}

// ChunkShapeAt returns the logical (possibly clipped) shape of the chunk at
// chunkIndices.
func (g RegularChunkGrid) ChunkShapeAt(chunkIndices []int) ([]int, error) {
	if !g.inBounds(chunkIndices) {
		return nil, &InvalidChunkIndicesError{Indices: chunkIndices, Grid: g.GridShape()}
	}
	shape := make([]int, len(g.ArrayShape))
	for i, idx := range chunkIndices {
		start := idx * g.ChunkShape[i]
		end := start + g.ChunkShape[i]
		if end > g.ArrayShape[i] {
			end = g.ArrayShape[i]
		}
		shape[i] = end - start
	}
	return shape, nil
}

// SubsetOf returns the array-coordinate subset occupied by the chunk at
// chunkIndices (clipped at the array boundary).
func (g RegularChunkGrid) SubsetOf(chunkIndices []int) (ArraySubset, error) {
	shape, err := g.ChunkShapeAt(chunkIndices)
	if err != nil {
		return ArraySubset{}, err
	}
	start := make([]int, len(chunkIndices))
	for i, idx := range chunkIndices {
		start[i] = idx * g.ChunkShape[i]
	}
	return ArraySubset{Start: start, Shape: shape}, nil
}

// ChunksInSubset returns the minimal axis-aligned chunk-index subset whose
// chunks intersect subset (a subset in chunk-index space, not array
// coordinates).
func (g RegularChunkGrid) ChunksInSubset(subset ArraySubset) (ArraySubset, error) {
	if len(subset.Shape) != len(g.ArrayShape) {
		return ArraySubset{}, &InvalidArraySubsetError{Reason: "dimensionality mismatch in chunks_in_subset"}
	}
	n := len(subset.Shape)
	start := make([]int, n)
	shape := make([]int, n)
	end := subset.End()
	for i := 0; i < n; i++ {
		if subset.Shape[i] <= 0 {
			return ArraySubset{}, &InvalidArraySubsetError{Reason: "empty subset has no chunks"}
		}
		minChunk := subset.Start[i] / g.ChunkShape[i]
		maxChunk := (end[i] - 1) / g.ChunkShape[i]
		start[i] = minChunk
		shape[i] = maxChunk - minChunk + 1
	}
	return ArraySubset{Start: start, Shape: shape}, nil
}
