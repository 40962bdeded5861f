package codec

import (
	"encoding/binary"
	"math"

	"github.com/TuSKan/zarrcore/types"
)

// ShardingIndexLocation selects where the shard index sits relative to the
// inner-chunk payload within the encoded shard.
type ShardingIndexLocation int

const (
	IndexAtEnd ShardingIndexLocation = iota
	IndexAtStart
)

const shardIndexEntrySize = 16 // two little-endian uint64s (offset, size)

var maxU64 uint64 = math.MaxUint64

// Sharding is the array→bytes codec that packs a regular grid of inner
// chunks into a single outer "shard" chunk, with an offset/size index
// (spec.md §3, §4.7, grounded on original_source's
// array_to_bytes/sharding/sharding_partial_encoder.rs). A missing inner
// chunk is recorded as a (MaxUint64, MaxUint64) sentinel pair and decodes
// to the fill value.
type Sharding struct {
	ChunkShape    []int
	InnerCodecs   *Chain
	IndexCodecs   *Chain
	IndexLocation ShardingIndexLocation
}

func NewSharding(chunkShape []int, inner, index *Chain, loc ShardingIndexLocation) *Sharding {
	return &Sharding{ChunkShape: chunkShape, InnerCodecs: inner, IndexCodecs: index, IndexLocation: loc}
}

func (s *Sharding) Name() string { return "sharding_indexed" }

func (s *Sharding) grid(rep types.ChunkRepresentation) types.RegularChunkGrid {
	return types.NewRegularChunkGrid(rep.Shape, s.ChunkShape)
}

func (s *Sharding) chunksPerShard(rep types.ChunkRepresentation) []int {
	return s.grid(rep).GridShape()
}

func (s *Sharding) numInnerChunks(rep types.ChunkRepresentation) int {
	n := 1
	for _, d := range s.chunksPerShard(rep) {
		n *= d
	}
	return n
}

func (s *Sharding) indexRepresentation(rep types.ChunkRepresentation) types.ChunkRepresentation {
	n := s.numInnerChunks(rep)
	return types.ChunkRepresentation{Shape: []int{n * 2}, DataType: types.Uint64}
}

// indexEncodedSize returns the byte length of the encoded shard index. Our
// index codec chains only ever wrap the fixed-width "bytes" codec (no
// compression), so this is deterministic regardless of content, matching
// the assumption original_source's compute_index_encoded_size makes.
func (s *Sharding) indexEncodedSize(rep types.ChunkRepresentation, opts types.CodecOptions) (int, error) {
	idxRep := s.indexRepresentation(rep)
	zero := types.NewFillValueArrayBytes(idxRep.DataType, types.FillValue{0, 0, 0, 0, 0, 0, 0, 0}, idxRep.NumElements())
	enc, err := s.IndexCodecs.Encode(zero, idxRep, opts)
	if err != nil {
		return 0, err
	}
	return len(enc), nil
}

func encodeIndex(index []uint64) []byte {
	buf := make([]byte, len(index)*8)
	for i, v := range index {
		binary.LittleEndian.PutUint64(buf[i*8:], v)
	}
	return buf
}

func decodeIndex(buf []byte) []uint64 {
	out := make([]uint64, len(buf)/8)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(buf[i*8 : i*8+8])
	}
	return out
}

func (s *Sharding) innerRepAt(rep types.ChunkRepresentation, chunkIdx []int) (types.ChunkRepresentation, error) {
	shape, err := s.grid(rep).ChunkShapeAt(chunkIdx)
	if err != nil {
		return types.ChunkRepresentation{}, err
	}
	return types.ChunkRepresentation{Shape: shape, DataType: rep.DataType, FillValue: rep.FillValue}, nil
}

// Encode packs rep.Shape's worth of data into inner chunks and places the
// offset/size index before (IndexAtStart) or after (IndexAtEnd) them.
func (s *Sharding) Encode(in types.ArrayBytes, rep types.ChunkRepresentation, opts types.CodecOptions) ([]byte, error) {
	grid := s.grid(rep)
	chunksPerShard := s.chunksPerShard(rep)
	numChunks := s.numInnerChunks(rep)
	index := make([]uint64, numChunks*2)
	for i := range index {
		index[i] = maxU64
	}

	var data []byte
	chunkSpace := types.NewArraySubset(make([]int, len(chunksPerShard)), chunksPerShard)
	linear := 0
	for _, chunkIdx := range chunkSpace.Indices() {
		subset, err := grid.SubsetOf(chunkIdx)
		if err != nil {
			return nil, err
		}
		chunkBytes, err := types.ExtractArraySubset(in, rep.Shape, subset, rep.DataType)
		if err != nil {
			return nil, err
		}
		if !opts.StoreEmptyChunks && chunkBytes.IsFillValue(rep.DataType, rep.FillValue) {
			linear++
			continue
		}
		innerRep, err := s.innerRepAt(rep, chunkIdx)
		if err != nil {
			return nil, err
		}
		encoded, err := s.InnerCodecs.Encode(chunkBytes, innerRep, opts)
		if err != nil {
			return nil, err
		}
		index[linear*2] = uint64(len(data))
		index[linear*2+1] = uint64(len(encoded))
		data = append(data, encoded...)
		linear++
	}

	indexSize, err := s.indexEncodedSize(rep, opts)
	if err != nil {
		return nil, err
	}
	if s.IndexLocation == IndexAtStart {
		for i := 0; i < numChunks; i++ {
			if index[i*2] != maxU64 {
				index[i*2] += uint64(indexSize)
			}
		}
	}
	idxRep := s.indexRepresentation(rep)
	encodedIndex, err := s.IndexCodecs.Encode(types.NewFixedArrayBytes(encodeIndex(index), true), idxRep, opts)
	if err != nil {
		return nil, err
	}

	if s.IndexLocation == IndexAtStart {
		out := make([]byte, 0, len(encodedIndex)+len(data))
		out = append(out, encodedIndex...)
		out = append(out, data...)
		return out, nil
	}
	out := make([]byte, 0, len(data)+len(encodedIndex))
	out = append(out, data...)
	out = append(out, encodedIndex...)
	return out, nil
}

func (s *Sharding) decodeShardIndex(raw []byte, rep types.ChunkRepresentation, opts types.CodecOptions) ([]uint64, []byte, error) {
	indexSize, err := s.indexEncodedSize(rep, opts)
	if err != nil {
		return nil, nil, err
	}
	var indexBytes, data []byte
	if s.IndexLocation == IndexAtStart {
		if len(raw) < indexSize {
			return nil, nil, &types.ValidationError{Reason: "shard shorter than its index"}
		}
		// Index offsets count from the start of the shard, index included.
		indexBytes, data = raw[:indexSize], raw
	} else {
		if len(raw) < indexSize {
			return nil, nil, &types.ValidationError{Reason: "shard shorter than its index"}
		}
		data, indexBytes = raw[:len(raw)-indexSize], raw[len(raw)-indexSize:]
	}
	idxRep := s.indexRepresentation(rep)
	decoded, err := s.IndexCodecs.Decode(indexBytes, idxRep, opts)
	if err != nil {
		return nil, nil, err
	}
	return decodeIndex(decoded.Fixed), data, nil
}

func (s *Sharding) Decode(raw []byte, rep types.ChunkRepresentation, opts types.CodecOptions) (types.ArrayBytes, error) {
	grid := s.grid(rep)
	chunksPerShard := s.chunksPerShard(rep)
	index, data, err := s.decodeShardIndex(raw, rep, opts)
	if err != nil {
		return types.ArrayBytes{}, err
	}

	out := types.NewFillValueArrayBytes(rep.DataType, rep.FillValue, rep.NumElements())
	chunkSpace := types.NewArraySubset(make([]int, len(chunksPerShard)), chunksPerShard)
	for linear, chunkIdx := range chunkSpace.Indices() {
		offset, size := index[linear*2], index[linear*2+1]
		if offset == maxU64 && size == maxU64 {
			continue
		}
		innerRep, err := s.innerRepAt(rep, chunkIdx)
		if err != nil {
			return types.ArrayBytes{}, err
		}
		encoded := data[offset : offset+size]
		chunkBytes, err := s.InnerCodecs.Decode(encoded, innerRep, opts)
		if err != nil {
			return types.ArrayBytes{}, err
		}
		subset, err := grid.SubsetOf(chunkIdx)
		if err != nil {
			return types.ArrayBytes{}, err
		}
		out, err = types.UpdateArrayBytes(out, rep.Shape, chunkBytes, subset, rep.DataType)
		if err != nil {
			return types.ArrayBytes{}, err
		}
	}
	return out, nil
}

func (s *Sharding) RecommendedConcurrency(rep types.ChunkRepresentation) types.ConcurrencyRange {
	inner := s.InnerCodecs.RecommendedConcurrency(types.ChunkRepresentation{Shape: s.ChunkShape, DataType: rep.DataType, FillValue: rep.FillValue})
	n := s.numInnerChunks(rep)
	return types.ConcurrencyRange{Min: 1, Max: max(inner.Max, n)}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// PartialDecoder returns a decoder that reads the whole shard once and then
// decodes only the inner chunks overlapping each requested subset. The shard
// itself is not read by byte range.
func (s *Sharding) PartialDecoder(input BytesPartialDecoder, rep types.ChunkRepresentation, opts types.CodecOptions) (ArrayPartialDecoder, error) {
	return &shardingPartialDecoder{codec: s, input: input, rep: rep}, nil
}

type shardingPartialDecoder struct {
	codec *Sharding
	input BytesPartialDecoder
	rep   types.ChunkRepresentation
}

func (d *shardingPartialDecoder) PartialDecode(subsets []types.ArraySubset, opts types.CodecOptions) ([]types.ArrayBytes, error) {
	s := d.codec
	rep := d.rep
	grid := s.grid(rep)
	chunksPerShard := s.chunksPerShard(rep)

	whole, err := d.input.Decode(opts)
	if err != nil {
		return nil, err
	}
	var index []uint64
	var data []byte
	if whole != nil {
		index, data, err = s.decodeShardIndex(whole, rep, opts)
		if err != nil {
			return nil, err
		}
	}

	cache := map[int]types.ArrayBytes{}
	fetchInner := func(chunkIdx []int) (types.ArrayBytes, types.ArraySubset, error) {
		linearIdx := ravel(chunkIdx, chunksPerShard)
		subset, err := grid.SubsetOf(chunkIdx)
		if err != nil {
			return types.ArrayBytes{}, types.ArraySubset{}, err
		}
		if cached, ok := cache[linearIdx]; ok {
			return cached, subset, nil
		}
		innerRep, err := s.innerRepAt(rep, chunkIdx)
		if err != nil {
			return types.ArrayBytes{}, types.ArraySubset{}, err
		}
		var chunkBytes types.ArrayBytes
		if index == nil {
			chunkBytes = types.NewFillValueArrayBytes(innerRep.DataType, innerRep.FillValue, innerRep.NumElements())
		} else {
			offset, size := index[linearIdx*2], index[linearIdx*2+1]
			if offset == maxU64 && size == maxU64 {
				chunkBytes = types.NewFillValueArrayBytes(innerRep.DataType, innerRep.FillValue, innerRep.NumElements())
			} else {
				chunkBytes, err = s.InnerCodecs.Decode(data[offset:offset+size], innerRep, opts)
				if err != nil {
					return types.ArrayBytes{}, types.ArraySubset{}, err
				}
			}
		}
		cache[linearIdx] = chunkBytes
		return chunkBytes, subset, nil
	}

	out := make([]types.ArrayBytes, len(subsets))
	for i, subset := range subsets {
		innerSubset, err := grid.ChunksInSubset(subset)
		if err != nil {
			return nil, err
		}
		result := types.NewFillValueArrayBytes(rep.DataType, rep.FillValue, subset.NumElements())
		for _, chunkIdx := range innerSubset.Indices() {
			chunkBytes, chunkSubset, err := fetchInner(chunkIdx)
			if err != nil {
				return nil, err
			}
			overlap, ok := subset.Overlap(chunkSubset)
			if !ok {
				continue
			}
			relToChunk, err := overlap.RelativeTo(chunkSubset.Start)
			if err != nil {
				return nil, err
			}
			piece, err := types.ExtractArraySubset(chunkBytes, chunkSubset.Shape, relToChunk, rep.DataType)
			if err != nil {
				return nil, err
			}
			relToResult, err := overlap.RelativeTo(subset.Start)
			if err != nil {
				return nil, err
			}
			result, err = types.UpdateArrayBytes(result, subset.Shape, piece, relToResult, rep.DataType)
			if err != nil {
				return nil, err
			}
		}
		out[i] = result
	}
	return out, nil
}

func ravel(idx, shape []int) int {
	linear := 0
	for i, v := range idx {
		linear = linear*shape[i] + v
	}
	return linear
}

// PartialEncoder returns a native ShardingPartialEncoder.
func (s *Sharding) PartialEncoder(input BytesPartialDecoder, output BytesPartialEncoder, rep types.ChunkRepresentation, opts types.CodecOptions) (ArrayPartialEncoder, error) {
	return &ShardingPartialEncoder{codec: s, input: input, output: output, rep: rep}, nil
}

// ShardingPartialEncoder splices subset writes into specific inner chunks
// of a shard without rewriting untouched inner chunks, then rewrites the
// shard index. Grounded on original_source's ShardingPartialEncoder:
// modified inner chunks are always appended after the shard's current data
// (append-only; see DESIGN.md open-question decision on shard compaction).
type ShardingPartialEncoder struct {
	codec  *Sharding
	input  BytesPartialDecoder
	output BytesPartialEncoder
	rep    types.ChunkRepresentation
}

func (e *ShardingPartialEncoder) PartialEncode(subsets []types.ArraySubset, subsetBytes []types.ArrayBytes, opts types.CodecOptions) error {
	s := e.codec
	rep := e.rep
	grid := s.grid(rep)
	chunksPerShard := s.chunksPerShard(rep)
	numChunks := s.numInnerChunks(rep)

	whole, err := e.input.Decode(opts)
	if err != nil {
		return err
	}
	var index []uint64
	var data []byte
	if whole == nil {
		index = make([]uint64, numChunks*2)
		for i := range index {
			index[i] = maxU64
		}
	} else {
		index, data, err = s.decodeShardIndex(whole, rep, opts)
		if err != nil {
			return err
		}
	}

	updated := map[int]types.ArrayBytes{}
	for i, subset := range subsets {
		innerSubset, err := grid.ChunksInSubset(subset)
		if err != nil {
			return err
		}
		for _, chunkIdx := range innerSubset.Indices() {
			linearIdx := ravel(chunkIdx, chunksPerShard)
			innerRep, err := s.innerRepAt(rep, chunkIdx)
			if err != nil {
				return err
			}
			if _, ok := updated[linearIdx]; !ok {
				offset, size := index[linearIdx*2], index[linearIdx*2+1]
				index[linearIdx*2], index[linearIdx*2+1] = maxU64, maxU64
				var chunkBytes types.ArrayBytes
				if offset == maxU64 && size == maxU64 {
					chunkBytes = types.NewFillValueArrayBytes(innerRep.DataType, innerRep.FillValue, innerRep.NumElements())
				} else {
					chunkBytes, err = s.InnerCodecs.Decode(data[offset:offset+size], innerRep, opts)
					if err != nil {
						return err
					}
				}
				updated[linearIdx] = chunkBytes
			}

			chunkSubset, err := grid.SubsetOf(chunkIdx)
			if err != nil {
				return err
			}
			overlap, ok := subset.Overlap(chunkSubset)
			if !ok {
				continue
			}
			relToSubset, err := overlap.RelativeTo(subset.Start)
			if err != nil {
				return err
			}
			pieceBytes, err := types.ExtractArraySubset(subsetBytes[i], subset.Shape, relToSubset, rep.DataType)
			if err != nil {
				return err
			}
			relToChunk, err := overlap.RelativeTo(chunkSubset.Start)
			if err != nil {
				return err
			}
			updated[linearIdx], err = types.UpdateArrayBytes(updated[linearIdx], chunkSubset.Shape, pieceBytes, relToChunk, rep.DataType)
			if err != nil {
				return err
			}
		}
	}

	maxDataOffset := uint64(0)
	for i := 0; i < numChunks; i++ {
		offset, size := index[i*2], index[i*2+1]
		if offset == maxU64 && size == maxU64 {
			continue
		}
		if end := offset + size; end > maxDataOffset {
			maxDataOffset = end
		}
	}
	indexSize, err := s.indexEncodedSize(rep, opts)
	if err != nil {
		return err
	}
	offsetAppend := maxDataOffset
	if s.IndexLocation == IndexAtStart && uint64(indexSize) > offsetAppend {
		offsetAppend = uint64(indexSize)
	}

	var ranges []types.ByteRange
	var writes [][]byte
	for linearIdx, chunkBytes := range updated {
		chunkIdx := unravel(linearIdx, chunksPerShard)
		innerRep, err := s.innerRepAt(rep, chunkIdx)
		if err != nil {
			return err
		}
		encoded, err := s.InnerCodecs.Encode(chunkBytes, innerRep, opts)
		if err != nil {
			return err
		}
		ranges = append(ranges, types.ByteRange{Offset: int64(offsetAppend), Length: int64(len(encoded))})
		writes = append(writes, encoded)
		index[linearIdx*2] = offsetAppend
		index[linearIdx*2+1] = uint64(len(encoded))
		offsetAppend += uint64(len(encoded))
	}
	if len(ranges) > 0 {
		if err := e.output.PartialEncode(ranges, writes, opts); err != nil {
			return err
		}
	}

	idxRep := s.indexRepresentation(rep)
	encodedIndex, err := s.IndexCodecs.Encode(types.NewFixedArrayBytes(encodeIndex(index), true), idxRep, opts)
	if err != nil {
		return err
	}
	var indexOffset int64
	if s.IndexLocation == IndexAtStart {
		indexOffset = 0
	} else {
		indexOffset = int64(offsetAppend)
	}
	return e.output.PartialEncode(
		[]types.ByteRange{{Offset: indexOffset, Length: int64(len(encodedIndex))}},
		[][]byte{encodedIndex},
		opts,
	)
}

func unravel(linear int, shape []int) []int {
	idx := make([]int, len(shape))
	for i := len(shape) - 1; i >= 0; i-- {
		idx[i] = linear % shape[i]
		linear /= shape[i]
	}
	return idx
}
