// Package zarr is the array I/O engine (spec.md §4.5 C5), the partial-write
// fan-out and scatter buffer (C8), and the array/group metadata shape
// (§6) sitting above the leaf types/codec/store/cache packages. Grounded on
// the teacher's own root-level package layout (go-zarr's reader.go/chunk.go
// sit directly above zarr/metadata.go).
package zarr

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/TuSKan/zarrcore/types"
)

// ChunkGridMetadata is the "chunk_grid" field of array metadata. Only the
// "regular" grid is modeled (spec.md §4.3 "Regular grid only in the core").
type ChunkGridMetadata struct {
	Name          string `json:"name"`
	Configuration struct {
		ChunkShape []int `json:"chunk_shape"`
	} `json:"configuration"`
}

// ChunkKeyEncodingKind selects between the two permitted chunk-key layouts
// (spec.md §6).
type ChunkKeyEncodingKind int

const (
	// ChunkKeyDefault renders "c/i0/i1/…" (or bare "c" for a 0-d array).
	ChunkKeyDefault ChunkKeyEncodingKind = iota
	// ChunkKeyV2 renders "i0.i1.…" (or "0" for a 0-d array), matching Zarr v2.
	ChunkKeyV2
)

// ChunkKeyEncoding names the chunk-key layout and its separator.
type ChunkKeyEncoding struct {
	Kind      ChunkKeyEncodingKind
	Separator string
}

// DefaultChunkKeyEncoding is "c/i0/i1/…" with "/" as the separator.
func DefaultChunkKeyEncoding() ChunkKeyEncoding {
	return ChunkKeyEncoding{Kind: ChunkKeyDefault, Separator: "/"}
}

// V2ChunkKeyEncoding is "i0.i1.…" with "." as the separator, matching the
// teacher's own zarr.ChunkKey.
func V2ChunkKeyEncoding() ChunkKeyEncoding {
	return ChunkKeyEncoding{Kind: ChunkKeyV2, Separator: "."}
}

// Encode renders a chunk-index vector into its store-key suffix.
func (e ChunkKeyEncoding) Encode(indices []int) string {
	sep := e.Separator
	if sep == "" {
		sep = "/"
	}
	switch e.Kind {
	case ChunkKeyV2:
		if len(indices) == 0 {
			return "0"
		}
		return joinInts(indices, sep)
	default:
		if len(indices) == 0 {
			return "c"
		}
		return "c" + sep + joinInts(indices, sep)
	}
}

func joinInts(indices []int, sep string) string {
	var sb strings.Builder
	for i, idx := range indices {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(strconv.Itoa(idx))
	}
	return sb.String()
}

// MarshalJSON renders {"name": "default"|"v2", "configuration": {"separator": "..."}}.
func (e ChunkKeyEncoding) MarshalJSON() ([]byte, error) {
	name := "default"
	if e.Kind == ChunkKeyV2 {
		name = "v2"
	}
	return json.Marshal(struct {
		Name          string `json:"name"`
		Configuration struct {
			Separator string `json:"separator"`
		} `json:"configuration"`
	}{Name: name, Configuration: struct {
		Separator string `json:"separator"`
	}{Separator: e.Separator}})
}

// UnmarshalJSON parses the chunk_key_encoding field of array metadata.
func (e *ChunkKeyEncoding) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name          string `json:"name"`
		Configuration struct {
			Separator string `json:"separator"`
		} `json:"configuration"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Name {
	case "v2":
		e.Kind = ChunkKeyV2
	case "default", "":
		e.Kind = ChunkKeyDefault
	default:
		return &types.InvalidMetadataError{Reason: fmt.Sprintf("unknown chunk_key_encoding name %q", raw.Name)}
	}
	e.Separator = raw.Configuration.Separator
	return nil
}

// CodecMetadata is one entry of the array metadata "codecs" list: a name
// plus an opaque configuration blob. Resolving a name to a live codec.Chain
// stage is a concern of the caller constructing an Array, not of this
// package — spec.md §1 scopes "the concrete wire format of individual
// compression codecs" out of the core, and SPEC_FULL.md keeps metadata a
// plain serializable shape rather than a codec registry.
type CodecMetadata struct {
	Name          string          `json:"name"`
	Configuration json.RawMessage `json:"configuration,omitempty"`
}

// knownArrayFields lists the array-metadata JSON keys this package
// understands; anything else lands in Metadata.Additional and is
// round-tripped verbatim.
var knownArrayFields = map[string]bool{
	"zarr_format": true, "node_type": true, "shape": true, "data_type": true,
	"chunk_grid": true, "chunk_key_encoding": true, "fill_value": true,
	"codecs": true, "attributes": true, "dimension_names": true,
	"storage_transformers": true,
}

// ArrayMetadata is the "zarr.json" document for an array node (spec.md §6).
// Unknown fields are preserved verbatim in Additional and re-emitted on
// MarshalJSON, matching the teacher's permissive decode style
// (LoadMetadata only validates zarr_format, nothing else).
type ArrayMetadata struct {
	ZarrFormat          int                        `json:"zarr_format"`
	NodeType            string                     `json:"node_type"`
	Shape               []int                      `json:"shape"`
	DataType            string                      `json:"data_type"`
	ChunkGrid           ChunkGridMetadata           `json:"chunk_grid"`
	ChunkKeyEncoding     ChunkKeyEncoding           `json:"chunk_key_encoding"`
	FillValue           json.RawMessage             `json:"fill_value"`
	Codecs              []CodecMetadata            `json:"codecs"`
	Attributes          map[string]json.RawMessage `json:"attributes,omitempty"`
	DimensionNames      []*string                  `json:"dimension_names,omitempty"`
	StorageTransformers []json.RawMessage          `json:"storage_transformers,omitempty"`
	Additional          map[string]json.RawMessage `json:"-"`
}

// MarshalJSON re-assembles the known fields plus every preserved unknown one.
func (m ArrayMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Additional)+8)
	for k, v := range m.Additional {
		out[k] = v
	}
	set := func(k string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		out[k] = b
		return nil
	}
	if err := set("zarr_format", m.ZarrFormat); err != nil {
		return nil, err
	}
	if err := set("node_type", m.NodeType); err != nil {
		return nil, err
	}
	if err := set("shape", m.Shape); err != nil {
		return nil, err
	}
	if err := set("data_type", m.DataType); err != nil {
		return nil, err
	}
	if err := set("chunk_grid", m.ChunkGrid); err != nil {
		return nil, err
	}
	if err := set("chunk_key_encoding", m.ChunkKeyEncoding); err != nil {
		return nil, err
	}
	if m.FillValue != nil {
		out["fill_value"] = m.FillValue
	}
	if err := set("codecs", m.Codecs); err != nil {
		return nil, err
	}
	if m.Attributes != nil {
		if err := set("attributes", m.Attributes); err != nil {
			return nil, err
		}
	}
	if m.DimensionNames != nil {
		if err := set("dimension_names", m.DimensionNames); err != nil {
			return nil, err
		}
	}
	if m.StorageTransformers != nil {
		if err := set("storage_transformers", m.StorageTransformers); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the known fields and stashes everything else in
// Additional for lossless round-trip.
func (m *ArrayMetadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	type alias ArrayMetadata
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = ArrayMetadata(a)
	m.Additional = make(map[string]json.RawMessage)
	for k, v := range raw {
		if !knownArrayFields[k] {
			m.Additional[k] = v
		}
	}
	if m.ZarrFormat != 3 {
		return &types.InvalidMetadataError{Reason: fmt.Sprintf("unsupported zarr_format %d, expected 3", m.ZarrFormat)}
	}
	if m.NodeType != "array" {
		return &types.InvalidMetadataError{Reason: fmt.Sprintf(`node_type must be "array", got %q`, m.NodeType)}
	}
	return nil
}

// ConsolidatedMetadataEntry is one child of a group's consolidated_metadata
// map (spec.md §6, grounded on original_source/src/metadata/v3/group.rs).
type ConsolidatedMetadataEntry struct {
	Kind           string          `json:"kind"`
	MustUnderstand bool            `json:"must_understand"`
	Metadata       json.RawMessage `json:"metadata"`
}

// ConsolidatedMetadata is the optional "consolidated_metadata" field of
// group metadata: a flat map from node path to a snapshot of that node's
// own metadata document.
type ConsolidatedMetadata struct {
	Metadata map[string]ConsolidatedMetadataEntry `json:"metadata"`
	Kind     string                               `json:"kind"`
}

var knownGroupFields = map[string]bool{
	"zarr_format": true, "node_type": true, "attributes": true,
	"consolidated_metadata": true,
}

// GroupMetadata is the "zarr.json" document for a group node (spec.md §6).
type GroupMetadata struct {
	ZarrFormat           int                        `json:"zarr_format"`
	NodeType             string                     `json:"node_type"`
	Attributes           map[string]json.RawMessage `json:"attributes,omitempty"`
	ConsolidatedMetadata *ConsolidatedMetadata      `json:"consolidated_metadata,omitempty"`
	Additional           map[string]json.RawMessage `json:"-"`
}

func (m GroupMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Additional)+4)
	for k, v := range m.Additional {
		out[k] = v
	}
	set := func(k string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		out[k] = b
		return nil
	}
	if err := set("zarr_format", m.ZarrFormat); err != nil {
		return nil, err
	}
	if err := set("node_type", m.NodeType); err != nil {
		return nil, err
	}
	if m.Attributes != nil {
		if err := set("attributes", m.Attributes); err != nil {
			return nil, err
		}
	}
	if m.ConsolidatedMetadata != nil {
		if err := set("consolidated_metadata", m.ConsolidatedMetadata); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

func (m *GroupMetadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	type alias GroupMetadata
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = GroupMetadata(a)
	m.Additional = make(map[string]json.RawMessage)
	for k, v := range raw {
		if !knownGroupFields[k] {
			m.Additional[k] = v
		}
	}
	if m.ZarrFormat != 3 {
		return &types.InvalidMetadataError{Reason: fmt.Sprintf("unsupported zarr_format %d, expected 3", m.ZarrFormat)}
	}
	if m.NodeType != "group" {
		return &types.InvalidMetadataError{Reason: fmt.Sprintf(`node_type must be "group", got %q`, m.NodeType)}
	}
	return nil
}

// EncodeFillValue renders a raw fill value (types.FillValue, exactly
// dt.Size bytes for a fixed-width type) into the JSON form spec.md §6
// prescribes: a plain number for integers, a number or a "NaN"/"Infinity"/
// "-Infinity" string for floats, a two-element array for complex types, and
// a byte-array form for anything else (raw/variable-width types).
func EncodeFillValue(dt types.DataType, fv types.FillValue) (json.RawMessage, error) {
	switch {
	case strings.HasPrefix(dt.Name, "int"), strings.HasPrefix(dt.Name, "uint"):
		n, err := decodeIntFillValue(dt, fv)
		if err != nil {
			return nil, err
		}
		return json.Marshal(n)
	case strings.HasPrefix(dt.Name, "float"):
		f, err := decodeFloatFillValue(dt, fv)
		if err != nil {
			return nil, err
		}
		return marshalFloat(f)
	case strings.HasPrefix(dt.Name, "complex"):
		half := dt.Size / 2
		re, err := decodeFloatFillValue(types.DataType{Name: fmt.Sprintf("float%d", half*8), Size: half}, fv[:half])
		if err != nil {
			return nil, err
		}
		im, err := decodeFloatFillValue(types.DataType{Name: fmt.Sprintf("float%d", half*8), Size: half}, fv[half:])
		if err != nil {
			return nil, err
		}
		reRaw, err := marshalFloat(re)
		if err != nil {
			return nil, err
		}
		imRaw, err := marshalFloat(im)
		if err != nil {
			return nil, err
		}
		return json.Marshal([]json.RawMessage{reRaw, imRaw})
	case dt.Name == "bool":
		if len(fv) != 1 {
			return nil, &types.InvalidMetadataError{Reason: "bool fill_value must be 1 byte"}
		}
		return json.Marshal(fv[0] != 0)
	default:
		// Raw/variable-width: byte-array form, one JSON number per byte.
		nums := make([]int, len(fv))
		for i, b := range fv {
			nums[i] = int(b)
		}
		return json.Marshal(nums)
	}
}

func marshalFloat(f float64) (json.RawMessage, error) {
	switch {
	case math.IsNaN(f):
		return json.Marshal("NaN")
	case math.IsInf(f, 1):
		return json.Marshal("Infinity")
	case math.IsInf(f, -1):
		return json.Marshal("-Infinity")
	default:
		return json.Marshal(f)
	}
}

func decodeIntFillValue(dt types.DataType, fv types.FillValue) (int64, error) {
	if len(fv) != dt.Size {
		return 0, &types.InvalidMetadataError{Reason: "fill_value length does not match data type size"}
	}
	var n uint64
	for i := dt.Size - 1; i >= 0; i-- {
		n = n<<8 | uint64(fv[i])
	}
	if strings.HasPrefix(dt.Name, "int") {
		// sign-extend
		shift := uint(64 - dt.Size*8)
		return int64(n<<shift) >> shift, nil
	}
	return int64(n), nil
}

func decodeFloatFillValue(dt types.DataType, fv types.FillValue) (float64, error) {
	if len(fv) != dt.Size {
		return 0, &types.InvalidMetadataError{Reason: "fill_value length does not match data type size"}
	}
	var bits uint64
	for i := dt.Size - 1; i >= 0; i-- {
		bits = bits<<8 | uint64(fv[i])
	}
	if dt.Size == 4 {
		return float64(math.Float32frombits(uint32(bits))), nil
	}
	return math.Float64frombits(bits), nil
}

// DecodeFillValue parses the JSON fill_value field of array metadata back
// into raw element bytes for dt, the inverse of EncodeFillValue.
func DecodeFillValue(dt types.DataType, raw json.RawMessage) (types.FillValue, error) {
	switch {
	case strings.HasPrefix(dt.Name, "int"), strings.HasPrefix(dt.Name, "uint"):
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, &types.InvalidMetadataError{Reason: "fill_value must be an integer", Err: err}
		}
		return encodeIntFillValue(dt, n), nil
	case strings.HasPrefix(dt.Name, "float"):
		f, err := unmarshalFloat(raw)
		if err != nil {
			return nil, err
		}
		return encodeFloatFillValue(dt, f), nil
	case strings.HasPrefix(dt.Name, "complex"):
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil || len(parts) != 2 {
			return nil, &types.InvalidMetadataError{Reason: "complex fill_value must be a 2-element array"}
		}
		half := dt.Size / 2
		floatDT := types.DataType{Name: fmt.Sprintf("float%d", half*8), Size: half}
		re, err := unmarshalFloat(parts[0])
		if err != nil {
			return nil, err
		}
		im, err := unmarshalFloat(parts[1])
		if err != nil {
			return nil, err
		}
		out := make(types.FillValue, 0, dt.Size)
		out = append(out, encodeFloatFillValue(floatDT, re)...)
		out = append(out, encodeFloatFillValue(floatDT, im)...)
		return out, nil
	case dt.Name == "bool":
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, &types.InvalidMetadataError{Reason: "fill_value must be a boolean", Err: err}
		}
		if b {
			return types.FillValue{1}, nil
		}
		return types.FillValue{0}, nil
	default:
		var nums []int
		if err := json.Unmarshal(raw, &nums); err != nil {
			return nil, &types.InvalidMetadataError{Reason: "fill_value must be a byte array", Err: err}
		}
		out := make(types.FillValue, len(nums))
		for i, n := range nums {
			out[i] = byte(n)
		}
		return out, nil
	}
}

func unmarshalFloat(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch s {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		default:
			return 0, &types.InvalidMetadataError{Reason: fmt.Sprintf("unrecognised float fill_value string %q", s)}
		}
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, &types.InvalidMetadataError{Reason: "fill_value must be a number or NaN/Infinity string", Err: err}
	}
	return f, nil
}

func encodeIntFillValue(dt types.DataType, n int64) types.FillValue {
	out := make(types.FillValue, dt.Size)
	u := uint64(n)
	for i := 0; i < dt.Size; i++ {
		out[i] = byte(u)
		u >>= 8
	}
	return out
}

func encodeFloatFillValue(dt types.DataType, f float64) types.FillValue {
	out := make(types.FillValue, dt.Size)
	var bits uint64
	if dt.Size == 4 {
		bits = uint64(math.Float32bits(float32(f)))
	} else {
		bits = math.Float64bits(f)
	}
	for i := 0; i < dt.Size; i++ {
		out[i] = byte(bits)
		bits >>= 8
	}
	return out
}
