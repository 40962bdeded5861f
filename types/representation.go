package types

// DataType describes an array's element type. Size is the per-element byte
// width for fixed-width types (Float32, Int64, ...); Size == 0 marks a
// variable-width type (e.g. utf-8 strings).
type DataType struct {
	Name string
	Size int
}

// IsVariableWidth reports whether elements of this type have no fixed byte
// width.
func (d DataType) IsVariableWidth() bool { return d.Size == 0 }

var (
	Bool       = DataType{Name: "bool", Size: 1}
	Int8       = DataType{Name: "int8", Size: 1}
	Int16      = DataType{Name: "int16", Size: 2}
	Int32      = DataType{Name: "int32", Size: 4}
	Int64      = DataType{Name: "int64", Size: 8}
	Uint8      = DataType{Name: "uint8", Size: 1}
	Uint16     = DataType{Name: "uint16", Size: 2}
	Uint32     = DataType{Name: "uint32", Size: 4}
	Uint64     = DataType{Name: "uint64", Size: 8}
	Float32    = DataType{Name: "float32", Size: 4}
	Float64    = DataType{Name: "float64", Size: 8}
	Complex64  = DataType{Name: "complex64", Size: 8}
	Complex128 = DataType{Name: "complex128", Size: 16}
	String     = DataType{Name: "string", Size: 0}
)

// FillValue is the raw encoded value of a single array element: exactly
// Size bytes for a fixed-width data type, or the designated "empty"
// representation (commonly a zero-length byte string) for a variable-width
// one.
type FillValue []byte

// ChunkRepresentation is the shape, data type and fill value a chunk is
// expected to decode to.
type ChunkRepresentation struct {
	Shape     []int
	DataType  DataType
	FillValue FillValue
}

// NumElements returns the product of Shape.
func (c ChunkRepresentation) NumElements() int {
	n := 1
	for _, d := range c.Shape {
		n *= d
	}
	return n
}
