package types_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TuSKan/zarrcore/types"
)

func TestFillValueArrayBytesFixed(t *testing.T) {
	fv := types.FillValue{0, 0, 0, 0}
	ab := types.NewFillValueArrayBytes(types.Float32, fv, 4)
	require.Equal(t, 16, len(ab.Fixed))
	require.True(t, ab.IsFillValue(types.Float32, fv))
	require.NoError(t, ab.Validate(4, 4))
}

func TestFillValueArrayBytesVariable(t *testing.T) {
	ab := types.NewFillValueArrayBytes(types.String, types.FillValue{}, 3)
	require.Equal(t, 3, ab.NumElements(0))
	require.True(t, ab.IsFillValue(types.String, types.FillValue{}))
	require.NoError(t, ab.Validate(3, 0))
}

func TestExtractAndUpdateArrayBytesFixed(t *testing.T) {
	// 4x4 uint8 array, values 0..15 row-major.
	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(i)
	}
	full := types.NewFixedArrayBytes(data, true)

	sub := types.NewArraySubset([]int{1, 0}, []int{2, 4})
	extracted, err := types.ExtractArraySubset(full, []int{4, 4}, sub, types.Uint8)
	require.NoError(t, err)
	require.Equal(t, []byte{4, 5, 6, 7, 8, 9, 10, 11}, extracted.Fixed)

	overwrite := types.NewFixedArrayBytes([]byte{100, 101, 102, 103}, true)
	overwriteSubset := types.NewArraySubset([]int{3, 0}, []int{1, 4})
	updated, err := types.UpdateArrayBytes(full, []int{4, 4}, overwrite, overwriteSubset, types.Uint8)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 100, 101, 102, 103}, updated.Fixed)
	// Original buffer is untouched.
	require.Equal(t, byte(12), data[12])
}

func TestExtractAndUpdateArrayBytesVariable(t *testing.T) {
	// 2x2 array of strings, row-major: "a","bb","ccc","dddd"
	data := []byte("abbcccdddd")
	offsets := []int{0, 1, 3, 6, 10}
	full := types.NewVariableArrayBytes(data, offsets, true)

	sub := types.NewArraySubset([]int{1, 0}, []int{1, 2})
	extracted, err := types.ExtractArraySubset(full, []int{2, 2}, sub, types.String)
	require.NoError(t, err)
	require.Equal(t, []byte("cccdddd"), extracted.Variable.Data)
	require.Equal(t, []int{0, 3, 7}, extracted.Variable.Offsets)

	overwrite := types.NewVariableArrayBytes([]byte("xy"), []int{0, 1, 2}, true)
	updated, err := types.UpdateArrayBytes(full, []int{2, 2}, overwrite, types.NewArraySubset([]int{0, 0}, []int{1, 2}), types.String)
	require.NoError(t, err)
	require.Equal(t, []byte("xyccc"+"dddd"), updated.Variable.Data)
	require.Equal(t, []int{0, 1, 2, 5, 9}, updated.Variable.Offsets)
}

func TestArrayBytesIntoOwnedClonesWhenBorrowed(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	borrowed := types.NewFixedArrayBytes(data, false)
	owned := borrowed.IntoOwned()
	require.True(t, owned.Owned)
	owned.Fixed[0] = 99
	require.Equal(t, byte(1), data[0]) // clone, not aliased
}
