package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRaw(t *testing.T) {
	raw, err := NewRaw(Shape{2, 3}, Float32)
	require.NoError(t, err)

	assert.Equal(t, 6, raw.NumElements())
	assert.Equal(t, 24, raw.ByteSize())
	assert.Equal(t, Float32, raw.DType())
	assert.Equal(t, []float32{0, 0, 0, 0, 0, 0}, raw.AsFloat32())

	_, err = NewRaw(Shape{2, -1}, Float32)
	assert.Error(t, err)
}

func TestNewRawEmptyDimension(t *testing.T) {
	raw, err := NewRaw(Shape{0, 4}, Int64)
	require.NoError(t, err)
	assert.Equal(t, 0, raw.ByteSize())
	assert.Empty(t, raw.Data())
}

func TestFromBytesLengthMismatch(t *testing.T) {
	_, err := FromBytes(make([]byte, 7), Shape{2}, Float32)
	assert.Error(t, err)

	raw, err := FromBytes(make([]byte, 8), Shape{2}, Float32)
	require.NoError(t, err)
	assert.Equal(t, Shape{2}, raw.Shape())
}

func TestFromSliceRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T)
	}{
		{"float32", func(t *testing.T) {
			raw, err := FromSlice([]float32{1.5, -2, 3}, Shape{3})
			require.NoError(t, err)
			got, err := Values[float32](raw)
			require.NoError(t, err)
			assert.Equal(t, []float32{1.5, -2, 3}, got)
		}},
		{"int64", func(t *testing.T) {
			raw, err := FromSlice([]int64{1 << 40, -7}, Shape{1, 2})
			require.NoError(t, err)
			got, err := Values[int64](raw)
			require.NoError(t, err)
			assert.Equal(t, []int64{1 << 40, -7}, got)
		}},
		{"bool", func(t *testing.T) {
			raw, err := FromSlice([]bool{true, false}, Shape{2})
			require.NoError(t, err)
			got, err := Values[bool](raw)
			require.NoError(t, err)
			assert.Equal(t, []bool{true, false}, got)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.run)
	}
}

func TestValuesWrongType(t *testing.T) {
	raw, err := NewRaw(Shape{2}, Int32)
	require.NoError(t, err)

	_, err = Values[float32](raw)
	assert.Error(t, err)
}

func TestFill(t *testing.T) {
	raw, err := NewRaw(Shape{2, 2}, Float64)
	require.NoError(t, err)
	raw.Fill(1)

	got, err := Values[float64](raw)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1}, got)

	u8, err := NewRaw(Shape{3}, Uint8)
	require.NoError(t, err)
	u8.Fill(7)
	assert.Equal(t, []byte{7, 7, 7}, u8.Data())
}

func TestCloneIsDeep(t *testing.T) {
	raw, err := FromSlice([]float32{1, 2}, Shape{2})
	require.NoError(t, err)

	clone := raw.Clone()
	clone.AsFloat32()[0] = 9

	assert.Equal(t, float32(1), raw.AsFloat32()[0])
	assert.True(t, clone.Shape().Equal(raw.Shape()))
}

func TestDecodeRejectsPartialElement(t *testing.T) {
	_, err := Decode[int32]([]byte{1, 2, 3})
	assert.Error(t, err)
}
