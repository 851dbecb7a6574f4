package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShape(t *testing.T) {
	tests := []struct {
		name     string
		shape    Shape
		elements int
		strides  []int
		str      string
		valid    bool
	}{
		{"scalar", Shape{}, 1, []int{}, "()", true},
		{"image batch", Shape{1, 3, 224, 224}, 150528, []int{150528, 50176, 224, 1}, "(1, 3, 224, 224)", true},
		{"empty", Shape{0, 4}, 0, []int{4, 1}, "(0, 4)", true},
		{"negative", Shape{2, -1}, -2, []int{-1, 1}, "(2, -1)", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.elements, tt.shape.NumElements())
			assert.Equal(t, tt.strides, tt.shape.ComputeStrides())
			assert.Equal(t, tt.str, tt.shape.String())
			assert.Equal(t, tt.valid, tt.shape.Validate() == nil)
		})
	}
}

func TestShapeCloneAndEqual(t *testing.T) {
	s := Shape{1, 1000}
	c := s.Clone()
	assert.True(t, s.Equal(c))

	c[1] = 10
	assert.False(t, s.Equal(c))
	assert.False(t, s.Equal(Shape{1}))
}

func TestShapeByteSize(t *testing.T) {
	tests := []struct {
		name    string
		shape   Shape
		dtype   DataType
		want    int
		wantErr bool
	}{
		{"scalar", Shape{}, Float64, 8, false},
		{"matrix", Shape{2, 3}, Float32, 24, false},
		{"empty with huge dims", Shape{1 << 62, 0, 1 << 62}, Float32, 0, false},
		{"wraps to zero", Shape{1 << 32, 1 << 32}, Float32, 0, true},
		{"wraps negative", Shape{3, 1 << 61}, Float32, 0, true},
		{"bytes overflow", Shape{1 << 62}, Int64, 0, true},
		{"negative", Shape{2, -1}, Uint8, 0, true},
		{"unknown dtype", Shape{1}, DataType(99), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.shape.ByteSize(tt.dtype)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
