package tensor

import (
	"fmt"
	"unsafe"
)

// RawTensor is the engine-neutral byte representation of a tensor: a
// contiguous row-major buffer in host byte order plus its shape and type.
// Engines exchange data through it; it owns no native resources.
type RawTensor struct {
	data  []byte
	shape Shape
	dtype DataType
}

// NewRaw allocates a zeroed RawTensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	if !dtype.Valid() {
		return nil, fmt.Errorf("invalid data type %d", dtype)
	}
	size, err := shape.ByteSize(dtype)
	if err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	return &RawTensor{
		data:  make([]byte, size),
		shape: shape.Clone(),
		dtype: dtype,
	}, nil
}

// FromBytes wraps data without copying. The buffer length must match
// shape and dtype exactly.
func FromBytes(data []byte, shape Shape, dtype DataType) (*RawTensor, error) {
	if !dtype.Valid() {
		return nil, fmt.Errorf("invalid data type %d", dtype)
	}
	want, err := shape.ByteSize(dtype)
	if err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if len(data) != want {
		return nil, fmt.Errorf("buffer holds %d bytes, shape %s of %s needs %d", len(data), shape, dtype, want)
	}

	return &RawTensor{data: data, shape: shape.Clone(), dtype: dtype}, nil
}

// FromSlice copies values into a new RawTensor.
func FromSlice[T DType](values []T, shape Shape) (*RawTensor, error) {
	return FromBytes(Encode(values), shape, DataTypeOf[T]())
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return len(r.data)
}

// Data returns the raw byte slice.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []byte {
	return r.data
}

// Clone returns a deep copy.
func (r *RawTensor) Clone() *RawTensor {
	data := make([]byte, len(r.data))
	copy(data, r.data)
	return &RawTensor{data: data, shape: r.shape.Clone(), dtype: r.dtype}
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	return view[float32](r.data)
}

// Fill sets every element to v converted to the tensor's type.
func (r *RawTensor) Fill(v float64) {
	switch r.dtype {
	case Float32:
		fill(view[float32](r.data), float32(v))
	case Float64:
		fill(view[float64](r.data), v)
	case Int32:
		fill(view[int32](r.data), int32(v))
	case Int64:
		fill(view[int64](r.data), int64(v))
	case Uint8:
		fill(r.data, uint8(v))
	case Int8:
		fill(view[int8](r.data), int8(v))
	case Bool:
		fill(view[bool](r.data), v != 0)
	}
}

// Values copies the contents out as []T. T must match the tensor's type.
func Values[T DType](r *RawTensor) ([]T, error) {
	if want := DataTypeOf[T](); r.dtype != want {
		return nil, fmt.Errorf("tensor dtype is %s, not %s", r.dtype, want)
	}
	return Decode[T](r.data)
}

// Encode copies values into a new byte slice in host byte order.
func Encode[T DType](values []T) []byte {
	out := make([]byte, len(values)*DataTypeOf[T]().Size())
	if len(values) == 0 {
		return out
	}
	//nolint:gosec // unsafe.Slice over a live Go slice of known byte length.
	src := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(values))), len(out))
	copy(out, src)
	return out
}

// Decode copies a host-order byte buffer into a new []T.
func Decode[T DType](data []byte) ([]T, error) {
	size := DataTypeOf[T]().Size()
	if len(data)%size != 0 {
		return nil, fmt.Errorf("buffer of %d bytes is not a multiple of element size %d", len(data), size)
	}
	out := make([]T, len(data)/size)
	if len(out) == 0 {
		return out, nil
	}
	//nolint:gosec // unsafe.Slice over a live Go slice of known byte length.
	dst := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(out))), len(data))
	copy(dst, data)
	return out, nil
}

func view[T DType](data []byte) []T {
	size := DataTypeOf[T]().Size()
	if len(data) < size {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by length.
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(data))), len(data)/size)
}

func fill[T DType](dst []T, v T) {
	for i := range dst {
		dst[i] = v
	}
}
