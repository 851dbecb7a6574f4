package ndarray

import (
	"fmt"

	"github.com/zachgk/djl/internal/tensor"
)

// Convert rebuilds src inside dst through its byte representation. Engines
// call it from From after their identity check; it is the only conversion
// path between engines.
func Convert(dst Manager, src NDArray) (NDArray, error) {
	data, err := src.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("read %s array: %w", src.Manager().EngineName(), err)
	}
	out, err := dst.Create(data, src.Shape(), src.DataType())
	if err != nil {
		return nil, err
	}
	if name := src.Name(); name != "" {
		out.SetName(name)
	}
	return out, nil
}

// Bytes turns the data argument of Manager.Create into a host-order byte
// buffer checked against shape and dtype. A []byte is returned as is.
func Bytes(data any, shape tensor.Shape, dtype tensor.DataType) ([]byte, error) {
	want, err := shape.ByteSize(dtype)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedLayout, err)
	}

	var buf []byte
	var got tensor.DataType
	switch v := data.(type) {
	case []byte:
		buf, got = v, dtype
	case []float32:
		buf, got = tensor.Encode(v), tensor.Float32
	case []float64:
		buf, got = tensor.Encode(v), tensor.Float64
	case []int32:
		buf, got = tensor.Encode(v), tensor.Int32
	case []int64:
		buf, got = tensor.Encode(v), tensor.Int64
	case []int8:
		buf, got = tensor.Encode(v), tensor.Int8
	case []bool:
		buf, got = tensor.Encode(v), tensor.Bool
	default:
		return nil, fmt.Errorf("%w: buffer type %T", ErrUnsupportedLayout, data)
	}

	if got != dtype {
		return nil, fmt.Errorf("%w: %s buffer for %s array", ErrUnsupportedLayout, got, dtype)
	}
	if len(buf) != want {
		return nil, fmt.Errorf("%w: %d bytes for shape %s of %s, need %d", ErrUnsupportedLayout, len(buf), shape, dtype, want)
	}
	return buf, nil
}

// Zeros creates a zero-filled array.
func Zeros(m Manager, shape tensor.Shape, dtype tensor.DataType) (NDArray, error) {
	size, err := shape.ByteSize(dtype)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedLayout, err)
	}
	return m.Create(m.AllocateDirect(size), shape, dtype)
}

// Ones creates an array filled with ones.
func Ones(m Manager, shape tensor.Shape, dtype tensor.DataType) (NDArray, error) {
	size, err := shape.ByteSize(dtype)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedLayout, err)
	}
	raw, err := tensor.FromBytes(m.AllocateDirect(size), shape, dtype)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedLayout, err)
	}
	raw.Fill(1)
	return m.Create(raw.Data(), shape, dtype)
}

// FromSlice creates an array from a typed slice. Engines that only accept
// byte buffers reject it with ErrUnsupportedLayout.
func FromSlice[T tensor.DType](m Manager, values []T, shape tensor.Shape) (NDArray, error) {
	return m.Create(values, shape, tensor.DataTypeOf[T]())
}

// ToSlice copies the contents of a out as []T.
func ToSlice[T tensor.DType](a NDArray) ([]T, error) {
	if want := tensor.DataTypeOf[T](); a.DataType() != want {
		return nil, fmt.Errorf("array is %s, not %s", a.DataType(), want)
	}
	data, err := a.ToBytes()
	if err != nil {
		return nil, err
	}
	return tensor.Decode[T](data)
}

// ToRaw copies a into an engine-neutral RawTensor.
func ToRaw(a NDArray) (*tensor.RawTensor, error) {
	data, err := a.ToBytes()
	if err != nil {
		return nil, err
	}
	return tensor.FromBytes(data, a.Shape(), a.DataType())
}
