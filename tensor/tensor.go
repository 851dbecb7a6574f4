// Copyright 2025 The DJL Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/tensor"
)

// Shape is a tensor's dimension list.
type Shape = tensor.Shape

// DataType is a runtime element type.
type DataType = tensor.DataType

// DType constrains the Go element types tensors can hold.
type DType = tensor.DType

// Element types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	Int32   = tensor.Int32
	Int64   = tensor.Int64
	Uint8   = tensor.Uint8
	Int8    = tensor.Int8
	Bool    = tensor.Bool
)

// Device is a compute target.
type Device = tensor.Device

// CPU returns the host device.
func CPU() Device { return tensor.CPU() }

// GPU returns the GPU with ordinal id.
func GPU(id int) Device { return tensor.GPU(id) }

// ParseDevice parses "cpu", "gpu" or "gpu(1)".
func ParseDevice(s string) (Device, error) { return tensor.ParseDevice(s) }

// ParseDataType parses names such as "float32" or "i64".
func ParseDataType(s string) (DataType, error) { return tensor.ParseDataType(s) }

// RawTensor is a contiguous host-order buffer with shape and type. It is
// how engines exchange data.
type RawTensor = tensor.RawTensor

// NewRaw allocates a zeroed RawTensor.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype)
}

// RawFromSlice copies values into a new RawTensor.
func RawFromSlice[T DType](values []T, shape Shape) (*RawTensor, error) {
	return tensor.FromSlice(values, shape)
}

// Values copies a RawTensor's contents out as []T.
func Values[T DType](r *RawTensor) ([]T, error) {
	return tensor.Values[T](r)
}

// Manager owns arrays and sub-managers of one engine.
type Manager = ndarray.Manager

// NDArray is an array owned by a Manager.
type NDArray = ndarray.NDArray

// NDList is an ordered list of arrays.
type NDList = ndarray.NDList

// Resource is anything a Manager can own.
type Resource = ndarray.Resource

// Errors returned by managers and arrays.
var (
	ErrClosed            = ndarray.ErrClosed
	ErrUnsupportedLayout = ndarray.ErrUnsupportedLayout
)

// Zeros allocates a zero-filled array in m.
func Zeros(m Manager, shape Shape, dtype DataType) (NDArray, error) {
	return ndarray.Zeros(m, shape, dtype)
}

// Ones allocates an array of ones in m.
func Ones(m Manager, shape Shape, dtype DataType) (NDArray, error) {
	return ndarray.Ones(m, shape, dtype)
}

// FromSlice allocates an array in m holding values.
func FromSlice[T DType](m Manager, values []T, shape Shape) (NDArray, error) {
	return ndarray.FromSlice(m, values, shape)
}

// ToSlice copies an array's contents out as []T.
func ToSlice[T DType](a NDArray) ([]T, error) {
	return ndarray.ToSlice[T](a)
}

// Convert copies src into a new array of dst.
func Convert(dst Manager, src NDArray) (NDArray, error) {
	return ndarray.Convert(dst, src)
}

// LiveManagers reports how many closable managers of engine are open.
func LiveManagers(engine string) int {
	return ndarray.LiveManagers(engine)
}
