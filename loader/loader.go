// Copyright 2025 The DJL Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package loader reads model weight files.
//
// SafeTensors files are read tensor by tensor into RawTensors; GGUF files
// expose their header metadata (architecture, context length) without
// reading tensor data.
//
//	r, err := loader.OpenSafeTensors("model.safetensors")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	for _, name := range r.Names() {
//	    raw, err := r.Tensor(name)
//	    ...
//	}
package loader

import (
	"github.com/zachgk/djl/internal/loader"
	"github.com/zachgk/djl/tensor"
)

// SafeTensorsReader reads tensors from an open SafeTensors file.
type SafeTensorsReader = loader.SafeTensorsReader

// TensorInfo describes one tensor of a SafeTensors header.
type TensorInfo = loader.TensorInfo

// GGUFInfo is the header of a GGUF file.
type GGUFInfo = loader.GGUFInfo

// Errors returned while reading weight files.
var (
	ErrHeaderTooLarge   = loader.ErrHeaderTooLarge
	ErrTensorNotFound   = loader.ErrTensorNotFound
	ErrUnsupportedDType = loader.ErrUnsupportedDType
	ErrOutOfBounds      = loader.ErrOutOfBounds
	ErrSizeMismatch     = loader.ErrSizeMismatch
	ErrNotGGUF          = loader.ErrNotGGUF
)

// OpenSafeTensors opens path and parses its header.
func OpenSafeTensors(path string) (*SafeTensorsReader, error) {
	return loader.OpenSafeTensors(path)
}

// WriteSafeTensors writes tensors and metadata to path.
func WriteSafeTensors(path string, tensors map[string]*tensor.RawTensor, metadata map[string]string) error {
	return loader.WriteSafeTensors(path, tensors, metadata)
}

// ReadGGUFInfo reads the header of the GGUF file at path.
func ReadGGUFInfo(path string) (*GGUFInfo, error) {
	return loader.ReadGGUFInfo(path)
}
