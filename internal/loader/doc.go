// Package loader reads and writes SafeTensors files and reads the header
// of GGUF files.
//
// Format:
//
//	[8 bytes: header_size (uint64 LE)]
//	[header_size bytes: JSON header]
//	[tensor data: raw bytes]
//
// Tensor data is little-endian and is handed to engines as host-order
// RawTensors, so only little-endian hosts are supported.
//
// Example:
//
//	r, err := loader.OpenSafeTensors("model.safetensors")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	w, err := r.Tensor("layers.0.weight")
package loader
