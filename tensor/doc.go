// Copyright 2025 The DJL Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor is the public face of the tensor memory layer: shapes,
// element types and devices, the engine-neutral RawTensor, and the
// Manager/NDArray ownership tree every engine allocates into.
//
// # Ownership
//
// Every NDArray belongs to exactly one Manager. Closing a manager closes
// every array and sub-manager under it, children first; closing twice is a
// no-op. Each engine has a system manager that is never closed; model and
// session managers hang below it.
//
//	m, err := cpuEngine.NewBaseManager(tensor.CPU())
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
//
//	x, err := tensor.FromSlice(m, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
//	if err != nil {
//	    return err
//	}
//	sub, _ := m.NewSubManager(tensor.CPU())
//	y, _ := tensor.Ones(sub, tensor.Shape{2, 2}, tensor.Float32)
//	_ = sub.Close() // y is released, x is not
//
// # Moving data between engines
//
// Manager.From returns the array unchanged when it already belongs to the
// manager's engine and copies it through a RawTensor otherwise.
package tensor
