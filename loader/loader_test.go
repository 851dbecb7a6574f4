// Copyright 2025 The DJL Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package loader_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zachgk/djl/loader"
	"github.com/zachgk/djl/tensor"
)

func TestSafeTensorsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.safetensors")
	raw, err := tensor.RawFromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	require.NoError(t, err)
	require.NoError(t, loader.WriteSafeTensors(path, map[string]*tensor.RawTensor{"w": raw}, map[string]string{"k": "v"}))

	r, err := loader.OpenSafeTensors(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"w"}, r.Names())
	assert.Equal(t, "v", r.Metadata()["k"])
	got, err := r.Tensor("w")
	require.NoError(t, err)
	assert.True(t, got.Shape().Equal(tensor.Shape{2, 3}))

	_, err = r.Tensor("missing")
	assert.ErrorIs(t, err, loader.ErrTensorNotFound)
}

func TestReadGGUFInfoRejectsSafeTensors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.safetensors")
	raw, err := tensor.RawFromSlice([]float32{1}, tensor.Shape{1})
	require.NoError(t, err)
	require.NoError(t, loader.WriteSafeTensors(path, map[string]*tensor.RawTensor{"w": raw}, nil))

	_, err = loader.ReadGGUFInfo(path)
	assert.ErrorIs(t, err, loader.ErrNotGGUF)
}
