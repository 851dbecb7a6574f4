package cpu

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zachgk/djl/internal/engine"
	"github.com/zachgk/djl/internal/loader"
	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/tensor"
)

func newRoot(t *testing.T, e *Engine) ndarray.Manager {
	t.Helper()
	m, err := e.NewBaseManager(tensor.CPU())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// writeModel stores float32 tensors given as (values, shape) pairs.
func writeModel(t *testing.T, path string, meta map[string]string, tensors map[string]*tensor.RawTensor) {
	t.Helper()
	require.NoError(t, loader.WriteSafeTensors(path, tensors, meta))
}

func mustRaw(t *testing.T, values []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.FromSlice(values, shape)
	require.NoError(t, err)
	return raw
}

func TestEngineRegistered(t *testing.T) {
	e, err := engine.Get(EngineName)
	require.NoError(t, err)
	assert.Equal(t, EngineName, e.Name())
	assert.True(t, e.SupportsDevice(tensor.CPU()))
	assert.False(t, e.SupportsDevice(tensor.GPU(0)))
}

func TestSystemManagerParentsRoots(t *testing.T) {
	e := New(WithName("cpu-system"))
	root := newRoot(t, e)

	assert.Equal(t, e.SystemManager(), root.Parent())
	assert.NoError(t, e.SystemManager().Close())
	assert.True(t, e.SystemManager().IsOpen())

	_, err := root.NewSubManager(tensor.GPU(0))
	assert.Error(t, err)
}

func TestCreateAndRead(t *testing.T) {
	root := newRoot(t, New(WithName("cpu-create")))

	a, err := ndarray.FromSlice(root, []int32{1, 2, 3, 4}, tensor.Shape{2, 2})
	require.NoError(t, err)
	got, err := ndarray.ToSlice[int32](a)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3, 4}, got)

	require.NoError(t, a.Set(tensor.Encode([]int32{5, 6, 7, 8})))
	got, err = ndarray.ToSlice[int32](a)
	require.NoError(t, err)
	assert.Equal(t, []int32{5, 6, 7, 8}, got)

	assert.ErrorIs(t, a.Set([]byte{1}), ndarray.ErrUnsupportedLayout)

	_, err = root.Create([]float64{1}, tensor.Shape{1}, tensor.Float32)
	assert.ErrorIs(t, err, ndarray.ErrUnsupportedLayout)
}

func TestFromOtherCPUEngineCopies(t *testing.T) {
	left := newRoot(t, New(WithName("cpu-left")))
	right := newRoot(t, New(WithName("cpu-right")))

	a, err := ndarray.Ones(left, tensor.Shape{2, 3}, tensor.Float32)
	require.NoError(t, err)

	same, err := left.From(a)
	require.NoError(t, err)
	assert.Same(t, a, same)

	b, err := right.From(a)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, "cpu-right", b.Manager().EngineName())

	want, err := a.ToBytes()
	require.NoError(t, err)
	got, err := b.ToBytes()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestOverflowingShapesAreRejected(t *testing.T) {
	root := newRoot(t, New(WithName("cpu-overflow")))
	m := root.(*Manager)

	for _, shape := range []tensor.Shape{{1 << 32, 1 << 32}, {3, 1 << 61}} {
		t.Run(shape.String(), func(t *testing.T) {
			_, err := ndarray.Zeros(m, shape, tensor.Float32)
			assert.ErrorIs(t, err, ndarray.ErrUnsupportedLayout)
			_, err = ndarray.Ones(m, shape, tensor.Float32)
			assert.ErrorIs(t, err, ndarray.ErrUnsupportedLayout)
			_, err = m.RandomUniform(0, 1, shape)
			assert.ErrorIs(t, err, ndarray.ErrUnsupportedLayout)
			_, err = m.Create([]byte{}, shape, tensor.Float32)
			assert.ErrorIs(t, err, ndarray.ErrUnsupportedLayout)
		})
	}
	assert.Equal(t, 0, m.NumChildren())
}

func TestRandomUniformFollowsSeed(t *testing.T) {
	e := New(WithName("cpu-seed"))
	root := newRoot(t, e)
	m := root.(*Manager)

	e.SetSeed(7)
	first, err := m.RandomUniform(-1, 1, tensor.Shape{8})
	require.NoError(t, err)
	e.SetSeed(7)
	second, err := m.RandomUniform(-1, 1, tensor.Shape{8})
	require.NoError(t, err)

	a, err := ndarray.ToSlice[float32](first)
	require.NoError(t, err)
	b, err := ndarray.ToSlice[float32](second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	for _, v := range a {
		assert.GreaterOrEqual(t, v, float32(-1))
		assert.Less(t, v, float32(1))
	}
	assert.Equal(t, int64(7), e.Seed())
}

func TestLoadKeepsNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.safetensors")
	writeModel(t, path, nil, map[string]*tensor.RawTensor{
		"a": mustRaw(t, []float32{1}, tensor.Shape{1}),
		"b": mustRaw(t, []float32{2, 3}, tensor.Shape{2}),
	})

	root := newRoot(t, New(WithName("cpu-load")))
	list, err := root.Load(path)
	require.NoError(t, err)
	require.Len(t, list, 2)

	b, ok := list.Get("b")
	require.True(t, ok)
	got, err := ndarray.ToSlice[float32](b)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 3}, got)

	require.NoError(t, root.Close())
	assert.False(t, b.IsOpen())
}

func TestThreadsClamp(t *testing.T) {
	e := New(WithName("cpu-threads"))
	e.SetThreads(0)
	assert.Equal(t, 1, e.Threads())
	e.SetThreads(4)
	assert.Equal(t, 4, e.Threads())
}

func TestLoadModelOverflowingHeader(t *testing.T) {
	e := New(WithName("cpu-crafted"))
	root := newRoot(t, e)
	dir := t.TempDir()

	header := []byte(`{"w":{"dtype":"F32","shape":[4294967296,4294967296],"data_offsets":[0,0]}}`)
	var file []byte
	file = binary.LittleEndian.AppendUint64(file, uint64(len(header)))
	file = append(file, header...)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crafted.safetensors"), file, 0o600))

	_, err := e.LoadModel(context.Background(), root, dir, "crafted", nil)
	assert.ErrorIs(t, err, engine.ErrMalformedModel)
	assert.ErrorIs(t, err, loader.ErrSizeMismatch)
}

func TestLoadModelMissingFile(t *testing.T) {
	e := New(WithName("cpu-missing"))
	root := newRoot(t, e)
	_, err := e.LoadModel(context.Background(), root, t.TempDir(), "absent", nil)
	assert.ErrorIs(t, err, engine.ErrMalformedModel)
}
