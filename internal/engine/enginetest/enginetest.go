// Package enginetest provides engines and model files for tests of the
// packages that sit above the engine layer.
package enginetest

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zachgk/djl/internal/engine"
	"github.com/zachgk/djl/internal/engine/cpu"
	"github.com/zachgk/djl/internal/loader"
	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/tensor"
)

// Engine is a CPU engine under its own name whose model loading can be
// replaced and counted.
type Engine struct {
	*cpu.Engine

	// LoadFunc replaces LoadModel when set.
	LoadFunc func(ctx context.Context, m ndarray.Manager, path, name string, opts map[string]string) (engine.Block, error)

	loads atomic.Int32
}

// New creates an engine called name. It is not registered anywhere.
func New(name string) *Engine {
	return &Engine{Engine: cpu.New(cpu.WithName(name))}
}

// LoadModel counts the call and delegates.
func (e *Engine) LoadModel(ctx context.Context, m ndarray.Manager, path, name string, opts map[string]string) (engine.Block, error) {
	e.loads.Add(1)
	if e.LoadFunc != nil {
		return e.LoadFunc(ctx, m, path, name, opts)
	}
	return e.Engine.LoadModel(ctx, m, path, name, opts)
}

// Loads returns how many times LoadModel ran.
func (e *Engine) Loads() int {
	return int(e.loads.Load())
}

// Registry returns a fresh registry holding engines.
func Registry(t testing.TB, engines ...engine.Engine) *engine.Registry {
	t.Helper()
	r := engine.NewRegistry()
	for _, e := range engines {
		require.NoError(t, r.Register(e))
	}
	return r
}

// BlockFunc adapts a function to engine.Block.
type BlockFunc func(ctx context.Context, m ndarray.Manager, inputs ndarray.NDList) (ndarray.NDList, error)

// Forward calls f.
func (f BlockFunc) Forward(ctx context.Context, m ndarray.Manager, inputs ndarray.NDList) (ndarray.NDList, error) {
	return f(ctx, m, inputs)
}

// WriteScaleModel writes dir/name.safetensors: a single n x n layer that
// multiplies every feature by scale. It returns the file path.
func WriteScaleModel(t testing.TB, dir, name string, n int, scale float32) string {
	t.Helper()
	w := make([]float32, n*n)
	for i := range n {
		w[i*n+i] = scale
	}
	raw, err := tensor.FromSlice(w, tensor.Shape{n, n})
	require.NoError(t, err)

	path := filepath.Join(dir, name+".safetensors")
	require.NoError(t, loader.WriteSafeTensors(path, map[string]*tensor.RawTensor{"layers.0.weight": raw}, nil))
	return path
}
