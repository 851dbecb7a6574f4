// Package engine defines the contract every compute engine implements and
// the registry that maps engine names to implementations.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/tensor"
	"github.com/zachgk/djl/internal/translate"
)

// Engine is a named compute backend. One instance exists per name.
type Engine interface {
	Name() string
	Version() string

	// SystemManager returns the engine's process-lifetime root manager.
	SystemManager() ndarray.Manager
	// NewBaseManager creates a root manager on device under the system
	// manager.
	NewBaseManager(device tensor.Device) (ndarray.Manager, error)
	SupportsDevice(device tensor.Device) bool
	Devices() []tensor.Device

	// Features lists optional capabilities of the native library.
	Features() []string
	Threads() int
	SetThreads(n int)
	SetSeed(seed int64)

	// Translators declares the (input, output) types the engine serves.
	Translators() *translate.Factory
	// LoadModel reads the model found at path (a file or a directory
	// holding a file called name) into m.
	LoadModel(ctx context.Context, m ndarray.Manager, path, name string, opts map[string]string) (Block, error)
}

// Block runs a loaded model. Forward allocates its outputs and any
// intermediates in m.
type Block interface {
	Forward(ctx context.Context, m ndarray.Manager, inputs ndarray.NDList) (ndarray.NDList, error)
}

// Describer is implemented by blocks that report facts about the loaded
// model, such as its input size. They become model properties.
type Describer interface {
	Properties() map[string]string
}

// Runtime holds the thread and seed settings engines share.
type Runtime struct {
	threads atomic.Int32
	seed    atomic.Int64
}

// NewRuntime starts with one thread per CPU.
func NewRuntime() *Runtime {
	r := &Runtime{}
	r.threads.Store(int32(runtime.NumCPU())) //nolint:gosec // CPU count fits in int32.
	return r
}

// Threads returns the worker count for native kernels.
func (r *Runtime) Threads() int {
	return int(r.threads.Load())
}

// SetThreads sets the worker count; values below one are clamped to one.
func (r *Runtime) SetThreads(n int) {
	if n < 1 {
		n = 1
	}
	r.threads.Store(int32(n)) //nolint:gosec // bounded by caller configuration.
}

// Seed returns the last seed set.
func (r *Runtime) Seed() int64 {
	return r.seed.Load()
}

// SetSeed sets the random seed.
func (r *Runtime) SetSeed(seed int64) {
	r.seed.Store(seed)
}

// FindModelFile returns path if it is a file, otherwise the first file in
// the directory path named name with one of exts.
func FindModelFile(path, name string, exts ...string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedModel, err)
	}
	if !info.IsDir() {
		return path, nil
	}

	for _, ext := range exts {
		candidate := filepath.Join(path, name+ext)
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no %s file named %q in %s", ErrMalformedModel, strings.Join(exts, "/"), name, path)
}
