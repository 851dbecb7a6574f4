// Package cpu implements the pure Go engine. Arrays live in Go memory, so
// closing a manager only drops references; models are SafeTensors MLPs.
package cpu

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/zachgk/djl/internal/engine"
	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/tensor"
	"github.com/zachgk/djl/internal/translate"
)

// EngineName is the name the engine registers under.
const EngineName = "CPU"

const version = "0.1.0"

func init() {
	engine.Default.MustRegister(New())
}

// Engine is the pure Go CPU engine.
type Engine struct {
	*engine.Runtime

	name        string
	system      *Manager
	translators *translate.Factory

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures an Engine.
type Option func(*Engine)

// WithName registers the engine under another name. Tests use it to stand
// up several independent engines.
func WithName(name string) Option {
	return func(e *Engine) {
		e.name = name
	}
}

// New creates a CPU engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		Runtime:     engine.NewRuntime(),
		name:        EngineName,
		translators: translate.NewFactory(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.SetSeed(0)

	translate.Register(e.translators, func(map[string]any) (translate.Translator[[]float32, []float32], error) {
		return translate.VectorTranslator{}, nil
	})
	translate.Register(e.translators, func(args map[string]any) (translate.Translator[string, []float32], error) {
		return translate.NewTextTranslator(args)
	})

	e.system = &Manager{engine: e}
	e.system.Scope = ndarray.NewSystemScope(e.system, e.name, tensor.CPU())
	return e
}

// Name returns the engine name.
func (e *Engine) Name() string {
	return e.name
}

// Version returns the engine version.
func (e *Engine) Version() string {
	return version
}

// SystemManager returns the root of every manager of this engine.
func (e *Engine) SystemManager() ndarray.Manager {
	return e.system
}

// NewBaseManager creates a root manager under the system manager.
func (e *Engine) NewBaseManager(device tensor.Device) (ndarray.Manager, error) {
	return e.system.NewSubManager(device)
}

// SupportsDevice reports whether device is the host.
func (e *Engine) SupportsDevice(device tensor.Device) bool {
	return device.IsCPU()
}

// Devices lists the host device.
func (e *Engine) Devices() []tensor.Device {
	return []tensor.Device{tensor.CPU()}
}

// Features lists what this build supports.
func (e *Engine) Features() []string {
	return []string{"safetensors", "mlp", "threads"}
}

// SetSeed reseeds the generator behind RandomUniform.
func (e *Engine) SetSeed(seed int64) {
	e.Runtime.SetSeed(seed)
	e.rngMu.Lock()
	e.rng = rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)) //nolint:gosec // not for cryptography.
	e.rngMu.Unlock()
}

// Translators declares the served (input, output) types.
func (e *Engine) Translators() *translate.Factory {
	return e.translators
}

// LoadModel reads a SafeTensors MLP into m.
func (e *Engine) LoadModel(_ context.Context, m ndarray.Manager, path, name string, _ map[string]string) (engine.Block, error) {
	file, err := engine.FindModelFile(path, name, ".safetensors")
	if err != nil {
		return nil, err
	}
	return loadMLP(e, m, file)
}

func (e *Engine) uniform(n int, low, high float32) []float32 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	out := make([]float32, n)
	for i := range out {
		out[i] = low + (high-low)*e.rng.Float32()
	}
	return out
}
