// Package linear implements an output-only engine for linear scoring
// models. Its managers accept nothing but float32 byte buffers from
// outside: every other array has to arrive through Create with []byte,
// which is what conversion from another engine produces.
package linear

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/zachgk/djl/internal/engine"
	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/tensor"
	"github.com/zachgk/djl/internal/translate"
)

// EngineName is the name the engine registers under.
const EngineName = "Linear"

const version = "1.0.0"

func init() {
	engine.Default.MustRegister(New())
}

// Engine scores feature rows with TOML-described linear models.
type Engine struct {
	*engine.Runtime

	name        string
	system      *Manager
	translators *translate.Factory
	validate    *validator.Validate
}

// Option configures an Engine.
type Option func(*Engine)

// WithName registers the engine under another name.
func WithName(name string) Option {
	return func(e *Engine) {
		e.name = name
	}
}

// New creates a Linear engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		Runtime:     engine.NewRuntime(),
		name:        EngineName,
		translators: translate.NewFactory(),
		validate:    validator.New(),
	}
	for _, opt := range opts {
		opt(e)
	}

	translate.Register(e.translators, func(map[string]any) (translate.Translator[[]float32, float32], error) {
		return ScoreTranslator{}, nil
	})

	e.system = &Manager{engine: e}
	e.system.Scope = ndarray.NewSystemScope(e.system, e.name, tensor.CPU())
	return e
}

// Name returns the engine name.
func (e *Engine) Name() string {
	return e.name
}

// Version returns the model format version.
func (e *Engine) Version() string {
	return version
}

// SystemManager returns the engine's root manager.
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
	return []string{"toml", "csv-dataset", "quadratic"}
}

// Translators declares the served (input, output) types.
func (e *Engine) Translators() *translate.Factory {
	return e.translators
}

// LoadModel reads <name>.txt or <name>.toml from path.
func (e *Engine) LoadModel(_ context.Context, m ndarray.Manager, path, name string, _ map[string]string) (engine.Block, error) {
	file, err := engine.FindModelFile(path, name, ".txt", ".toml")
	if err != nil {
		return nil, err
	}
	return loadModel(e, m, file)
}
