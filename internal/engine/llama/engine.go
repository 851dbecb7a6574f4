//go:build llama

package llama

import (
	"context"
	"fmt"

	llama "github.com/go-skynet/go-llama.cpp"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zachgk/djl/internal/engine"
	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/tensor"
	"github.com/zachgk/djl/internal/translate"
)

// Built reports whether this binary links llama.cpp.
const Built = true

func init() {
	engine.Default.MustRegister(New())
}

// Engine loads GGUF models and serves text embeddings.
type Engine struct {
	*engine.Runtime

	system      *Manager
	translators *translate.Factory
}

// New creates the engine.
func New() *Engine {
	e := &Engine{
		Runtime:     engine.NewRuntime(),
		translators: translate.NewFactory(),
	}
	translate.Register(e.translators, func(map[string]any) (translate.Translator[string, []float32], error) {
		return EmbeddingTranslator{}, nil
	})
	e.system = &Manager{engine: e}
	e.system.Scope = ndarray.NewSystemScope(e.system, EngineName, tensor.CPU())
	return e
}

// Name returns the engine name.
func (e *Engine) Name() string {
	return EngineName
}

// Version returns the binding version.
func (e *Engine) Version() string {
	return "go-llama.cpp"
}

// SystemManager returns the engine's root manager.
func (e *Engine) SystemManager() ndarray.Manager {
	return e.system
}

// NewBaseManager creates a root manager under the system manager.
func (e *Engine) NewBaseManager(device tensor.Device) (ndarray.Manager, error) {
	return e.system.NewSubManager(device)
}

// SupportsDevice reports whether device is the host. GPU offload is a
// property of the libllama build, not of the manager tree.
func (e *Engine) SupportsDevice(device tensor.Device) bool {
	return device.IsCPU()
}

// Devices lists the host device.
func (e *Engine) Devices() []tensor.Device {
	return []tensor.Device{tensor.CPU()}
}

// Features lists what this build supports.
func (e *Engine) Features() []string {
	return []string{"gguf", "embeddings"}
}

// Translators declares the served (input, output) types.
func (e *Engine) Translators() *translate.Factory {
	return e.translators
}

// LoadModel opens <name>.gguf under path. The native handle is attached to
// m and freed when m closes. opts["context"] sets the context size.
func (e *Engine) LoadModel(_ context.Context, m ndarray.Manager, path, name string, opts map[string]string) (engine.Block, error) {
	file, err := engine.FindModelFile(path, name, ".gguf", ".bin")
	if err != nil {
		return nil, err
	}
	p, err := plan(file, opts)
	if err != nil {
		return nil, err
	}

	native, err := llama.New(file, llama.EnableEmbeddings, llama.SetContext(p.context))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", engine.ErrMalformedModel, file, err)
	}
	log.Debug().
		Str("component", "llama").
		Str("file", file).
		Str("architecture", p.architecture).
		Int("context", p.context).
		Msg("model loaded")
	h := &handle{model: native}
	if err := m.Attach(uuid.NewString(), h); err != nil {
		_ = h.Close()
		return nil, err
	}
	return &block{engine: e, handle: h, plan: p}, nil
}
