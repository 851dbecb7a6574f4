//go:build llama

package llama

import (
	"context"
	"fmt"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"

	"github.com/zachgk/djl/internal/engine"
	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/tensor"
	"github.com/zachgk/djl/internal/translate"
)

// handle owns a native model. It is a Resource of the model's root
// manager.
type handle struct {
	mu    sync.Mutex
	model *llama.LLama
}

// Close frees the native model once.
func (h *handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.model != nil {
		h.model.Free()
		h.model = nil
	}
	return nil
}

type block struct {
	engine *Engine
	handle *handle
	plan   *loadPlan
}

// Forward embeds a uint8 UTF-8 text array into a [1, dim] float32 array.
func (b *block) Forward(ctx context.Context, m ndarray.Manager, inputs ndarray.NDList) (ndarray.NDList, error) {
	in, err := inputs.Singleton()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrNativeExecution, err)
	}
	if in.DataType() != tensor.Uint8 {
		return nil, fmt.Errorf("%w: input is %s, want uint8 text", engine.ErrNativeExecution, in.DataType())
	}
	text, err := in.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrNativeExecution, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.handle.mu.Lock()
	defer b.handle.mu.Unlock()
	if b.handle.model == nil {
		return nil, fmt.Errorf("%w: model: %w", engine.ErrNativeExecution, ndarray.ErrClosed)
	}
	emb, err := b.handle.model.Embeddings(string(text), llama.SetThreads(b.engine.Threads()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrNativeExecution, err)
	}
	out, err := m.Create(tensor.Encode(emb), tensor.Shape{1, len(emb)}, tensor.Float32)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrNativeExecution, err)
	}
	return ndarray.NDList{out}, nil
}

// EmbeddingTranslator sends text as bytes and returns the embedding.
type EmbeddingTranslator struct{}

// Encode stores the UTF-8 bytes of input in a uint8 array.
func (EmbeddingTranslator) Encode(ctx *translate.Context, input string) (ndarray.NDList, error) {
	a, err := ctx.Manager().Create([]byte(input), tensor.Shape{len(input)}, tensor.Uint8)
	if err != nil {
		return nil, err
	}
	return ndarray.NDList{a}, nil
}

// Decode copies the embedding.
func (EmbeddingTranslator) Decode(ctx *translate.Context, list ndarray.NDList) ([]float32, error) {
	return translate.VectorTranslator{}.Decode(ctx, list)
}

// Properties reports what the GGUF header said about the model.
func (b *block) Properties() map[string]string {
	return b.plan.properties()
}
