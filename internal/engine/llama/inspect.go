package llama

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zachgk/djl/internal/engine"
	"github.com/zachgk/djl/internal/loader"
)

const defaultContext = 512

// loadPlan is what LoadModel learns about a model file before handing it
// to llama.cpp.
type loadPlan struct {
	file         string
	context      int
	architecture string
	embedding    int
}

// plan validates the GGUF header of file and picks the context size:
// opts["context"] when set, else the default, never above what the model
// was trained for.
func plan(file string, opts map[string]string) (*loadPlan, error) {
	p := &loadPlan{file: file, context: defaultContext}
	if v := opts["context"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: context option %q", engine.ErrMalformedModel, v)
		}
		p.context = n
	}

	// Legacy .bin files carry no GGUF header.
	if !strings.EqualFold(filepath.Ext(file), ".gguf") {
		return p, nil
	}
	info, err := loader.ReadGGUFInfo(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", engine.ErrMalformedModel, file, err)
	}
	p.architecture = info.Architecture()
	p.embedding = info.EmbeddingLength()
	if trained := info.ContextLength(); trained > 0 && p.context > trained {
		p.context = trained
	}
	return p, nil
}

// properties reports the plan as model properties.
func (p *loadPlan) properties() map[string]string {
	props := map[string]string{"context": strconv.Itoa(p.context)}
	if p.architecture != "" {
		props["architecture"] = p.architecture
	}
	if p.embedding > 0 {
		props["embedding_length"] = strconv.Itoa(p.embedding)
	}
	return props
}
