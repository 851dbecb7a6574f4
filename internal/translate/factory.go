package translate

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/zachgk/djl/internal/ndarray"
)

type typePair struct {
	in, out reflect.Type
}

// Factory builds translators by input and output type. Engines publish one
// to declare which (I, O) pairs they serve.
type Factory struct {
	mu     sync.RWMutex
	makers map[typePair]func(args map[string]any) (any, error)
}

// NewFactory returns a factory that already serves NDList -> NDList.
func NewFactory() *Factory {
	f := &Factory{makers: make(map[typePair]func(args map[string]any) (any, error))}
	Register(f, func(map[string]any) (Translator[ndarray.NDList, ndarray.NDList], error) {
		return NoopTranslator{}, nil
	})
	return f
}

// Register adds a maker for the (I, O) pair, replacing any previous one.
func Register[I, O any](f *Factory, maker func(args map[string]any) (Translator[I, O], error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.makers[typePair{reflect.TypeFor[I](), reflect.TypeFor[O]()}] = func(args map[string]any) (any, error) {
		return maker(args)
	}
}

// Supports reports whether the factory can build a translator for the pair.
func (f *Factory) Supports(in, out reflect.Type) bool {
	if f == nil {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.makers[typePair{in, out}]
	return ok
}

// Pairs lists the supported pairs as "in -> out", sorted.
func (f *Factory) Pairs() []string {
	if f == nil {
		return nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	pairs := make([]string, 0, len(f.makers))
	for p := range f.makers {
		pairs = append(pairs, p.in.String()+" -> "+p.out.String())
	}
	sort.Strings(pairs)
	return pairs
}

// New builds a translator for (I, O).
func New[I, O any](f *Factory, args map[string]any) (Translator[I, O], error) {
	in, out := reflect.TypeFor[I](), reflect.TypeFor[O]()
	if f == nil {
		return nil, fmt.Errorf("no translator for %s -> %s", in, out)
	}
	f.mu.RLock()
	maker, ok := f.makers[typePair{in, out}]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no translator for %s -> %s", in, out)
	}

	t, err := maker(args)
	if err != nil {
		return nil, fmt.Errorf("build translator %s -> %s: %w", in, out, err)
	}
	return t.(Translator[I, O]), nil
}
