package engine

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Registry maps engine names to engines. Lookups read an immutable snapshot
// and take no lock; Register copies the snapshot under a mutex.
type Registry struct {
	mu       sync.Mutex
	engines  atomic.Pointer[map[string]Engine]
	fallback atomic.Pointer[string]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	empty := map[string]Engine{}
	r.engines.Store(&empty)
	return r
}

// Register adds e. A second engine with the same name is rejected with
// ErrDuplicateEngine and the first stays registered.
func (r *Registry) Register(e Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := *r.engines.Load()
	if _, exists := current[e.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEngine, e.Name())
	}

	next := maps.Clone(current)
	next[e.Name()] = e
	r.engines.Store(&next)

	log.Debug().Str("component", "engine").Str("engine", e.Name()).Msg("engine registered")
	return nil
}

// MustRegister is Register for package init functions.
func (r *Registry) MustRegister(e Engine) {
	if err := r.Register(e); err != nil {
		panic(err)
	}
}

// Get returns the engine called name.
func (r *Registry) Get(name string) (Engine, error) {
	e, ok := (*r.engines.Load())[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrEngineNotFound, name, r.Names())
	}
	return e, nil
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(*r.engines.Load()))
}

// Engines returns the registered engines ordered by name.
func (r *Registry) Engines() []Engine {
	current := *r.engines.Load()
	out := make([]Engine, 0, len(current))
	for _, name := range slices.Sorted(maps.Keys(current)) {
		out = append(out, current[name])
	}
	return out
}

// SetDefault chooses the engine DefaultEngine returns.
func (r *Registry) SetDefault(name string) error {
	if _, err := r.Get(name); err != nil {
		return err
	}
	r.fallback.Store(&name)
	return nil
}

// DefaultEngine returns the engine chosen with SetDefault, or the only
// registered engine.
func (r *Registry) DefaultEngine() (Engine, error) {
	if name := r.fallback.Load(); name != nil {
		return r.Get(*name)
	}
	names := r.Names()
	switch len(names) {
	case 0:
		return nil, fmt.Errorf("%w: no engines registered", ErrEngineNotFound)
	case 1:
		return r.Get(names[0])
	default:
		return nil, fmt.Errorf("%w: no default among %v", ErrEngineNotFound, names)
	}
}

// Default is the process-wide registry engine packages add themselves to.
var Default = NewRegistry()

// Register adds e to the Default registry.
func Register(e Engine) error {
	return Default.Register(e)
}

// Get looks up name in the Default registry.
func Get(name string) (Engine, error) {
	return Default.Get(name)
}

// Names lists the Default registry.
func Names() []string {
	return Default.Names()
}
