package ndarray

import (
	"errors"
	"fmt"
	"sync"
	"weak"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zachgk/djl/internal/tensor"
)

// Scope holds the tree bookkeeping of a Manager: identity, device, the
// weak parent link, and the child table. Engine managers embed *Scope and
// add allocation on top.
type Scope struct {
	uid     string
	engine  string
	device  tensor.Device
	owner   Manager
	parent  weak.Pointer[Scope]
	system  bool
	release func() error

	mu       sync.Mutex
	children map[string]Resource
	closed   bool
}

// ScopeOption configures a Scope.
type ScopeOption func(*Scope)

// WithRelease sets a hook that frees the manager's own native context. It
// runs once, after every child has been closed.
func WithRelease(fn func() error) ScopeOption {
	return func(s *Scope) {
		s.release = fn
	}
}

// NewScope creates the bookkeeping for owner, a manager of engine placed
// under parent. The caller attaches owner to its parent.
func NewScope(owner Manager, engine string, parent *Scope, device tensor.Device, opts ...ScopeOption) *Scope {
	s := &Scope{
		uid:      uuid.NewString(),
		engine:   engine,
		device:   device,
		owner:    owner,
		children: make(map[string]Resource),
	}
	if parent != nil {
		s.parent = weak.Make(parent)
	}
	for _, opt := range opts {
		opt(s)
	}

	liveManagers.WithLabelValues(engine).Inc()
	log.Debug().
		Str("component", "ndarray").
		Str("engine", engine).
		Str("uid", s.uid).
		Str("device", device.String()).
		Msg("manager created")
	return s
}

// NewSystemScope creates the non-closable root of an engine's tree.
func NewSystemScope(owner Manager, engine string, device tensor.Device) *Scope {
	return &Scope{
		uid:    "system-" + engine,
		engine: engine,
		device: device,
		owner:  owner,
		system: true,
	}
}

// UID returns the manager id.
func (s *Scope) UID() string {
	return s.uid
}

// EngineName returns the owning engine's name.
func (s *Scope) EngineName() string {
	return s.engine
}

// Device returns the manager's default device.
func (s *Scope) Device() tensor.Device {
	return s.device
}

// IsSystem reports whether this is an engine's system root.
func (s *Scope) IsSystem() bool {
	return s.system
}

// Parent returns the parent manager if it is still reachable.
func (s *Scope) Parent() Manager {
	if p := s.parent.Value(); p != nil {
		return p.owner
	}
	return nil
}

// IsOpen reports whether the manager still accepts children.
func (s *Scope) IsOpen() bool {
	if s.system {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Attach registers r under id.
func (s *Scope) Attach(id string, r Resource) error {
	if s.system {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("attach %s to manager %s: %w", id, s.uid, ErrClosed)
	}
	s.children[id] = r
	return nil
}

// Detach removes id from the child table.
func (s *Scope) Detach(id string) {
	if s.system {
		return
	}
	s.mu.Lock()
	delete(s.children, id)
	s.mu.Unlock()
}

// NumChildren returns the number of attached resources.
func (s *Scope) NumChildren() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.children)
}

// Close closes every child, then runs the release hook, then detaches from
// the parent. A failing child does not stop the others; all failures are
// returned joined. Closing twice is a no-op.
func (s *Scope) Close() error {
	if s.system {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	children := s.children
	s.children = nil
	s.mu.Unlock()

	var errs []error
	for id, child := range children {
		if err := child.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", id, err))
		}
	}
	if s.release != nil {
		if err := s.release(); err != nil {
			errs = append(errs, fmt.Errorf("release manager %s: %w", s.uid, err))
		}
	}
	if p := s.parent.Value(); p != nil {
		p.Detach(s.uid)
	}

	liveManagers.WithLabelValues(s.engine).Dec()
	if len(errs) > 0 {
		closeFailures.WithLabelValues(s.engine).Add(float64(len(errs)))
		log.Warn().
			Str("component", "ndarray").
			Str("engine", s.engine).
			Str("uid", s.uid).
			Int("failures", len(errs)).
			Msg("manager closed with errors")
		return errors.Join(errs...)
	}

	log.Debug().
		Str("component", "ndarray").
		Str("engine", s.engine).
		Str("uid", s.uid).
		Int("children", len(children)).
		Msg("manager closed")
	return nil
}

// Walk calls fn for every resource currently attached, without holding the
// lock while fn runs.
func (s *Scope) Walk(fn func(id string, r Resource)) {
	s.mu.Lock()
	snapshot := make(map[string]Resource, len(s.children))
	for id, r := range s.children {
		snapshot[id] = r
	}
	s.mu.Unlock()

	for id, r := range snapshot {
		fn(id, r)
	}
}
