//go:build llama

package llama

import (
	"fmt"
	"sync"

	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/tensor"
)

// Manager holds Go-memory arrays next to native model handles.
type Manager struct {
	*ndarray.Scope
	engine *Engine
}

// NewSubManager creates a child manager on device.
func (m *Manager) NewSubManager(device tensor.Device) (ndarray.Manager, error) {
	if !m.engine.SupportsDevice(device) {
		return nil, fmt.Errorf("%s engine cannot place a manager on %s", EngineName, device)
	}
	child := &Manager{engine: m.engine}
	child.Scope = ndarray.NewScope(child, EngineName, m.Scope, device)
	if err := m.Attach(child.UID(), child); err != nil {
		_ = child.Close()
		return nil, err
	}
	return child, nil
}

// AllocateDirect returns a zeroed buffer.
func (m *Manager) AllocateDirect(capacity int) []byte {
	return make([]byte, capacity)
}

// Create wraps data in an array.
func (m *Manager) Create(data any, shape tensor.Shape, dtype tensor.DataType) (ndarray.NDArray, error) {
	buf, err := ndarray.Bytes(data, shape, dtype)
	if err != nil {
		return nil, err
	}
	a := &Array{data: append([]byte(nil), buf...)}
	a.ArrayBase = ndarray.NewArrayBase(m, shape, dtype, a.free)
	if err := a.Register(a); err != nil {
		return nil, err
	}
	return a, nil
}

// From returns a unchanged when it is already a Llama array.
func (m *Manager) From(a ndarray.NDArray) (ndarray.NDArray, error) {
	if own, ok := a.(*Array); ok {
		return own, nil
	}
	return ndarray.Convert(m, a)
}

// Load is not supported.
func (m *Manager) Load(path string) (ndarray.NDList, error) {
	return nil, fmt.Errorf("%w: %s engine has no dataset format (%s)", ndarray.ErrUnsupportedLayout, EngineName, path)
}

// Array is a Go-memory array.
type Array struct {
	*ndarray.ArrayBase

	mu   sync.RWMutex
	data []byte
}

func (a *Array) free() error {
	a.mu.Lock()
	a.data = nil
	a.mu.Unlock()
	return nil
}

// ToBytes copies the contents out.
func (a *Array) ToBytes() ([]byte, error) {
	if err := a.CheckOpen(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]byte(nil), a.data...), nil
}

// Set overwrites the contents.
func (a *Array) Set(data []byte) error {
	if err := a.CheckOpen(); err != nil {
		return err
	}
	if len(data) != a.ByteSize() {
		return fmt.Errorf("%w: %d bytes for a %d byte array", ndarray.ErrUnsupportedLayout, len(data), a.ByteSize())
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	copy(a.data, data)
	return nil
}
