//go:build webgpu

package webgpu

import (
	"fmt"

	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/tensor"
)

// Manager places arrays in GPU storage buffers.
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

// AllocateDirect returns a host staging buffer.
func (m *Manager) AllocateDirect(capacity int) []byte {
	return make([]byte, capacity)
}

// Create uploads data to a new storage buffer.
func (m *Manager) Create(data any, shape tensor.Shape, dtype tensor.DataType) (ndarray.NDArray, error) {
	buf, err := ndarray.Bytes(data, shape, dtype)
	if err != nil {
		return nil, err
	}
	a := &Array{engine: m.engine, buffer: m.engine.upload(buf)}
	a.ArrayBase = ndarray.NewArrayBase(m, shape, dtype, a.free)
	if err := a.Register(a); err != nil {
		return nil, err
	}
	return a, nil
}

// From returns a unchanged when it already lives on this GPU.
func (m *Manager) From(a ndarray.NDArray) (ndarray.NDArray, error) {
	if own, ok := a.(*Array); ok && own.engine == m.engine {
		return own, nil
	}
	return ndarray.Convert(m, a)
}

// Load is not supported: the engine has no on-disk format.
func (m *Manager) Load(path string) (ndarray.NDList, error) {
	return nil, fmt.Errorf("%w: %s engine cannot load %s", ndarray.ErrUnsupportedLayout, EngineName, path)
}
