package cpu

import (
	"fmt"

	"github.com/zachgk/djl/internal/loader"
	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/tensor"
)

// Manager allocates Go-memory arrays.
type Manager struct {
	*ndarray.Scope
	engine *Engine
}

// Engine returns the owning engine.
func (m *Manager) Engine() *Engine {
	return m.engine
}

// NewSubManager creates a child manager on device.
func (m *Manager) NewSubManager(device tensor.Device) (ndarray.Manager, error) {
	if !m.engine.SupportsDevice(device) {
		return nil, fmt.Errorf("%s engine cannot place a manager on %s", m.engine.name, device)
	}
	child := &Manager{engine: m.engine}
	child.Scope = ndarray.NewScope(child, m.engine.name, m.Scope, device)
	if err := m.Attach(child.UID(), child); err != nil {
		_ = child.Close()
		return nil, err
	}
	return child, nil
}

// AllocateDirect returns a zeroed Go buffer.
func (m *Manager) AllocateDirect(capacity int) []byte {
	return make([]byte, capacity)
}

// Create wraps data in an array. A []byte is adopted without copying.
func (m *Manager) Create(data any, shape tensor.Shape, dtype tensor.DataType) (ndarray.NDArray, error) {
	buf, err := ndarray.Bytes(data, shape, dtype)
	if err != nil {
		return nil, err
	}
	return m.newArray(buf, shape, dtype)
}

func (m *Manager) newArray(buf []byte, shape tensor.Shape, dtype tensor.DataType) (*Array, error) {
	a := &Array{data: buf}
	a.ArrayBase = ndarray.NewArrayBase(m, shape, dtype, a.free)
	if err := a.Register(a); err != nil {
		return nil, err
	}
	return a, nil
}

// From returns a unchanged when it already belongs to this engine and
// copies it in otherwise.
func (m *Manager) From(a ndarray.NDArray) (ndarray.NDArray, error) {
	if own, ok := a.(*Array); ok && own.Manager().EngineName() == m.engine.name {
		return own, nil
	}
	return ndarray.Convert(m, a)
}

// Load reads every tensor of a SafeTensors file, keeping the names.
func (m *Manager) Load(path string) (ndarray.NDList, error) {
	r, err := loader.OpenSafeTensors(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var list ndarray.NDList
	for _, name := range r.Names() {
		raw, err := r.Tensor(name)
		if err != nil {
			_ = list.Close()
			return nil, err
		}
		a, err := m.newArray(raw.Data(), raw.Shape(), raw.DType())
		if err != nil {
			_ = list.Close()
			return nil, err
		}
		a.SetName(name)
		list = append(list, a)
	}
	return list, nil
}

// RandomUniform draws a float32 array from [low, high) using the engine
// seed.
func (m *Manager) RandomUniform(low, high float32, shape tensor.Shape) (ndarray.NDArray, error) {
	size, err := shape.ByteSize(tensor.Float32)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ndarray.ErrUnsupportedLayout, err)
	}
	return m.newArray(tensor.Encode(m.engine.uniform(size/tensor.Float32.Size(), low, high)), shape, tensor.Float32)
}
