package ndarray

import (
	"errors"
	"sync"

	"github.com/zachgk/djl/internal/tensor"
)

// mockManager is a Go-memory manager used to exercise the tree.
type mockManager struct {
	*Scope
	engine string
	events *eventLog
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func newMockSystem(engine string) *mockManager {
	m := &mockManager{engine: engine, events: &eventLog{}}
	m.Scope = NewSystemScope(m, engine, tensor.CPU())
	return m
}

func (m *mockManager) newChild(label string, device tensor.Device) (*mockManager, error) {
	child := &mockManager{engine: m.engine, events: m.events}
	child.Scope = NewScope(child, m.engine, m.Scope, device, WithRelease(func() error {
		m.events.add("release " + label)
		return nil
	}))
	if err := m.Attach(child.UID(), child); err != nil {
		_ = child.Close()
		return nil, err
	}
	return child, nil
}

func (m *mockManager) NewSubManager(device tensor.Device) (Manager, error) {
	return m.newChild("sub", device)
}

func (m *mockManager) AllocateDirect(capacity int) []byte {
	return make([]byte, capacity)
}

func (m *mockManager) Create(data any, shape tensor.Shape, dtype tensor.DataType) (NDArray, error) {
	buf, err := Bytes(data, shape, dtype)
	if err != nil {
		return nil, err
	}
	a := &mockArray{data: buf, events: m.events}
	a.ArrayBase = NewArrayBase(m, shape, dtype, a.free)
	if err := a.Register(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (m *mockManager) From(a NDArray) (NDArray, error) {
	if own, ok := a.(*mockArray); ok && own.Manager().EngineName() == m.engine {
		return own, nil
	}
	return Convert(m, a)
}

func (m *mockManager) Load(string) (NDList, error) {
	return nil, errors.New("not supported")
}

type mockArray struct {
	*ArrayBase
	mu     sync.Mutex
	data   []byte
	events *eventLog
}

func (a *mockArray) free() error {
	a.mu.Lock()
	a.data = nil
	a.mu.Unlock()
	if a.Name() != "" {
		a.events.add("free " + a.Name())
	}
	return nil
}

func (a *mockArray) ToBytes() ([]byte, error) {
	if err := a.CheckOpen(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]byte(nil), a.data...), nil
}

func (a *mockArray) Set(data []byte) error {
	if err := a.CheckOpen(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	copy(a.data, data)
	return nil
}

// failingResource always fails to close.
type failingResource struct {
	id     string
	closed bool
}

func (f *failingResource) UID() string { return f.id }

func (f *failingResource) Close() error {
	f.closed = true
	return errors.New("native free failed")
}
