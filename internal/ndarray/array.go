package ndarray

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/zachgk/djl/internal/tensor"
)

// NDArray is a shaped, typed view over engine storage owned by one Manager.
// Shape and type never change; contents may.
type NDArray interface {
	Resource

	Name() string
	SetName(name string)
	Manager() Manager
	Shape() tensor.Shape
	DataType() tensor.DataType
	Device() tensor.Device
	IsOpen() bool

	// Attach moves the array to m, detaching it from its current manager.
	Attach(m Manager) error
	// ToBytes copies the contents out in host byte order. It fails with
	// ErrClosed once the array or any of its managers is closed.
	ToBytes() ([]byte, error)
	// Set overwrites the contents; data must have the array's byte size.
	Set(data []byte) error
}

// ArrayBase carries the bookkeeping shared by engine arrays. Engines embed
// *ArrayBase and implement ToBytes and Set on top of their own storage.
type ArrayBase struct {
	uid     string
	shape   tensor.Shape
	dtype   tensor.DataType
	release func() error

	mu      sync.Mutex
	name    string
	manager Manager
	owner   NDArray
	closed  bool
}

// NewArrayBase prepares bookkeeping for an array of m. release frees the
// engine storage and runs once on Close. Call Register once the owning
// array is fully built.
func NewArrayBase(m Manager, shape tensor.Shape, dtype tensor.DataType, release func() error) *ArrayBase {
	return &ArrayBase{
		uid:     uuid.NewString(),
		shape:   shape.Clone(),
		dtype:   dtype,
		release: release,
		manager: m,
	}
}

// Register attaches owner to the manager given to NewArrayBase. On failure
// the storage is released before the error is returned.
func (b *ArrayBase) Register(owner NDArray) error {
	b.mu.Lock()
	b.owner = owner
	m := b.manager
	b.mu.Unlock()

	if err := m.Attach(b.uid, owner); err != nil {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		if b.release != nil {
			_ = b.release()
		}
		return err
	}
	liveArrays.WithLabelValues(m.EngineName()).Inc()
	return nil
}

// UID returns the array id.
func (b *ArrayBase) UID() string {
	return b.uid
}

// Name returns the optional array name.
func (b *ArrayBase) Name() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.name
}

// SetName sets the array name.
func (b *ArrayBase) SetName(name string) {
	b.mu.Lock()
	b.name = name
	b.mu.Unlock()
}

// Manager returns the current owner.
func (b *ArrayBase) Manager() Manager {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.manager
}

// Shape returns a copy of the shape.
func (b *ArrayBase) Shape() tensor.Shape {
	return b.shape.Clone()
}

// DataType returns the element type.
func (b *ArrayBase) DataType() tensor.DataType {
	return b.dtype
}

// Device returns the owning manager's device.
func (b *ArrayBase) Device() tensor.Device {
	return b.Manager().Device()
}

// ByteSize returns the storage size in bytes.
func (b *ArrayBase) ByteSize() int {
	return b.shape.NumElements() * b.dtype.Size()
}

// IsOpen reports whether the storage may still be accessed.
func (b *ArrayBase) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed
}

// CheckOpen returns ErrClosed if the storage was released.
func (b *ArrayBase) CheckOpen() error {
	if !b.IsOpen() {
		return fmt.Errorf("array %s: %w", b.uid, ErrClosed)
	}
	return nil
}

// Attach re-parents the array under m.
func (b *ArrayBase) Attach(m Manager) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("array %s: %w", b.uid, ErrClosed)
	}
	old, owner := b.manager, b.owner
	b.mu.Unlock()

	if old == m {
		return nil
	}
	if old.EngineName() != m.EngineName() {
		return fmt.Errorf("attach %s array to %s manager: %w", old.EngineName(), m.EngineName(), ErrUnsupportedLayout)
	}

	old.Detach(b.uid)
	if err := m.Attach(b.uid, owner); err != nil {
		_ = old.Attach(b.uid, owner)
		return err
	}

	b.mu.Lock()
	b.manager = m
	b.mu.Unlock()
	return nil
}

// Close releases the storage and detaches from the manager. Closing twice
// is a no-op.
func (b *ArrayBase) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	m := b.manager
	b.mu.Unlock()

	m.Detach(b.uid)
	liveArrays.WithLabelValues(m.EngineName()).Dec()
	if b.release != nil {
		return b.release()
	}
	return nil
}
