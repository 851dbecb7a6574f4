package ndarray

import (
	"github.com/zachgk/djl/internal/tensor"
)

// Resource is anything a Manager can own.
type Resource interface {
	UID() string
	Close() error
}

// Manager is a node of the ownership tree. Each engine provides one
// implementation, usually a struct embedding *Scope.
type Manager interface {
	Resource

	// EngineName names the engine whose storage this manager allocates.
	EngineName() string
	// Device is the default target for arrays created here.
	Device() tensor.Device
	// Parent returns the parent manager, or nil for a system manager or a
	// parent that has already been collected.
	Parent() Manager
	// IsOpen reports whether Close has not yet run.
	IsOpen() bool

	// NewSubManager creates a child manager on device and attaches it.
	NewSubManager(device tensor.Device) (Manager, error)
	// Attach registers r as a child. It fails with ErrClosed once the
	// manager is closed.
	Attach(id string, r Resource) error
	// Detach forgets the child with the given id without closing it.
	Detach(id string)

	// AllocateDirect returns a zeroed buffer the engine can read without
	// copying.
	AllocateDirect(capacity int) []byte
	// Create builds an array owned by this manager. data is either a []byte
	// in host byte order or a typed slice matching dtype.
	Create(data any, shape tensor.Shape, dtype tensor.DataType) (NDArray, error)
	// From converts an array of any engine into this engine.
	From(a NDArray) (NDArray, error)
	// Load reads an engine-specific on-disk artifact into arrays owned by
	// this manager.
	Load(path string) (NDList, error)
}
