package linear

import (
	"fmt"
	"sync"

	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/tensor"
)

// Array is a float32 Linear array.
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

func (a *Array) floats() ([]float32, error) {
	if err := a.CheckOpen(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return tensor.Decode[float32](a.data)
}
