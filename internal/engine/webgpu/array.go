//go:build webgpu

package webgpu

import (
	"fmt"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/zachgk/djl/internal/ndarray"
)

// Array is backed by a GPU storage buffer released on Close.
type Array struct {
	*ndarray.ArrayBase

	engine *Engine

	mu     sync.Mutex
	buffer *wgpu.Buffer
}

func (a *Array) free() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.buffer != nil {
		a.buffer.Release()
		a.buffer = nil
	}
	return nil
}

// ToBytes reads the buffer back through a staging copy.
func (a *Array) ToBytes() ([]byte, error) {
	if err := a.CheckOpen(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.buffer == nil {
		return nil, fmt.Errorf("array %s: %w", a.UID(), ndarray.ErrClosed)
	}
	return a.engine.download(a.buffer, a.ByteSize())
}

// Set overwrites the buffer.
func (a *Array) Set(data []byte) error {
	if err := a.CheckOpen(); err != nil {
		return err
	}
	if len(data) != a.ByteSize() {
		return fmt.Errorf("%w: %d bytes for a %d byte array", ndarray.ErrUnsupportedLayout, len(data), a.ByteSize())
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.buffer == nil {
		return fmt.Errorf("array %s: %w", a.UID(), ndarray.ErrClosed)
	}
	a.engine.overwrite(a.buffer, data)
	return nil
}
