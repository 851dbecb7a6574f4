//go:build webgpu

package webgpu

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/rs/zerolog/log"

	"github.com/zachgk/djl/internal/engine"
	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/tensor"
	"github.com/zachgk/djl/internal/translate"
)

// EngineName is the name the engine registers under.
const EngineName = "WebGPU"

func init() {
	e, err := New()
	if err != nil {
		log.Debug().Str("component", "engine").Err(err).Msg("webgpu engine unavailable")
		return
	}
	engine.Default.MustRegister(e)
}

// Engine owns one WebGPU device. The instance, adapter, device and queue
// live as long as the process.
type Engine struct {
	*engine.Runtime

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	info     wgpu.AdapterInfo

	// mu serializes command submission and buffer mapping.
	mu sync.Mutex

	system      *Manager
	translators *translate.Factory
}

// New opens the high-performance adapter. It fails when the native library
// or a GPU is missing.
func New() (e *Engine, err error) {
	defer func() {
		if r := recover(); r != nil {
			e = nil
			err = fmt.Errorf("%w: webgpu native library not available: %v", engine.ErrDeviceNotSupported, r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: request adapter: %w", engine.ErrDeviceNotSupported, err)
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: request device: %w", engine.ErrDeviceNotSupported, err)
	}
	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: device has no queue", engine.ErrDeviceNotSupported)
	}

	e = &Engine{
		Runtime:     engine.NewRuntime(),
		instance:    instance,
		adapter:     adapter,
		device:      device,
		queue:       queue,
		info:        adapter.GetInfo(),
		translators: translate.NewFactory(),
	}
	e.system = &Manager{engine: e}
	e.system.Scope = ndarray.NewSystemScope(e.system, EngineName, tensor.GPU(0))
	return e, nil
}

// Name returns the engine name.
func (e *Engine) Name() string {
	return EngineName
}

// Version returns the adapter driver description.
func (e *Engine) Version() string {
	if e.info.Description != "" {
		return e.info.Description
	}
	return "webgpu"
}

// SystemManager returns the engine's root manager.
func (e *Engine) SystemManager() ndarray.Manager {
	return e.system
}

// NewBaseManager creates a root manager under the system manager.
func (e *Engine) NewBaseManager(device tensor.Device) (ndarray.Manager, error) {
	return e.system.NewSubManager(device)
}

// SupportsDevice reports whether device is the single GPU this engine
// drives.
func (e *Engine) SupportsDevice(device tensor.Device) bool {
	return device == tensor.GPU(0)
}

// Devices lists gpu(0).
func (e *Engine) Devices() []tensor.Device {
	return []tensor.Device{tensor.GPU(0)}
}

// Features lists the adapter vendor and architecture.
func (e *Engine) Features() []string {
	return []string{"storage-buffers", e.info.Vendor, e.info.Architecture}
}

// SetSeed is accepted for interface parity; no kernel draws random numbers.
func (e *Engine) SetSeed(seed int64) {
	e.Runtime.SetSeed(seed)
}

// Translators returns a factory with only NDList -> NDList.
func (e *Engine) Translators() *translate.Factory {
	return e.translators
}

// LoadModel always fails: the engine has no model format.
func (e *Engine) LoadModel(context.Context, ndarray.Manager, string, string, map[string]string) (engine.Block, error) {
	return nil, fmt.Errorf("%w: %s engine loads no models", engine.ErrMalformedModel, EngineName)
}
