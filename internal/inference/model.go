// Package inference holds loaded models and the prediction sessions that
// run them.
package inference

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zachgk/djl/internal/engine"
	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/tensor"
)

var tracer = otel.Tracer("github.com/zachgk/djl/internal/inference")

// Model is a loaded model: its engine, the root manager that owns every
// parameter, and the block that runs it.
type Model struct {
	name    string
	engine  engine.Engine
	manager ndarray.Manager

	mu         sync.RWMutex
	path       string
	block      engine.Block
	properties map[string]string
}

// NewModel creates an empty model with a fresh root manager on device.
func NewModel(e engine.Engine, name string, device tensor.Device) (*Model, error) {
	if !e.SupportsDevice(device) {
		return nil, fmt.Errorf("%w: %s engine on %s", engine.ErrDeviceNotSupported, e.Name(), device)
	}
	m, err := e.NewBaseManager(device)
	if err != nil {
		return nil, err
	}
	return &Model{
		name:       name,
		engine:     e,
		manager:    m,
		properties: map[string]string{},
	}, nil
}

// Load reads the model at path through the engine. On failure the root
// manager is closed and the model is unusable.
func (m *Model) Load(ctx context.Context, path string, opts map[string]string) error {
	ctx, span := tracer.Start(ctx, "model.load")
	defer span.End()
	span.SetAttributes(
		attribute.String("model.name", m.name),
		attribute.String("model.path", path),
		attribute.String("engine.name", m.engine.Name()),
	)

	start := time.Now()
	block, err := m.engine.LoadModel(ctx, m.manager, path, m.name, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if cerr := m.manager.Close(); cerr != nil {
			log.Warn().Str("component", "inference").Err(cerr).Str("model", m.name).Msg("closing manager of failed model")
		}
		return fmt.Errorf("load %s from %s: %w", m.name, path, err)
	}

	m.mu.Lock()
	m.path = path
	m.block = block
	maps.Copy(m.properties, opts)
	if d, ok := block.(engine.Describer); ok {
		maps.Copy(m.properties, d.Properties())
	}
	m.mu.Unlock()

	modelLoads.WithLabelValues(m.engine.Name()).Inc()
	log.Debug().
		Str("component", "inference").
		Str("model", m.name).
		Str("engine", m.engine.Name()).
		Str("path", path).
		Dur("duration", time.Since(start)).
		Msg("model loaded")
	return nil
}

// Name returns the model name.
func (m *Model) Name() string {
	return m.name
}

// Path returns where the model was loaded from.
func (m *Model) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

// Engine returns the engine that runs the model.
func (m *Model) Engine() engine.Engine {
	return m.engine
}

// Manager returns the root manager.
func (m *Model) Manager() ndarray.Manager {
	return m.manager
}

// Block returns the loaded block, or nil before Load.
func (m *Model) Block() engine.Block {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.block
}

// SetBlock installs a block built in code instead of loaded from a file.
func (m *Model) SetBlock(b engine.Block) {
	m.mu.Lock()
	m.block = b
	m.mu.Unlock()
}

// Property returns a model property.
func (m *Model) Property(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.properties[key]
}

// SetProperty sets a model property.
func (m *Model) SetProperty(key, value string) {
	m.mu.Lock()
	m.properties[key] = value
	m.mu.Unlock()
}

// Properties returns a copy of all properties.
func (m *Model) Properties() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.properties)
}

// IsOpen reports whether the root manager is open.
func (m *Model) IsOpen() bool {
	return m.manager.IsOpen()
}

// Close closes the root manager and with it every predictor of the model.
func (m *Model) Close() error {
	return m.manager.Close()
}
