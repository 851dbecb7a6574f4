// Copyright 2025 The DJL Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package engine exposes the engine registry and the contract engines
// implement.
//
// Importing this package registers the pure-Go engines: "CPU" (dense
// float32 models stored as SafeTensors) and "Linear" (TOML linear scorers
// and CSV datasets). Builds with the webgpu or llama tags add "WebGPU" and
// "Llama".
//
//	for _, name := range engine.Names() {
//	    e, _ := engine.Get(name)
//	    fmt.Println(name, e.Version(), e.Devices())
//	}
package engine

import (
	"github.com/zachgk/djl/internal/engine"

	// Default engines.
	_ "github.com/zachgk/djl/internal/engine/cpu"
	_ "github.com/zachgk/djl/internal/engine/linear"
	_ "github.com/zachgk/djl/internal/engine/llama"
	_ "github.com/zachgk/djl/internal/engine/webgpu"
)

// Engine is a named compute backend.
type Engine = engine.Engine

// Block runs a loaded model.
type Block = engine.Block

// Registry maps names to engines.
type Registry = engine.Registry

// Errors returned by engines and the registry.
var (
	ErrEngineNotFound     = engine.ErrEngineNotFound
	ErrDuplicateEngine    = engine.ErrDuplicateEngine
	ErrMalformedModel     = engine.ErrMalformedModel
	ErrNativeExecution    = engine.ErrNativeExecution
	ErrDeviceNotSupported = engine.ErrDeviceNotSupported
)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return engine.NewRegistry()
}

// Default returns the process-wide registry.
func Default() *Registry {
	return engine.Default
}

// Register adds e to the default registry.
func Register(e Engine) error {
	return engine.Register(e)
}

// Get returns the engine called name from the default registry.
func Get(name string) (Engine, error) {
	return engine.Get(name)
}

// Names lists the default registry, sorted.
func Names() []string {
	return engine.Names()
}
