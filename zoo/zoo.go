// Copyright 2025 The DJL Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package zoo loads models by criteria: where the artifact lives, which
// engine should run it, and what Go types go in and come out.
//
// Resolution walks Unresolved, EngineSelected, ArtifactResolved, Loaded and
// Ready. An engine is picked by name, or else by which registered engine
// can translate (I, O); more than one candidate is an error rather than a
// guess.
//
//	c, err := zoo.NewCriteria[[]float32, float32]().
//	    OptModelURLs("zoo://churn", "./models/churn.toml").
//	    Build()
//	if err != nil {
//	    return err
//	}
//	model, err := c.LoadModel(ctx)
//	if err != nil {
//	    return err
//	}
//	defer model.Close()
//
//	p, err := model.NewPredictor()
//	if err != nil {
//	    return err
//	}
//	score, err := p.Predict(ctx, []float32{3, 1, 0})
package zoo

import (
	"context"

	"github.com/zachgk/djl/internal/inference"
	"github.com/zachgk/djl/internal/repository"
	"github.com/zachgk/djl/internal/translate"
	"github.com/zachgk/djl/internal/zoo"

	// Default engines.
	_ "github.com/zachgk/djl/internal/engine/cpu"
	_ "github.com/zachgk/djl/internal/engine/linear"
	_ "github.com/zachgk/djl/internal/engine/llama"
	_ "github.com/zachgk/djl/internal/engine/webgpu"
)

// Criteria describes the model to load.
type Criteria[I, O any] = zoo.Criteria[I, O]

// Builder assembles Criteria.
type Builder[I, O any] = zoo.Builder[I, O]

// ZooModel is a loaded model with its translator.
type ZooModel[I, O any] = zoo.ZooModel[I, O]

// Model is a loaded model and its root manager.
type Model = inference.Model

// Predictor runs predictions against one model. Calls are serialized.
type Predictor[I, O any] = inference.Predictor[I, O]

// State is a resolution step.
type State = zoo.State

// Resolution states, in order.
const (
	Unresolved       = zoo.Unresolved
	EngineSelected   = zoo.EngineSelected
	ArtifactResolved = zoo.ArtifactResolved
	Loaded           = zoo.Loaded
	Ready            = zoo.Ready
)

// Translator converts between Go values and arrays.
type Translator[I, O any] = translate.Translator[I, O]

// TranslatorFuncs adapts a pair of functions to Translator.
type TranslatorFuncs[I, O any] = translate.Funcs[I, O]

// TranslatorContext is the per-call state given to a Translator.
type TranslatorContext = translate.Context

// TranslateError reports a failing Encode or Decode.
type TranslateError = translate.TranslateError

// Artifact is a resolved model location.
type Artifact = repository.Artifact

// Progress receives download progress.
type Progress = repository.Progress

// Errors returned while resolving and running models.
var (
	ErrAmbiguousEngine = zoo.ErrAmbiguousEngine
	ErrModelNotFound   = repository.ErrModelNotFound
	ErrIOFailure       = repository.ErrIOFailure
	ErrTranslate       = translate.ErrTranslate
)

// NewCriteria starts a criteria builder for models taking I and returning O.
func NewCriteria[I, O any]() *Builder[I, O] {
	return zoo.NewCriteria[I, O]()
}

// LoadModel resolves, loads and prepares the model c describes.
func LoadModel[I, O any](ctx context.Context, c *Criteria[I, O]) (*ZooModel[I, O], error) {
	return zoo.LoadModel(ctx, c)
}
