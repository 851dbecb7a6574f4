package zoo

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/rs/zerolog/log"

	"github.com/zachgk/djl/internal/engine"
	"github.com/zachgk/djl/internal/inference"
	"github.com/zachgk/djl/internal/repository"
	"github.com/zachgk/djl/internal/translate"
)

// ZooModel is a loaded model together with the translator that serves
// (I, O).
type ZooModel[I, O any] struct {
	*inference.Model

	translator translate.Translator[I, O]
	artifact   *repository.Artifact
}

// Translator returns the translator predictors use.
func (z *ZooModel[I, O]) Translator() translate.Translator[I, O] {
	return z.translator
}

// Artifact returns where the model came from.
func (z *ZooModel[I, O]) Artifact() *repository.Artifact {
	return z.artifact
}

// NewPredictor opens a prediction session.
func (z *ZooModel[I, O]) NewPredictor() (*inference.Predictor[I, O], error) {
	return inference.NewPredictor(z.Model, z.translator)
}

// LoadModel resolves c into a ready model. The engine is selected before
// any manager is created, so a failure there allocates nothing; a failure
// after the model's root manager exists closes it again.
func LoadModel[I, O any](ctx context.Context, c *Criteria[I, O]) (*ZooModel[I, O], error) {
	return c.LoadModel(ctx)
}

// LoadModel resolves the criteria into a ready model.
func (c *Criteria[I, O]) LoadModel(ctx context.Context) (*ZooModel[I, O], error) {
	e, err := c.selectEngine()
	if err != nil {
		return nil, err
	}
	c.transition(EngineSelected, e.Name())

	resolver := c.resolver
	if resolver == nil {
		resolver = repository.New()
		defer resolver.Close()
	}
	artifact, err := resolver.Resolve(ctx, repository.Request{
		URLs:     c.urls,
		Name:     c.name,
		Version:  c.version,
		Progress: c.progress,
	})
	if err != nil {
		return nil, err
	}
	if artifact.Engine != "" && artifact.Engine != e.Name() {
		return nil, fmt.Errorf("%w: %s is published for engine %s, selected %s", engine.ErrEngineNotFound, artifact.Source, artifact.Engine, e.Name())
	}
	c.transition(ArtifactResolved, artifact.Path)

	device := e.Devices()[0]
	if c.device != nil {
		device = *c.device
	}
	model, err := inference.NewModel(e, artifact.Name, device)
	if err != nil {
		return nil, err
	}
	opts := c.Options()
	for k, v := range artifact.Properties {
		if _, set := opts[k]; !set {
			opts[k] = v
		}
	}
	if err := model.Load(ctx, artifact.Path, opts); err != nil {
		return nil, err
	}
	c.transition(Loaded, model.Name())

	tr := c.translator
	if tr == nil {
		tr, err = translate.New[I, O](e.Translators(), c.Arguments())
		if err != nil {
			return nil, errors.Join(err, model.Close())
		}
	}
	c.transition(Ready, model.Name())

	return &ZooModel[I, O]{Model: model, translator: tr, artifact: artifact}, nil
}

// selectEngine picks the named engine, or the single registered engine
// that can serve (I, O) on the requested device.
func (c *Criteria[I, O]) selectEngine() (engine.Engine, error) {
	if c.engine != "" {
		e, err := c.registry.Get(c.engine)
		if err != nil {
			return nil, err
		}
		if c.device != nil && !e.SupportsDevice(*c.device) {
			return nil, fmt.Errorf("%w: %s engine on %s", engine.ErrDeviceNotSupported, e.Name(), c.device)
		}
		return e, nil
	}

	in, out := reflect.TypeFor[I](), reflect.TypeFor[O]()
	var candidates []engine.Engine
	for _, e := range c.registry.Engines() {
		if c.translator == nil && !e.Translators().Supports(in, out) {
			continue
		}
		if c.device != nil && !e.SupportsDevice(*c.device) {
			continue
		}
		candidates = append(candidates, e)
	}

	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("%w: none serves %s -> %s", engine.ErrEngineNotFound, in, out)
	case 1:
		return candidates[0], nil
	default:
		names := make([]string, len(candidates))
		for i, e := range candidates {
			names[i] = e.Name()
		}
		return nil, fmt.Errorf("%w: %v serve %s -> %s, pick one with OptEngine", ErrAmbiguousEngine, names, in, out)
	}
}

func (c *Criteria[I, O]) transition(s State, detail string) {
	log.Debug().
		Str("component", "zoo").
		Str("state", s.String()).
		Str("detail", detail).
		Msg("model resolution")
	if c.listener != nil {
		c.listener(s)
	}
}
