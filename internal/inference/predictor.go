package inference

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zachgk/djl/internal/engine"
	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/translate"
)

// Predictor runs one model with one translator. It owns a child manager of
// the model root; every call allocates in its own sub-manager, released
// when the call returns. Calls on one Predictor run one at a time; use
// several Predictors for parallel work.
type Predictor[I, O any] struct {
	model      *Model
	manager    ndarray.Manager
	translator translate.Translator[I, O]

	mu sync.Mutex
}

// NewPredictor creates a session for m.
func NewPredictor[I, O any](m *Model, tr translate.Translator[I, O]) (*Predictor[I, O], error) {
	if tr == nil {
		return nil, fmt.Errorf("predictor for %s: nil translator", m.Name())
	}
	if m.Block() == nil {
		return nil, fmt.Errorf("predictor for %s: model is not loaded", m.Name())
	}
	sm, err := m.Manager().NewSubManager(m.Manager().Device())
	if err != nil {
		return nil, fmt.Errorf("predictor for %s: %w", m.Name(), err)
	}
	return &Predictor[I, O]{model: m, manager: sm, translator: tr}, nil
}

// Model returns the model the predictor runs.
func (p *Predictor[I, O]) Model() *Model {
	return p.model
}

// Manager returns the session manager.
func (p *Predictor[I, O]) Manager() ndarray.Manager {
	return p.manager
}

// Predict encodes in, runs the model and decodes the result. Translator
// failures come back as *translate.TranslateError, model failures wrap
// engine.ErrNativeExecution; the predictor stays usable after either.
func (p *Predictor[I, O]) Predict(ctx context.Context, in I) (O, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.predict(ctx, in)
}

// BatchPredict runs Predict for each input in order and stops at the first
// error.
func (p *Predictor[I, O]) BatchPredict(ctx context.Context, ins []I) ([]O, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	outs := make([]O, 0, len(ins))
	for i, in := range ins {
		out, err := p.predict(ctx, in)
		if err != nil {
			return outs, fmt.Errorf("batch item %d: %w", i, err)
		}
		outs = append(outs, out)
	}
	return outs, nil
}

func (p *Predictor[I, O]) predict(ctx context.Context, in I) (out O, err error) {
	ctx, span := tracer.Start(ctx, "predictor.predict")
	defer span.End()
	span.SetAttributes(
		attribute.String("model.name", p.model.Name()),
		attribute.String("engine.name", p.model.Engine().Name()),
	)

	start := time.Now()
	stage := "ok"
	defer func() {
		predictDuration.WithLabelValues(p.model.Engine().Name(), stage).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	call, err := p.manager.NewSubManager(p.manager.Device())
	if err != nil {
		stage = "setup"
		return out, fmt.Errorf("predict with %s: %w", p.model.Name(), err)
	}
	defer func() {
		if cerr := call.Close(); cerr != nil {
			log.Warn().Str("component", "inference").Err(cerr).Str("model", p.model.Name()).Msg("closing call manager")
		}
	}()

	tctx := translate.NewContext(ctx, call)
	inputs, err := p.translator.Encode(tctx, in)
	if err != nil {
		stage = "encode"
		return out, &translate.TranslateError{Op: "encode", Err: err}
	}

	outputs, err := p.model.Block().Forward(ctx, call, inputs)
	if err != nil {
		stage = "forward"
		if errors.Is(err, engine.ErrNativeExecution) || ctx.Err() != nil {
			return out, fmt.Errorf("forward %s: %w", p.model.Name(), err)
		}
		return out, fmt.Errorf("forward %s: %w: %w", p.model.Name(), engine.ErrNativeExecution, err)
	}

	out, err = p.translator.Decode(tctx, outputs)
	if err != nil {
		stage = "decode"
		return out, &translate.TranslateError{Op: "decode", Err: err}
	}
	return out, nil
}

// Close releases the session manager. The caller must not close a
// predictor while a Predict call on it is still running.
func (p *Predictor[I, O]) Close() error {
	return p.manager.Close()
}
