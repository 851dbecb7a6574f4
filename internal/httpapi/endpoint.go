package httpapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zachgk/djl/internal/inference"
	"github.com/zachgk/djl/internal/zoo"
)

// Endpoint serves predictions for one model over JSON.
type Endpoint interface {
	Name() string
	Engine() string
	// Predict decodes input, runs the model and returns a JSON-encodable
	// result.
	Predict(ctx context.Context, input json.RawMessage) (any, error)
	Close() error
}

// errBadInput marks request bodies that do not decode into the model input.
type errBadInput struct {
	err error
}

func (e errBadInput) Error() string { return "bad input: " + e.err.Error() }
func (e errBadInput) Unwrap() error { return e.err }

type modelEndpoint[I, O any] struct {
	model     *zoo.ZooModel[I, O]
	predictor *inference.Predictor[I, O]
}

// NewEndpoint exposes model. The endpoint owns one predictor and closes the
// model with it.
func NewEndpoint[I, O any](model *zoo.ZooModel[I, O]) (Endpoint, error) {
	p, err := model.NewPredictor()
	if err != nil {
		return nil, err
	}
	return &modelEndpoint[I, O]{model: model, predictor: p}, nil
}

func (e *modelEndpoint[I, O]) Name() string {
	return e.model.Name()
}

func (e *modelEndpoint[I, O]) Engine() string {
	return e.model.Engine().Name()
}

func (e *modelEndpoint[I, O]) Predict(ctx context.Context, input json.RawMessage) (any, error) {
	var in I
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, errBadInput{err: fmt.Errorf("want %T: %w", in, err)}
	}
	return e.predictor.Predict(ctx, in)
}

func (e *modelEndpoint[I, O]) Close() error {
	return e.model.Close()
}
