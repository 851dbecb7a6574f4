package linear

import (
	"fmt"

	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/tensor"
	"github.com/zachgk/djl/internal/translate"
)

// ScoreTranslator scores one feature row.
type ScoreTranslator struct{}

// Encode builds a [1, len(features)] array.
func (ScoreTranslator) Encode(ctx *translate.Context, features []float32) (ndarray.NDList, error) {
	a, err := ctx.Manager().Create(tensor.Encode(features), tensor.Shape{1, len(features)}, tensor.Float32)
	if err != nil {
		return nil, err
	}
	return ndarray.NDList{a}, nil
}

// Decode returns the single score.
func (ScoreTranslator) Decode(_ *translate.Context, list ndarray.NDList) (float32, error) {
	if len(list) == 0 {
		return 0, fmt.Errorf("model returned no outputs")
	}
	scores, err := ndarray.ToSlice[float32](list[0])
	if err != nil {
		return 0, err
	}
	if len(scores) != 1 {
		return 0, fmt.Errorf("want one score, got %d", len(scores))
	}
	return scores[0], nil
}
