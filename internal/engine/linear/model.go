package linear

import (
	"context"
	"fmt"
	"os"
	"strconv"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/zachgk/djl/internal/engine"
	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/parallel"
	"github.com/zachgk/djl/internal/tensor"
)

// modelFile is the TOML layout of a model:
//
//	bias = 0.5
//	weights = [1.0, -2.0]
//	quadratic = [0.0, 0.1]
type modelFile struct {
	Bias      float32   `toml:"bias"`
	Weights   []float32 `toml:"weights" validate:"required,min=1"`
	Quadratic []float32 `toml:"quadratic"`
}

// model scores a [N, F] array into [N]:
// bias + sum(w*x) + sum(q*x*x).
type model struct {
	engine    *Engine
	bias      float32
	weights   *Array
	quadratic *Array
}

func loadModel(e *Engine, m ndarray.Manager, path string) (*model, error) {
	lm, ok := m.(*Manager)
	if !ok {
		return nil, fmt.Errorf("%w: %s manager given to %s engine", engine.ErrMalformedModel, m.EngineName(), e.name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrMalformedModel, err)
	}
	var mf modelFile
	if err := toml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", engine.ErrMalformedModel, path, err)
	}
	if err := e.validate.Struct(mf); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", engine.ErrMalformedModel, path, err)
	}
	if mf.Quadratic != nil && len(mf.Quadratic) != len(mf.Weights) {
		return nil, fmt.Errorf("%w: %s: %d quadratic terms for %d weights", engine.ErrMalformedModel, path, len(mf.Quadratic), len(mf.Weights))
	}

	md := &model{engine: e, bias: mf.Bias}
	if md.weights, err = lm.create(tensor.Encode(mf.Weights), tensor.Shape{len(mf.Weights)}); err != nil {
		return nil, err
	}
	md.weights.SetName("weights")
	if mf.Quadratic != nil {
		if md.quadratic, err = lm.create(tensor.Encode(mf.Quadratic), tensor.Shape{len(mf.Quadratic)}); err != nil {
			_ = md.weights.Close()
			return nil, err
		}
		md.quadratic.SetName("quadratic")
	}
	return md, nil
}

// Properties reports the feature count and whether quadratic terms apply.
func (md *model) Properties() map[string]string {
	return map[string]string{
		"features":  strconv.Itoa(md.weights.Shape()[0]),
		"quadratic": strconv.FormatBool(md.quadratic != nil),
	}
}

// Forward scores every row of the single input.
func (md *model) Forward(ctx context.Context, m ndarray.Manager, inputs ndarray.NDList) (ndarray.NDList, error) {
	in, err := inputs.Singleton()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrNativeExecution, err)
	}
	lm, ok := m.(*Manager)
	if !ok {
		return nil, fmt.Errorf("%w: forward needs a %s manager, got %s", engine.ErrNativeExecution, md.engine.name, m.EngineName())
	}
	x, err := lm.From(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrNativeExecution, err)
	}

	w, err := md.weights.floats()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrNativeExecution, err)
	}
	shape := x.Shape()
	if shape.Rank() != 2 || shape[1] != len(w) {
		return nil, fmt.Errorf("%w: input %s, want (rows, %d)", engine.ErrNativeExecution, shape, len(w))
	}
	var q []float32
	if md.quadratic != nil {
		if q, err = md.quadratic.floats(); err != nil {
			return nil, fmt.Errorf("%w: %w", engine.ErrNativeExecution, err)
		}
	}
	rows, err := x.(*Array).floats()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrNativeExecution, err)
	}

	n, f := shape[0], shape[1]
	scores := make([]float32, n)
	cfg := parallel.Config{Workers: md.engine.Threads(), MinChunk: 256}
	err = parallel.Ranges(ctx, n, cfg, func(start, end int) error {
		for i := start; i < end; i++ {
			s := md.bias
			row := rows[i*f : (i+1)*f]
			for j, v := range row {
				s += w[j] * v
				if q != nil {
					s += q[j] * v * v
				}
			}
			scores[i] = s
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out, err := lm.create(tensor.Encode(scores), tensor.Shape{n})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrNativeExecution, err)
	}
	return ndarray.NDList{out}, nil
}
