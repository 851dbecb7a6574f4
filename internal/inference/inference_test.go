package inference

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/zachgk/djl/internal/engine"
	"github.com/zachgk/djl/internal/engine/enginetest"
	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/tensor"
	"github.com/zachgk/djl/internal/translate"
)

func loadScaleModel(t *testing.T, e engine.Engine, scale float32) *Model {
	t.Helper()
	dir := t.TempDir()
	enginetest.WriteScaleModel(t, dir, "scale", 3, scale)

	m, err := NewModel(e, "scale", tensor.CPU())
	require.NoError(t, err)
	require.NoError(t, m.Load(context.Background(), dir, map[string]string{"task": "scaling"}))
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestPredict(t *testing.T) {
	e := enginetest.New("inference-predict")
	m := loadScaleModel(t, e, 2)
	assert.Equal(t, "scaling", m.Property("task"))
	assert.Equal(t, "3x3", m.Property("layers"), "block properties merged")
	assert.Equal(t, "linear", m.Property("output"))

	p, err := NewPredictor[[]float32, []float32](m, translate.VectorTranslator{})
	require.NoError(t, err)
	defer p.Close()

	live := ndarray.LiveManagers(e.Name())
	got, err := p.Predict(context.Background(), []float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6}, got)
	assert.Equal(t, live, ndarray.LiveManagers(e.Name()), "per-call manager released")

	outs, err := p.BatchPredict(context.Background(), [][]float32{{1, 0, 0}, {0, 0, 1}})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2, 0, 0}, {0, 0, 2}}, outs)
}

func TestLoadFailureClosesRoot(t *testing.T) {
	e := enginetest.New("inference-malformed")
	before := ndarray.LiveManagers(e.Name())

	m, err := NewModel(e, "absent", tensor.CPU())
	require.NoError(t, err)
	assert.Equal(t, before+1, ndarray.LiveManagers(e.Name()))

	err = m.Load(context.Background(), t.TempDir(), nil)
	assert.ErrorIs(t, err, engine.ErrMalformedModel)
	assert.False(t, m.IsOpen())
	assert.Equal(t, before, ndarray.LiveManagers(e.Name()))
}

func TestNewModelRejectsDevice(t *testing.T) {
	_, err := NewModel(enginetest.New("inference-device"), "m", tensor.GPU(0))
	assert.ErrorIs(t, err, engine.ErrDeviceNotSupported)
}

func TestSessionsAreIndependent(t *testing.T) {
	m := loadScaleModel(t, enginetest.New("inference-sessions"), 1)

	first, err := NewPredictor[[]float32, []float32](m, translate.VectorTranslator{})
	require.NoError(t, err)
	second, err := NewPredictor[[]float32, []float32](m, translate.VectorTranslator{})
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, first.Close())
	assert.False(t, first.Manager().IsOpen())
	assert.True(t, m.IsOpen())

	got, err := second.Predict(context.Background(), []float32{4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 5, 6}, got)

	_, err = first.Predict(context.Background(), []float32{1, 2, 3})
	assert.ErrorIs(t, err, ndarray.ErrClosed)
}

func TestConcurrentSessions(t *testing.T) {
	const sessions, calls = 4, 200

	e := enginetest.New("inference-concurrent")
	m := loadScaleModel(t, e, 2)

	predictors := make([]*Predictor[[]float32, []float32], sessions)
	for i := range predictors {
		p, err := NewPredictor[[]float32, []float32](m, translate.VectorTranslator{})
		require.NoError(t, err)
		defer p.Close()
		predictors[i] = p
	}
	live := ndarray.LiveManagers(e.Name())

	g, ctx := errgroup.WithContext(context.Background())
	for i, p := range predictors {
		g.Go(func() error {
			for j := range calls {
				in := []float32{float32(i), float32(j), -1}
				got, err := p.Predict(ctx, in)
				if err != nil {
					return fmt.Errorf("session %d call %d: %w", i, j, err)
				}
				want := []float32{2 * in[0], 2 * in[1], -2}
				if !slices.Equal(got, want) {
					return fmt.Errorf("session %d call %d: got %v, want %v", i, j, got, want)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, live, ndarray.LiveManagers(e.Name()), "per-call managers released")
	for _, p := range predictors {
		assert.True(t, p.Manager().IsOpen())
	}
	assert.True(t, m.IsOpen())
}

func TestErrorsLeaveSessionUsable(t *testing.T) {
	m := loadScaleModel(t, enginetest.New("inference-errors"), 3)
	ctx := context.Background()

	failEncode := translate.Funcs[[]float32, []float32]{
		EncodeFunc: func(c *translate.Context, in []float32) (ndarray.NDList, error) {
			if len(in) == 0 {
				return nil, errors.New("empty input")
			}
			return translate.VectorTranslator{}.Encode(c, in)
		},
		DecodeFunc: translate.VectorTranslator{}.Decode,
	}
	p, err := NewPredictor[[]float32, []float32](m, failEncode)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Predict(ctx, nil)
	assert.ErrorIs(t, err, translate.ErrTranslate)
	var te *translate.TranslateError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "encode", te.Op)

	// Wrong feature count fails inside the block.
	_, err = p.Predict(ctx, []float32{1, 2})
	assert.ErrorIs(t, err, engine.ErrNativeExecution)

	got, err := p.Predict(ctx, []float32{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 3, 3}, got)
}

func TestForwardErrorsAreWrapped(t *testing.T) {
	m := loadScaleModel(t, enginetest.New("inference-forward"), 1)
	m.SetBlock(enginetest.BlockFunc(func(context.Context, ndarray.Manager, ndarray.NDList) (ndarray.NDList, error) {
		return nil, errors.New("device lost")
	}))

	p, err := NewPredictor[[]float32, []float32](m, translate.VectorTranslator{})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Predict(context.Background(), []float32{1, 2, 3})
	assert.ErrorIs(t, err, engine.ErrNativeExecution)
	assert.ErrorContains(t, err, "device lost")
}

func TestNoopOutputsOutliveCall(t *testing.T) {
	e := enginetest.New("inference-noop")
	m := loadScaleModel(t, e, 5)

	caller, err := e.NewBaseManager(tensor.CPU())
	require.NoError(t, err)
	defer caller.Close()

	p, err := NewPredictor[ndarray.NDList, ndarray.NDList](m, translate.NoopTranslator{})
	require.NoError(t, err)
	defer p.Close()

	x, err := ndarray.FromSlice(caller, []float32{1, 2, 3}, tensor.Shape{1, 3})
	require.NoError(t, err)
	out, err := p.Predict(context.Background(), ndarray.NDList{x})
	require.NoError(t, err)

	y, err := out.Singleton()
	require.NoError(t, err)
	assert.True(t, y.IsOpen())
	assert.Same(t, caller, y.Manager())
	got, err := ndarray.ToSlice[float32](y)
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 10, 15}, got)
}

func TestModelCloseClosesPredictors(t *testing.T) {
	dir := t.TempDir()
	enginetest.WriteScaleModel(t, dir, "scale", 2, 1)
	m, err := NewModel(enginetest.New("inference-close"), "scale", tensor.CPU())
	require.NoError(t, err)
	require.NoError(t, m.Load(context.Background(), dir, nil))

	p, err := NewPredictor[[]float32, []float32](m, translate.VectorTranslator{})
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.False(t, p.Manager().IsOpen())

	_, err = NewPredictor[[]float32, []float32](m, translate.VectorTranslator{})
	assert.ErrorIs(t, err, ndarray.ErrClosed)
}
