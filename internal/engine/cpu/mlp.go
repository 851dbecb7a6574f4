package cpu

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/zachgk/djl/internal/engine"
	"github.com/zachgk/djl/internal/loader"
	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/tensor"
)

// layer holds the parameters of one dense layer. The arrays belong to the
// model's root manager.
type layer struct {
	weight *Array // [out, in]
	bias   *Array // [out] or nil
}

// mlp is a stack of dense layers read from a SafeTensors file:
// "layers.N.weight" and optional "layers.N.bias". Metadata "activation"
// applies between layers, "output" = "softmax" normalizes the result.
type mlp struct {
	engine     *Engine
	layers     []layer
	activation activation
	softmax    bool
}

func loadMLP(e *Engine, m ndarray.Manager, path string) (*mlp, error) {
	cm, ok := m.(*Manager)
	if !ok {
		return nil, fmt.Errorf("%w: %s manager given to %s engine", engine.ErrMalformedModel, m.EngineName(), e.name)
	}

	params, err := cm.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrMalformedModel, err)
	}
	block, err := buildMLP(e, params, path)
	if err != nil {
		_ = params.Close()
		return nil, err
	}
	return block, nil
}

func buildMLP(e *Engine, params ndarray.NDList, path string) (*mlp, error) {
	meta, err := readMetadata(path)
	if err != nil {
		return nil, err
	}
	act, ok := activationByName(meta["activation"])
	if !ok {
		return nil, fmt.Errorf("%w: unknown activation %q", engine.ErrMalformedModel, meta["activation"])
	}

	byIndex := map[int]*layer{}
	for _, p := range params {
		idx, kind, ok := parseLayerName(p.Name())
		if !ok {
			continue
		}
		if p.DataType() != tensor.Float32 {
			return nil, fmt.Errorf("%w: %s is %s, want float32", engine.ErrMalformedModel, p.Name(), p.DataType())
		}
		l := byIndex[idx]
		if l == nil {
			l = &layer{}
			byIndex[idx] = l
		}
		if kind == "weight" {
			l.weight = p.(*Array)
		} else {
			l.bias = p.(*Array)
		}
	}
	if len(byIndex) == 0 {
		return nil, fmt.Errorf("%w: %s has no layers.N.weight tensors", engine.ErrMalformedModel, path)
	}

	layers := make([]layer, len(byIndex))
	prevOut := -1
	for i := range layers {
		l, ok := byIndex[i]
		if !ok || l.weight == nil {
			return nil, fmt.Errorf("%w: missing layers.%d.weight", engine.ErrMalformedModel, i)
		}
		ws := l.weight.Shape()
		if ws.Rank() != 2 {
			return nil, fmt.Errorf("%w: layers.%d.weight has shape %s, want [out, in]", engine.ErrMalformedModel, i, ws)
		}
		if prevOut >= 0 && ws[1] != prevOut {
			return nil, fmt.Errorf("%w: layers.%d expects %d inputs, previous layer yields %d", engine.ErrMalformedModel, i, ws[1], prevOut)
		}
		if l.bias != nil && !l.bias.Shape().Equal(tensor.Shape{ws[0]}) {
			return nil, fmt.Errorf("%w: layers.%d.bias has shape %s, want (%d)", engine.ErrMalformedModel, i, l.bias.Shape(), ws[0])
		}
		prevOut = ws[0]
		layers[i] = *l
	}

	return &mlp{engine: e, layers: layers, activation: act, softmax: meta["output"] == "softmax"}, nil
}

func readMetadata(path string) (map[string]string, error) {
	r, err := loader.OpenSafeTensors(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrMalformedModel, err)
	}
	defer r.Close()
	meta := r.Metadata()
	if meta == nil {
		meta = map[string]string{}
	}
	return meta, nil
}

func parseLayerName(name string) (int, string, bool) {
	parts := strings.Split(name, ".")
	if len(parts) != 3 || parts[0] != "layers" || (parts[2] != "weight" && parts[2] != "bias") {
		return 0, "", false
	}
	idx, err := strconv.Atoi(parts[1])
	if err != nil || idx < 0 {
		return 0, "", false
	}
	return idx, parts[2], true
}

// Properties reports the layer sizes and output head.
func (b *mlp) Properties() map[string]string {
	sizes := make([]string, 0, len(b.layers)+1)
	sizes = append(sizes, strconv.Itoa(b.InputSize()))
	for _, l := range b.layers {
		sizes = append(sizes, strconv.Itoa(l.weight.Shape()[0]))
	}
	out := "linear"
	if b.softmax {
		out = "softmax"
	}
	return map[string]string{"layers": strings.Join(sizes, "x"), "output": out}
}

// InputSize is the feature count the first layer expects.
func (b *mlp) InputSize() int {
	return b.layers[0].weight.Shape()[1]
}

// Forward runs a [batch, in] float32 array through every layer. Each
// intermediate is allocated in m.
func (b *mlp) Forward(ctx context.Context, m ndarray.Manager, inputs ndarray.NDList) (ndarray.NDList, error) {
	in, err := inputs.Singleton()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrNativeExecution, err)
	}
	x, err := m.From(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrNativeExecution, err)
	}
	cm, ok := m.(*Manager)
	if !ok {
		return nil, fmt.Errorf("%w: forward needs a %s manager, got %s", engine.ErrNativeExecution, b.engine.name, m.EngineName())
	}

	shape := x.Shape()
	if x.DataType() != tensor.Float32 || shape.Rank() != 2 || shape[1] != b.InputSize() {
		return nil, fmt.Errorf("%w: input %s %s, want float32 (batch, %d)", engine.ErrNativeExecution, x.DataType(), shape, b.InputSize())
	}

	cur := x.(*Array)
	batch := shape[0]
	for i, l := range b.layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := b.apply(ctx, cm, cur, l, batch, i == len(b.layers)-1)
		if err != nil {
			return nil, fmt.Errorf("%w: layer %d: %w", engine.ErrNativeExecution, i, err)
		}
		cur = out
	}
	return ndarray.NDList{cur}, nil
}

func (b *mlp) apply(ctx context.Context, m *Manager, x *Array, l layer, batch int, last bool) (*Array, error) {
	xr, err := x.raw()
	if err != nil {
		return nil, err
	}
	wr, err := l.weight.raw()
	if err != nil {
		return nil, err
	}
	var bias []float32
	if l.bias != nil {
		br, err := l.bias.raw()
		if err != nil {
			return nil, err
		}
		bias = br.AsFloat32()
	}

	ws := wr.Shape()
	outRaw, err := tensor.NewRaw(tensor.Shape{batch, ws[0]}, tensor.Float32)
	if err != nil {
		return nil, err
	}
	y := outRaw.AsFloat32()
	if err := linearFloat32(ctx, y, xr.AsFloat32(), wr.AsFloat32(), bias, batch, ws[1], ws[0], b.engine.Threads()); err != nil {
		return nil, err
	}

	switch {
	case !last && b.activation != nil:
		b.activation(y)
	case last && b.softmax:
		softmaxRows(y, batch, ws[0])
	}
	return m.newArray(outRaw.Data(), outRaw.Shape(), tensor.Float32)
}
