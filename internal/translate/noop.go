package translate

import (
	"fmt"

	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/tensor"
)

const callerManagerKey = "noop.caller"

// NoopTranslator passes arrays straight through. Outputs are handed back to
// the manager that owned the first input, converted into its engine when
// needed, so they outlive the call.
type NoopTranslator struct{}

// Encode converts the inputs into the model's engine.
func (NoopTranslator) Encode(ctx *Context, input ndarray.NDList) (ndarray.NDList, error) {
	if len(input) > 0 {
		ctx.SetAttachment(callerManagerKey, input[0].Manager())
	}
	out := make(ndarray.NDList, len(input))
	for i, a := range input {
		b, err := ctx.Manager().From(a)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// Decode moves the outputs out of the per-call manager.
func (NoopTranslator) Decode(ctx *Context, list ndarray.NDList) (ndarray.NDList, error) {
	target, _ := ctx.Attachment(callerManagerKey).(ndarray.Manager)
	if target == nil || !target.IsOpen() {
		target = ctx.Manager().Parent()
	}
	if target == nil {
		return nil, fmt.Errorf("no manager to hand %d outputs to", len(list))
	}

	out := make(ndarray.NDList, len(list))
	for i, a := range list {
		b, err := target.From(a)
		if err != nil {
			return nil, err
		}
		if b == a {
			if err := a.Attach(target); err != nil {
				return nil, err
			}
		}
		out[i] = b
	}
	return out, nil
}

// VectorTranslator feeds a single float32 row of shape [1, n] and returns
// the first output flattened.
type VectorTranslator struct{}

// Encode builds a [1, len(input)] array.
func (VectorTranslator) Encode(ctx *Context, input []float32) (ndarray.NDList, error) {
	a, err := ctx.Manager().Create(tensor.Encode(input), tensor.Shape{1, len(input)}, tensor.Float32)
	if err != nil {
		return nil, err
	}
	return ndarray.NDList{a}, nil
}

// Decode copies the first output.
func (VectorTranslator) Decode(_ *Context, list ndarray.NDList) ([]float32, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("model returned no outputs")
	}
	return ndarray.ToSlice[float32](list[0])
}
