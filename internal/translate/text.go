package translate

import (
	"fmt"
	"strconv"

	"github.com/pkoukk/tiktoken-go"

	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/tensor"
)

// DefaultEncoding is the tiktoken encoding used when none is given.
const DefaultEncoding = "cl100k_base"

// Tokenizer turns text into token ids.
type Tokenizer interface {
	Encode(text string) ([]int32, error)
}

// TikToken wraps the pkoukk/tiktoken-go library for OpenAI tokenizers.
type TikToken struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewTikToken loads the named encoding ("cl100k_base", "p50k_base",
// "r50k_base"). The first call may download the BPE ranks.
func NewTikToken(encodingName string) (*TikToken, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}
	return &TikToken{encoding: encoding, name: encodingName}, nil
}

// Name returns the encoding name.
func (t *TikToken) Name() string {
	return t.name
}

// Encode converts text to token IDs.
func (t *TikToken) Encode(text string) ([]int32, error) {
	tokens := t.encoding.Encode(text, nil, nil)
	result := make([]int32, len(tokens))
	for i, tok := range tokens {
		result[i] = int32(tok) //nolint:gosec // G115: Token ID fits in int32 - vocab size < 2^31.
	}
	return result, nil
}

// TextTranslator scores text with a float32 model: tokens are hashed into a
// bag-of-tokens row of Features counts.
type TextTranslator struct {
	Tokenizer Tokenizer
	Features  int
}

// NewTextTranslator reads "features" (required) and "encoding" from args.
func NewTextTranslator(args map[string]any) (*TextTranslator, error) {
	features, err := intArg(args, "features")
	if err != nil {
		return nil, err
	}
	if features <= 0 {
		return nil, fmt.Errorf("features must be positive, got %d", features)
	}

	encoding := DefaultEncoding
	if v, ok := args["encoding"].(string); ok && v != "" {
		encoding = v
	}
	tok, err := NewTikToken(encoding)
	if err != nil {
		return nil, err
	}
	return &TextTranslator{Tokenizer: tok, Features: features}, nil
}

// Encode tokenizes input into a [1, Features] row.
func (t *TextTranslator) Encode(ctx *Context, input string) (ndarray.NDList, error) {
	ids, err := t.Tokenizer.Encode(input)
	if err != nil {
		return nil, err
	}
	row := make([]float32, t.Features)
	for _, id := range ids {
		row[int(uint32(id))%t.Features]++
	}
	a, err := ctx.Manager().Create(tensor.Encode(row), tensor.Shape{1, t.Features}, tensor.Float32)
	if err != nil {
		return nil, err
	}
	return ndarray.NDList{a}, nil
}

// Decode copies the first output.
func (t *TextTranslator) Decode(ctx *Context, list ndarray.NDList) ([]float32, error) {
	return VectorTranslator{}.Decode(ctx, list)
}

func intArg(args map[string]any, key string) (int, error) {
	switch v := args[key].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("argument %q: %w", key, err)
		}
		return n, nil
	case nil:
		return 0, fmt.Errorf("argument %q is required", key)
	default:
		return 0, fmt.Errorf("argument %q has type %T", key, v)
	}
}
