// Package translate converts between user values and the arrays a model
// consumes and produces.
package translate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zachgk/djl/internal/ndarray"
)

// ErrTranslate matches every *TranslateError.
var ErrTranslate = errors.New("translation failed")

// TranslateError reports a failing Encode or Decode.
type TranslateError struct {
	Op  string // "encode" or "decode"
	Err error
}

// Error implements the error interface.
func (e *TranslateError) Error() string {
	return fmt.Sprintf("translate %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TranslateError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTranslate) true.
func (e *TranslateError) Is(target error) bool {
	return target == ErrTranslate
}

// Translator encodes an input into arrays and decodes the model output.
// Arrays created while encoding belong to ctx.Manager() and are released
// when the call returns, so Decode must not return them.
type Translator[I, O any] interface {
	Encode(ctx *Context, input I) (ndarray.NDList, error)
	Decode(ctx *Context, list ndarray.NDList) (O, error)
}

// Funcs adapts a pair of functions to Translator.
type Funcs[I, O any] struct {
	EncodeFunc func(ctx *Context, input I) (ndarray.NDList, error)
	DecodeFunc func(ctx *Context, list ndarray.NDList) (O, error)
}

// Encode calls EncodeFunc.
func (f Funcs[I, O]) Encode(ctx *Context, input I) (ndarray.NDList, error) {
	return f.EncodeFunc(ctx, input)
}

// Decode calls DecodeFunc.
func (f Funcs[I, O]) Decode(ctx *Context, list ndarray.NDList) (O, error) {
	return f.DecodeFunc(ctx, list)
}

// Context is the per-call state handed to a Translator.
type Context struct {
	ctx     context.Context
	manager ndarray.Manager

	mu          sync.Mutex
	attachments map[string]any
}

// NewContext creates a context whose arrays live in m.
func NewContext(ctx context.Context, m ndarray.Manager) *Context {
	return &Context{ctx: ctx, manager: m, attachments: make(map[string]any)}
}

// Context returns the caller's context.
func (c *Context) Context() context.Context {
	return c.ctx
}

// Manager returns the per-call manager.
func (c *Context) Manager() ndarray.Manager {
	return c.manager
}

// SetAttachment stores a value for later stages of the same call.
func (c *Context) SetAttachment(key string, value any) {
	c.mu.Lock()
	c.attachments[key] = value
	c.mu.Unlock()
}

// Attachment returns a value stored with SetAttachment.
func (c *Context) Attachment(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attachments[key]
}
