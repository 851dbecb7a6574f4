// Package zoo finds, fetches and loads models from a declarative
// description: which engine, which device, where the artifact lives and
// which input and output types the caller wants.
package zoo

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/zachgk/djl/internal/engine"
	"github.com/zachgk/djl/internal/repository"
	"github.com/zachgk/djl/internal/tensor"
	"github.com/zachgk/djl/internal/translate"
)

// ErrAmbiguousEngine means several engines could serve the criteria and
// none was named.
var ErrAmbiguousEngine = errors.New("more than one engine matches")

var validate = validator.New()

// Criteria describes a model to load for inputs of type I and outputs of
// type O. It is immutable once built.
type Criteria[I, O any] struct {
	engine     string
	device     *tensor.Device
	urls       []string
	name       string
	version    string
	translator translate.Translator[I, O]
	progress   repository.Progress
	options    map[string]string
	arguments  map[string]any
	registry   *engine.Registry
	resolver   *repository.Resolver
	listener   func(State)
}

// fields is what Build validates.
type fields struct {
	Engine  string   `validate:"omitempty,printascii"`
	URLs    []string `validate:"required,min=1,dive,required"`
	Name    string   `validate:"omitempty,excludesall=/\\"`
	Version string   `validate:"omitempty,printascii"`
}

// Builder assembles a Criteria.
type Builder[I, O any] struct {
	c Criteria[I, O]
}

// NewCriteria starts a Criteria for (I, O).
func NewCriteria[I, O any]() *Builder[I, O] {
	return &Builder[I, O]{c: Criteria[I, O]{
		options:   map[string]string{},
		arguments: map[string]any{},
	}}
}

// OptEngine names the engine to use.
func (b *Builder[I, O]) OptEngine(name string) *Builder[I, O] {
	b.c.engine = name
	return b
}

// OptDevice places the model on device.
func (b *Builder[I, O]) OptDevice(device tensor.Device) *Builder[I, O] {
	b.c.device = &device
	return b
}

// OptModelURLs sets the artifact URLs, tried in order.
func (b *Builder[I, O]) OptModelURLs(urls ...string) *Builder[I, O] {
	b.c.urls = append(b.c.urls, urls...)
	return b
}

// OptModelPath adds a local file or directory.
func (b *Builder[I, O]) OptModelPath(path string) *Builder[I, O] {
	b.c.urls = append(b.c.urls, path)
	return b
}

// OptModelName names the model inside a directory artifact.
func (b *Builder[I, O]) OptModelName(name string) *Builder[I, O] {
	b.c.name = name
	return b
}

// OptModelVersion selects a catalog version.
func (b *Builder[I, O]) OptModelVersion(version string) *Builder[I, O] {
	b.c.version = version
	return b
}

// OptTranslator sets the translator. Without one the engine's translator
// factory must serve (I, O).
func (b *Builder[I, O]) OptTranslator(tr translate.Translator[I, O]) *Builder[I, O] {
	b.c.translator = tr
	return b
}

// OptProgress receives download progress.
func (b *Builder[I, O]) OptProgress(fn repository.Progress) *Builder[I, O] {
	b.c.progress = fn
	return b
}

// OptOption passes a load option to the engine.
func (b *Builder[I, O]) OptOption(key, value string) *Builder[I, O] {
	b.c.options[key] = value
	return b
}

// OptArgument passes an argument to the translator factory.
func (b *Builder[I, O]) OptArgument(key string, value any) *Builder[I, O] {
	b.c.arguments[key] = value
	return b
}

// OptRegistry looks engines up in r instead of engine.Default.
func (b *Builder[I, O]) OptRegistry(r *engine.Registry) *Builder[I, O] {
	b.c.registry = r
	return b
}

// OptResolver resolves URLs with r instead of a default resolver.
func (b *Builder[I, O]) OptResolver(r *repository.Resolver) *Builder[I, O] {
	b.c.resolver = r
	return b
}

// OptStateListener is called after every resolution step that succeeds.
func (b *Builder[I, O]) OptStateListener(fn func(State)) *Builder[I, O] {
	b.c.listener = fn
	return b
}

// Build validates and freezes the criteria.
func (b *Builder[I, O]) Build() (*Criteria[I, O], error) {
	err := validate.Struct(fields{
		Engine:  b.c.engine,
		URLs:    b.c.urls,
		Name:    b.c.name,
		Version: b.c.version,
	})
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
			}
			return nil, fmt.Errorf("invalid criteria: %s", strings.Join(msgs, ", "))
		}
		return nil, fmt.Errorf("invalid criteria: %w", err)
	}

	c := b.c
	c.urls = slices.Clone(b.c.urls)
	c.options = maps.Clone(b.c.options)
	c.arguments = maps.Clone(b.c.arguments)
	if c.registry == nil {
		c.registry = engine.Default
	}
	return &c, nil
}

// Engine returns the requested engine name, if any.
func (c *Criteria[I, O]) Engine() string {
	return c.engine
}

// Device returns the requested device.
func (c *Criteria[I, O]) Device() (tensor.Device, bool) {
	if c.device == nil {
		return tensor.Device{}, false
	}
	return *c.device, true
}

// URLs returns the artifact URLs.
func (c *Criteria[I, O]) URLs() []string {
	return slices.Clone(c.urls)
}

// ModelName returns the requested model name.
func (c *Criteria[I, O]) ModelName() string {
	return c.name
}

// Options returns the engine load options.
func (c *Criteria[I, O]) Options() map[string]string {
	return maps.Clone(c.options)
}

// Arguments returns the translator arguments.
func (c *Criteria[I, O]) Arguments() map[string]any {
	return maps.Clone(c.arguments)
}
