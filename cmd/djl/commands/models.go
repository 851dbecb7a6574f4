package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/zachgk/djl/internal/config"
	"github.com/zachgk/djl/internal/httpapi"
	"github.com/zachgk/djl/internal/tensor"
	"github.com/zachgk/djl/internal/zoo"
)

// modelFlags are shared by the commands that load a model.
type modelFlags struct {
	url     string
	name    string
	version string
	engine  string
	device  string
	kind    string
	options map[string]string
}

func (f modelFlags) model() config.Model {
	return config.Model{Name: f.name, URL: f.url, Engine: f.engine, Version: f.version, Kind: f.kind}
}

// loadModel resolves and loads m with the given input/output types.
func loadModel[I, O any](ctx context.Context, rt *runtime, m config.Model, device string, options map[string]string) (*zoo.ZooModel[I, O], error) {
	b := zoo.NewCriteria[I, O]().
		OptRegistry(rt.registry).
		OptResolver(rt.resolver).
		OptModelURLs(m.URL).
		OptModelName(m.Name).
		OptModelVersion(m.Version).
		OptEngine(m.Engine).
		OptStateListener(func(s zoo.State) {
			log.Info().Str("component", "cli").Str("model", m.Name).Stringer("state", s).Msg("model state")
		}).
		OptProgress(func(current, total int64) {
			log.Debug().Str("component", "cli").Int64("current", current).Int64("total", total).Msg("download")
		})

	if device == "" {
		device = rt.cfg.Device
	}
	if device != "" {
		d, err := tensor.ParseDevice(device)
		if err != nil {
			return nil, err
		}
		b = b.OptDevice(d)
	}
	for k, v := range options {
		b = b.OptOption(k, v)
	}

	c, err := b.Build()
	if err != nil {
		return nil, err
	}
	return c.LoadModel(ctx)
}

// loadEndpoint loads m with the types its kind names.
func loadEndpoint(ctx context.Context, rt *runtime, m config.Model, device string, options map[string]string) (httpapi.Endpoint, error) {
	switch m.Kind {
	case "", "vector":
		model, err := loadModel[[]float32, []float32](ctx, rt, m, device, options)
		if err != nil {
			return nil, err
		}
		return httpapi.NewEndpoint(model)
	case "score":
		model, err := loadModel[[]float32, float32](ctx, rt, m, device, options)
		if err != nil {
			return nil, err
		}
		return httpapi.NewEndpoint(model)
	case "embedding":
		model, err := loadModel[string, []float32](ctx, rt, m, device, options)
		if err != nil {
			return nil, err
		}
		return httpapi.NewEndpoint(model)
	default:
		return nil, fmt.Errorf("unknown model kind %q (want vector, score or embedding)", m.Kind)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
