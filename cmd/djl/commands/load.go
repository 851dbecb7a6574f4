package commands

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/zachgk/djl/internal/zoo"
)

type loadResult struct {
	Name       string            `json:"name"`
	Engine     string            `json:"engine"`
	Device     string            `json:"device"`
	Path       string            `json:"path"`
	Source     string            `json:"source"`
	Properties map[string]string `json:"properties,omitempty"`
}

func newLoadCommand(rt *runtime) *cobra.Command {
	f := &modelFlags{}
	cmd := &cobra.Command{
		Use:   "load <url>",
		Short: "Resolve and load a model, then release it",
		Long: `Resolve a model artifact, select an engine, load it and report where
everything ended up. The model is closed before the command exits.

URLs may be local paths, file://, http(s)://, gs://bucket/object or
zoo://name[/version] entries of the configured catalog.`,
		Example: `  # Load a safetensors MLP on the CPU engine
  djl load ./models --name mlp --engine CPU

  # Load a linear scorer from the catalog
  djl load zoo://churn --kind score`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.url = args[0]
			ctx := cmd.Context()

			var (
				res *loadResult
				err error
			)
			switch f.kind {
			case "", "vector":
				res, err = describe[[]float32, []float32](loadModel[[]float32, []float32](ctx, rt, f.model(), f.device, f.options))
			case "score":
				res, err = describe[[]float32, float32](loadModel[[]float32, float32](ctx, rt, f.model(), f.device, f.options))
			case "embedding":
				res, err = describe[string, []float32](loadModel[string, []float32](ctx, rt, f.model(), f.device, f.options))
			default:
				return fmt.Errorf("unknown model kind %q", f.kind)
			}
			if err != nil {
				return err
			}

			if rt.json {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "model:   %s\n", res.Name)
			fmt.Fprintf(out, "engine:  %s\n", res.Engine)
			fmt.Fprintf(out, "device:  %s\n", res.Device)
			fmt.Fprintf(out, "path:    %s\n", res.Path)
			fmt.Fprintf(out, "source:  %s\n", res.Source)
			for _, k := range slices.Sorted(maps.Keys(res.Properties)) {
				fmt.Fprintf(out, "  %s=%s\n", k, res.Properties[k])
			}
			return nil
		},
	}
	addModelFlags(cmd, f)
	return cmd
}

// describe reports a loaded model and closes it.
func describe[I, O any](m *zoo.ZooModel[I, O], err error) (*loadResult, error) {
	if err != nil {
		return nil, err
	}
	res := &loadResult{
		Name:       m.Name(),
		Engine:     m.Engine().Name(),
		Device:     m.Manager().Device().String(),
		Path:       m.Path(),
		Source:     m.Artifact().Source,
		Properties: m.Properties(),
	}
	if err := m.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", res.Name, err)
	}
	return res, nil
}

func addModelFlags(cmd *cobra.Command, f *modelFlags) {
	cmd.Flags().StringVar(&f.name, "name", "", "model name inside a directory or catalog")
	cmd.Flags().StringVar(&f.version, "version", "", "catalog version (newest when empty)")
	cmd.Flags().StringVarP(&f.engine, "engine", "e", "", "engine name (selected by model types when empty)")
	cmd.Flags().StringVarP(&f.device, "device", "d", "", "device such as cpu or gpu(0)")
	cmd.Flags().StringVarP(&f.kind, "kind", "k", "vector", "input/output kind: vector, score or embedding")
	cmd.Flags().StringToStringVarP(&f.options, "option", "o", nil, "engine load option key=value")
}
