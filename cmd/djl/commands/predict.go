package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newPredictCommand(rt *runtime) *cobra.Command {
	f := &modelFlags{}
	cmd := &cobra.Command{
		Use:   "predict <url> <input>...",
		Short: "Run one prediction",
		Long: `Load a model, run a single prediction and print the result as JSON.

For vector and score models the inputs are numbers; for embedding models
they are joined into one text.`,
		Example: `  # Forward a feature vector through an MLP
  djl predict ./models --name mlp -- 0.5 -1 2

  # Score with a linear model
  djl predict ./churn.toml --kind score 3 1 0

  # Embed text with a GGUF model
  djl predict ./llama.gguf --engine Llama --kind embedding "hello world"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.url = args[0]
			input, err := parseInput(f.kind, args[1:])
			if err != nil {
				return err
			}

			ep, err := loadEndpoint(cmd.Context(), rt, f.model(), f.device, f.options)
			if err != nil {
				return err
			}
			defer ep.Close()

			out, err := ep.Predict(cmd.Context(), input)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"model": ep.Name(), "engine": ep.Engine(), "output": out})
		},
	}
	addModelFlags(cmd, f)
	return cmd
}

// parseInput turns command line arguments into the JSON input of kind.
func parseInput(kind string, args []string) (json.RawMessage, error) {
	if kind == "embedding" {
		return json.Marshal(strings.Join(args, " "))
	}
	values := make([]float32, 0, len(args))
	for _, a := range args {
		for field := range strings.FieldsFuncSeq(a, func(r rune) bool { return r == ',' || r == ' ' }) {
			v, err := strconv.ParseFloat(field, 32)
			if err != nil {
				return nil, fmt.Errorf("input %q is not a number", field)
			}
			values = append(values, float32(v))
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no input values")
	}
	return json.Marshal(values)
}
