package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zachgk/djl/internal/engine"
)

type engineRow struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Devices     []string `json:"devices"`
	Features    []string `json:"features"`
	Threads     int      `json:"threads"`
	Translators []string `json:"translators"`
	Default     bool     `json:"default"`
}

func newEnginesCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List the registered engines",
		Example: `  # Show engines, devices and the types they serve
  djl engines

  # Machine-readable
  djl engines --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows := engineRows(rt.registry)
			if rt.json {
				return writeJSON(cmd.OutOrStdout(), rows)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tVERSION\tDEVICES\tTHREADS\tTRANSLATORS")
			for _, r := range rows {
				name := r.Name
				if r.Default {
					name += "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", name, r.Version, strings.Join(r.Devices, ","), r.Threads, strings.Join(r.Translators, ", "))
			}
			return tw.Flush()
		},
	}
}

func engineRows(r *engine.Registry) []engineRow {
	var def string
	if e, err := r.DefaultEngine(); err == nil {
		def = e.Name()
	}

	engines := r.Engines()
	rows := make([]engineRow, 0, len(engines))
	for _, e := range engines {
		devices := make([]string, 0, len(e.Devices()))
		for _, d := range e.Devices() {
			devices = append(devices, d.String())
		}
		rows = append(rows, engineRow{
			Name:        e.Name(),
			Version:     e.Version(),
			Devices:     devices,
			Features:    e.Features(),
			Threads:     e.Threads(),
			Translators: e.Translators().Pairs(),
			Default:     e.Name() == def,
		})
	}
	return rows
}
