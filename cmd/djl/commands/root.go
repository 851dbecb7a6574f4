// Package commands implements the djl subcommands.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zachgk/djl/internal/config"
	"github.com/zachgk/djl/internal/engine"
	"github.com/zachgk/djl/internal/logging"
	"github.com/zachgk/djl/internal/repository"

	// Engines register themselves with engine.Default.
	_ "github.com/zachgk/djl/internal/engine/cpu"
	_ "github.com/zachgk/djl/internal/engine/linear"
	_ "github.com/zachgk/djl/internal/engine/llama"
	_ "github.com/zachgk/djl/internal/engine/webgpu"
)

// globals are the persistent flags.
type globals struct {
	configPath string
	logLevel   string
	logFormat  string
	jsonOutput bool
}

// runtime is what every subcommand works with once flags, file and
// environment have been merged.
type runtime struct {
	cfg      config.Config
	registry *engine.Registry
	resolver *repository.Resolver
	json     bool
}

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	return newRootCommand(version, commit, buildDate).ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	g := &globals{}
	rt := &runtime{registry: engine.Default}

	rootCmd := &cobra.Command{
		Use:   "djl",
		Short: "Engine-agnostic model loading and inference",
		Long: `djl resolves model artifacts, picks a compute engine that can serve
them, and runs predictions with deterministic release of every tensor.

Engines compiled into this binary register themselves at startup; run
"djl engines" to list them.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.init(cmd, g)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if rt.resolver == nil {
				return nil
			}
			return rt.resolver.Close()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "log format (console or json)")
	rootCmd.PersistentFlags().BoolVar(&g.jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newEnginesCommand(rt))
	rootCmd.AddCommand(newLoadCommand(rt))
	rootCmd.AddCommand(newPredictCommand(rt))
	rootCmd.AddCommand(newServeCommand(rt))
	rootCmd.AddCommand(newVersionCommand(version, commit, buildDate))

	return rootCmd
}

func (rt *runtime) init(cmd *cobra.Command, g *globals) error {
	cfg := config.Default()
	if g.configPath != "" {
		loaded, err := config.Load(g.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = g.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logging.Setup(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		return err
	}

	if cfg.DefaultEngine != "" {
		if err := rt.registry.SetDefault(cfg.DefaultEngine); err != nil {
			return err
		}
	}
	for _, e := range rt.registry.Engines() {
		if cfg.Threads > 0 {
			e.SetThreads(cfg.Threads)
		}
		if cfg.Seed != 0 {
			e.SetSeed(cfg.Seed)
		}
	}

	opts := []repository.Option{}
	if cfg.CacheDir != "" {
		opts = append(opts, repository.WithCacheDir(cfg.CacheDir))
	}
	if cfg.Catalog != "" {
		catalog, err := repository.LoadCatalog(cfg.Catalog)
		if err != nil {
			return err
		}
		opts = append(opts, repository.WithCatalog(catalog))
	}

	rt.cfg = cfg
	rt.resolver = repository.New(opts...)
	rt.json = g.jsonOutput

	log.Debug().
		Str("component", "cli").
		Strs("engines", rt.registry.Names()).
		Str("config", g.configPath).
		Msg("runtime ready")
	return nil
}
