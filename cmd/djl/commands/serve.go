package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zachgk/djl/internal/httpapi"
)

func newServeCommand(rt *runtime) *cobra.Command {
	var (
		addr        string
		corsOrigins []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured models over HTTP",
		Long: `Load every model listed under "models" in the config file and serve
them until interrupted.

Routes:
  GET  /healthz
  GET  /engines
  GET  /models
  POST /models/{name}/predict   body: {"input": ...}
  GET  /metrics`,
		Example: `  djl serve --config djl.yaml --addr :8080`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = rt.cfg.Addr
			}

			var opts []httpapi.Option
			if len(corsOrigins) > 0 {
				opts = append(opts, httpapi.WithCORSOrigins(corsOrigins...))
			}
			srv := httpapi.New(rt.registry, opts...)
			defer func() {
				if err := srv.Close(); err != nil {
					log.Warn().Str("component", "cli").Err(err).Msg("closing models")
				}
			}()

			for _, m := range rt.cfg.Models {
				ep, err := loadEndpoint(ctx, rt, m, "", nil)
				if err != nil {
					return fmt.Errorf("model %s: %w", m.Name, err)
				}
				if err := srv.Add(ep); err != nil {
					_ = ep.Close()
					return err
				}
			}
			if len(rt.cfg.Models) == 0 {
				log.Warn().Str("component", "cli").Msg("no models configured")
			}

			return listen(ctx, &http.Server{
				Addr:              addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringSliceVar(&corsOrigins, "cors-origin", nil, "allowed CORS origin; repeatable")
	return cmd
}

// listen serves until ctx is cancelled, then shuts down gracefully.
func listen(ctx context.Context, srv *http.Server) error {
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("component", "cli").Str("addr", srv.Addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Str("component", "cli").Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
