// Package parallel splits index ranges across goroutines for the host
// engines' kernels.
package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Config controls how work is split.
type Config struct {
	// Workers caps the number of goroutines. Values below two run inline.
	Workers int
	// MinChunk is the smallest range handed to one goroutine.
	MinChunk int
}

// Ranges calls fn on contiguous [start, end) chunks that cover [0, n).
// Small inputs and single-worker configs run inline on the caller's
// goroutine. The first error from fn, or ctx being done, stops chunks that
// have not started yet and is returned.
func Ranges(ctx context.Context, n int, cfg Config, fn func(start, end int) error) error {
	if n <= 0 {
		return ctx.Err()
	}
	minChunk := max(cfg.MinChunk, 1)
	if cfg.Workers < 2 || n < 2*minChunk {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(0, n)
	}

	chunk := max((n+cfg.Workers-1)/cfg.Workers, minChunk)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(start, end)
		})
	}
	return g.Wait()
}
