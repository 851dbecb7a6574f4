package cpu

import (
	"context"
	"math"

	"github.com/zachgk/djl/internal/parallel"
)

// rowChunk is the fewest rows worth a goroutine.
const rowChunk = 4

// linearFloat32 computes y = x @ w^T + b for x [m, k], w [n, k], b [n]
// (b may be nil), splitting rows of x across up to workers goroutines.
func linearFloat32(ctx context.Context, y, x, w, b []float32, m, k, n, workers int) error {
	cfg := parallel.Config{Workers: workers, MinChunk: rowChunk}
	return parallel.Ranges(ctx, m, cfg, func(start, end int) error {
		linearRows(y, x, w, b, start, end, k, n)
		return nil
	})
}

func linearRows(y, x, w, b []float32, start, end, k, n int) {
	for i := start; i < end; i++ {
		row := x[i*k : (i+1)*k]
		for j := 0; j < n; j++ {
			weights := w[j*k : (j+1)*k]
			sum := float32(0)
			for kIdx, v := range row {
				sum += v * weights[kIdx]
			}
			if b != nil {
				sum += b[j]
			}
			y[i*n+j] = sum
		}
	}
}

// activation is applied in place after a layer.
type activation func([]float32)

func activationByName(name string) (activation, bool) {
	switch name {
	case "", "none", "identity":
		return nil, true
	case "relu":
		return func(v []float32) {
			for i, x := range v {
				if x < 0 {
					v[i] = 0
				}
			}
		}, true
	case "sigmoid":
		return func(v []float32) {
			for i, x := range v {
				v[i] = float32(1 / (1 + math.Exp(-float64(x))))
			}
		}, true
	case "tanh":
		return func(v []float32) {
			for i, x := range v {
				v[i] = float32(math.Tanh(float64(x)))
			}
		}, true
	default:
		return nil, false
	}
}

// softmaxRows normalizes each row of an [m, n] matrix.
func softmaxRows(v []float32, m, n int) {
	for i := 0; i < m; i++ {
		row := v[i*n : (i+1)*n]
		maxVal := float32(math.Inf(-1))
		for _, x := range row {
			if x > maxVal {
				maxVal = x
			}
		}
		var sum float64
		for j, x := range row {
			e := math.Exp(float64(x - maxVal))
			row[j] = float32(e)
			sum += e
		}
		for j := range row {
			row[j] = float32(float64(row[j]) / sum)
		}
	}
}
