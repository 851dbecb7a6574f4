package parallel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangesCoverEveryIndexOnce(t *testing.T) {
	tests := []struct {
		name string
		n    int
		cfg  Config
	}{
		{"inline", 100, Config{Workers: 1}},
		{"below min chunk", 10, Config{Workers: 8, MinChunk: 64}},
		{"split", 1000, Config{Workers: 4, MinChunk: 16}},
		{"more workers than items", 7, Config{Workers: 32}},
		{"zero min chunk", 50, Config{Workers: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make([]int32, tt.n)
			err := Ranges(context.Background(), tt.n, tt.cfg, func(start, end int) error {
				for i := start; i < end; i++ {
					atomic.AddInt32(&seen[i], 1)
				}
				return nil
			})
			require.NoError(t, err)
			for i, c := range seen {
				assert.EqualValues(t, 1, c, "index %d", i)
			}
		})
	}
}

func TestRangesSplitsAcrossChunks(t *testing.T) {
	var mu sync.Mutex
	var chunks [][2]int
	err := Ranges(context.Background(), 100, Config{Workers: 4, MinChunk: 10}, func(start, end int) error {
		mu.Lock()
		chunks = append(chunks, [2]int{start, end})
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, chunks, 4)
}

func TestRangesReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	err := Ranges(context.Background(), 100, Config{Workers: 4, MinChunk: 1}, func(start, _ int) error {
		if start == 0 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestRangesHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	for _, cfg := range []Config{{Workers: 1}, {Workers: 4, MinChunk: 1}} {
		err := Ranges(ctx, 100, cfg, func(int, int) error {
			calls.Add(1)
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Zero(t, calls.Load())
}

func TestRangesEmpty(t *testing.T) {
	called := false
	require.NoError(t, Ranges(context.Background(), 0, Config{Workers: 4}, func(int, int) error {
		called = true
		return nil
	}))
	assert.False(t, called)
}
