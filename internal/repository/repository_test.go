package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLocal(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "mlp.safetensors")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	r := New(WithCacheDir(t.TempDir()))
	ctx := context.Background()

	a, err := r.Resolve(ctx, Request{URLs: []string{file}})
	require.NoError(t, err)
	assert.Equal(t, file, a.Path)
	assert.Equal(t, "mlp", a.Name)

	a, err = r.Resolve(ctx, Request{URLs: []string{"file://" + filepath.ToSlash(dir)}, Name: "mlp"})
	require.NoError(t, err)
	assert.Equal(t, dir, a.Path)
	assert.Equal(t, "mlp", a.Name)

	_, err = r.Resolve(ctx, Request{URLs: []string{filepath.Join(dir, "missing")}})
	assert.ErrorIs(t, err, ErrModelNotFound)

	_, err = r.Resolve(ctx, Request{URLs: []string{dir}, Name: "absent"})
	assert.ErrorIs(t, err, ErrModelNotFound)

	_, err = r.Resolve(ctx, Request{URLs: []string{dir}, Name: "ml"})
	assert.ErrorIs(t, err, ErrModelNotFound)

	a, err = r.Resolve(ctx, Request{URLs: []string{dir}, Name: "mlp", Version: "2.0"})
	require.NoError(t, err)
	assert.Equal(t, "2.0", a.Version)

	_, err = r.Resolve(ctx, Request{})
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestResolveFallsThroughURLs(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "m.toml")
	require.NoError(t, os.WriteFile(file, []byte("weights = [1.0]"), 0o600))

	r := New(WithCacheDir(t.TempDir()))
	a, err := r.Resolve(context.Background(), Request{URLs: []string{
		filepath.Join(dir, "absent.toml"),
		"unknown://x",
		file,
	}})
	require.NoError(t, err)
	assert.Equal(t, file, a.Path)
}

func TestResolveHTTPDownloadsOnce(t *testing.T) {
	payload := []byte("model bytes")
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models/net.safetensors":
			hits.Add(1)
			_, _ = w.Write(payload)
		case "/broken/net.safetensors":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cache := t.TempDir()
	r := New(WithCacheDir(cache), WithHTTPClient(srv.Client()))
	ctx := context.Background()

	var last, total int64
	req := Request{
		URLs:     []string{srv.URL + "/models/net.safetensors"},
		Progress: func(c, t int64) { last, total = c, t },
	}
	a, err := r.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "net", a.Name)
	assert.Equal(t, int64(len(payload)), last)
	assert.Equal(t, int64(len(payload)), total)

	got, err := os.ReadFile(a.Path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	again, err := r.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, a.Path, again.Path)
	assert.Equal(t, int32(1), hits.Load())

	_, err = r.Resolve(ctx, Request{URLs: []string{srv.URL + "/missing/net.safetensors"}})
	assert.ErrorIs(t, err, ErrModelNotFound)

	_, err = r.Resolve(ctx, Request{URLs: []string{srv.URL + "/broken/net.safetensors"}})
	assert.ErrorIs(t, err, ErrIOFailure)

	entries, err := os.ReadDir(filepath.Dir(a.Path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestResolveZoo(t *testing.T) {
	dir := t.TempDir()
	for v, name := range map[string]string{"1": "scorer", "2": "score"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, v), 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(dir, v, name+".toml"), []byte("weights = [1.0]"), 0o600))
	}

	catalog, err := ParseCatalog([]byte(`
models:
  - name: scorer
    version: "1.9"
    url: ` + filepath.Join(dir, "1") + `
    engine: Linear
  - name: scorer
    version: "1.10"
    url: ` + filepath.Join(dir, "2") + `
    engine: Linear
    artifact: score
    properties:
      task: regression
`))
	require.NoError(t, err)

	r := New(WithCatalog(catalog), WithCacheDir(t.TempDir()))
	ctx := context.Background()

	a, err := r.Resolve(ctx, Request{URLs: []string{"zoo://scorer"}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2"), a.Path)
	assert.Equal(t, "score", a.Name)
	assert.Equal(t, "1.10", a.Version)
	assert.Equal(t, "Linear", a.Engine)
	assert.Equal(t, "regression", a.Properties["task"])
	assert.Equal(t, "zoo://scorer", a.Source)

	a, err = r.Resolve(ctx, Request{URLs: []string{"zoo://scorer/1.9"}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "1"), a.Path)
	assert.Equal(t, "scorer", a.Name)

	a, err = r.Resolve(ctx, Request{URLs: []string{"zoo://"}, Name: "scorer", Version: "1.9"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "1"), a.Path)

	_, err = r.Resolve(ctx, Request{URLs: []string{"zoo://scorer/3.0"}})
	assert.ErrorIs(t, err, ErrModelNotFound)

	_, err = New().Resolve(ctx, Request{URLs: []string{"zoo://scorer"}})
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestParseCatalogRejectsIncompleteEntries(t *testing.T) {
	_, err := ParseCatalog([]byte("models:\n  - name: x\n"))
	assert.ErrorIs(t, err, ErrIOFailure)

	_, err = ParseCatalog([]byte("models: ["))
	assert.ErrorIs(t, err, ErrIOFailure)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorIs(t, err, ErrIOFailure)
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.10", "1.9", 1},
		{"1.0", "1.0", 0},
		{"1", "1.0", -1},
		{"2.0-beta", "2.0-alpha", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, compareVersions(tt.a, tt.b))
		})
	}
}
