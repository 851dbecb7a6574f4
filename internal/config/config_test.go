package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFormats(t *testing.T) {
	tests := map[string]string{
		"djl.yaml": "threads: 4\ndevice: cpu\nmodels:\n  - name: mlp\n    url: /models/mlp\n",
		"djl.json": `{"threads": 4, "device": "cpu", "models": [{"name": "mlp", "url": "/models/mlp"}]}`,
		"djl.toml": "threads = 4\ndevice = \"cpu\"\n[[models]]\nname = \"mlp\"\nurl = \"/models/mlp\"\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(write(t, name, body))
			require.NoError(t, err)
			assert.Equal(t, 4, cfg.Threads)
			assert.Equal(t, "info", cfg.LogLevel, "defaults kept")
			require.Len(t, cfg.Models, 1)
			assert.Equal(t, "mlp", cfg.Models[0].Name)
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
	_, err = Load(write(t, "djl.ini", "x=1"))
	assert.ErrorContains(t, err, "unsupported")
	_, err = Load(write(t, "djl.yaml", "threads: [1"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "loud"
	cfg.Threads = -1
	cfg.Models = []Model{{Name: "m"}}

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Fields, 3)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"DJL_THREADS":        "8",
		"DJL_SEED":           "42",
		"DJL_DEFAULT_ENGINE": "Linear",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, 8, cfg.Threads)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, "Linear", cfg.DefaultEngine)
	assert.Equal(t, "cpu", cfg.Device)

	env["DJL_THREADS"] = "many"
	assert.ErrorIs(t, cfg.ApplyEnv(lookup), ErrInvalidConfig)
}
