// Package config loads the djl command configuration from YAML, JSON or
// TOML files and DJL_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Model is a model the server loads at startup.
type Model struct {
	Name    string `json:"name" yaml:"name" toml:"name" validate:"required"`
	URL     string `json:"url" yaml:"url" toml:"url" validate:"required"`
	Engine  string `json:"engine,omitempty" yaml:"engine,omitempty" toml:"engine,omitempty"`
	Version string `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	// Kind selects the input/output types served: vector ([]float32 to
	// []float32, the default), score ([]float32 to float32) or embedding
	// (string to []float32).
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty" toml:"kind,omitempty" validate:"omitempty,oneof=vector score embedding"`
}

// Config holds runtime parameters. Zero values mean "unspecified" and are
// filled from Default.
type Config struct {
	LogLevel      string  `json:"log_level" yaml:"log_level" toml:"log_level" validate:"omitempty,oneof=trace debug info warn warning error"`
	LogFormat     string  `json:"log_format" yaml:"log_format" toml:"log_format" validate:"omitempty,oneof=json console"`
	CacheDir      string  `json:"cache_dir" yaml:"cache_dir" toml:"cache_dir"`
	Catalog       string  `json:"catalog" yaml:"catalog" toml:"catalog"`
	DefaultEngine string  `json:"default_engine" yaml:"default_engine" toml:"default_engine"`
	Device        string  `json:"device" yaml:"device" toml:"device"`
	Threads       int     `json:"threads" yaml:"threads" toml:"threads" validate:"gte=0"`
	Seed          int64   `json:"seed" yaml:"seed" toml:"seed"`
	Addr          string  `json:"addr" yaml:"addr" toml:"addr" validate:"omitempty,hostname_port"`
	Models        []Model `json:"models" yaml:"models" toml:"models" validate:"dive"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "console",
		Device:    "cpu",
		Addr:      "127.0.0.1:8080",
	}
}

// Load reads a configuration file based on its extension (.yaml, .yml,
// .json, .toml) on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from DJL_* variables found through lookup,
// usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"DJL_LOG_LEVEL":      &c.LogLevel,
		"DJL_LOG_FORMAT":     &c.LogFormat,
		"DJL_CACHE_DIR":      &c.CacheDir,
		"DJL_CATALOG":        &c.Catalog,
		"DJL_DEFAULT_ENGINE": &c.DefaultEngine,
		"DJL_DEVICE":         &c.Device,
		"DJL_ADDR":           &c.Addr,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	if v, ok := lookup("DJL_THREADS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: DJL_THREADS: %w", ErrInvalidConfig, err)
		}
		c.Threads = n
	}
	if v, ok := lookup("DJL_SEED"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: DJL_SEED: %w", ErrInvalidConfig, err)
		}
		c.Seed = n
	}
	return nil
}

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Fields, ", ")
}

// Is makes errors.Is(err, ErrInvalidConfig) true.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

var validate = validator.New()

// Validate checks field constraints.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return ve
}
