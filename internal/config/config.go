// Package config provides configuration loading for saf2png.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	saf "github.com/reoring/saf"
	"github.com/reoring/saf/internal/logging"
)

// Config contains all saf2png settings.
type Config struct {
	// Decode controls how input files are decoded.
	Decode DecodeConfig `json:"decode" yaml:"decode"`

	// Render controls the PNG output.
	Render RenderConfig `json:"render" yaml:"render"`

	// Discover controls how directory arguments are expanded.
	Discover DiscoverConfig `json:"discover" yaml:"discover"`

	// Catalog configures the SQLite index written by "saf2png index".
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`

	// Logging contains settings for operational logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Jobs bounds how many files are processed at once (0 = one per CPU).
	Jobs int `json:"jobs" yaml:"jobs"`
}

// DecodeConfig mirrors saf.DecodeOpt in textual form.
type DecodeConfig struct {
	// Dialect is one of "errors", "signed-weights", "values".
	Dialect string `json:"dialect" yaml:"dialect"`

	// FailFast rejects a whole file at its first bad entry.
	FailFast bool `json:"fail_fast" yaml:"fail_fast"`

	// MaxBytes caps the decompressed size of one input (0 = unlimited).
	MaxBytes int64 `json:"max_bytes" yaml:"max_bytes"`
}

// RenderConfig configures the PNG renderer.
type RenderConfig struct {
	Width     int    `json:"width" yaml:"width"`
	Height    int    `json:"height" yaml:"height"`
	Grid      bool   `json:"grid" yaml:"grid"`
	ErrorBars bool   `json:"error_bars" yaml:"error_bars"`
	OutDir    string `json:"out_dir,omitempty" yaml:"out_dir,omitempty"`
}

// DiscoverConfig configures directory expansion.
type DiscoverConfig struct {
	// Pattern is a doublestar glob relative to each directory argument.
	Pattern string `json:"pattern" yaml:"pattern"`

	// Exclude lists base-name patterns to skip.
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// CatalogConfig configures the SQLite catalog.
type CatalogConfig struct {
	Path string `json:"path" yaml:"path"`
}

// LoggingConfig configures operational logging.
type LoggingConfig struct {
	// Level is "error", "warn" (or "warning"), "info" (default), "debug" or
	// "trace", in any case.
	Level string `json:"level" yaml:"level"`

	// JSON switches stderr logging to JSON lines.
	JSON bool `json:"json" yaml:"json"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Decode: DecodeConfig{
			Dialect: saf.DialectErrors.String(),
		},
		Render: RenderConfig{
			Width:     1200,
			Height:    600,
			Grid:      true,
			ErrorBars: true,
		},
		Discover: DiscoverConfig{
			Pattern: "**/*.saf*",
		},
		Catalog: CatalogConfig{
			Path: "saf-catalog.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the default location and environment variables.
// Order: defaults -> ~/.saf2png/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".saf2png", "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// LoadPath is Load with an explicit file; an empty path falls back to Load.
func LoadPath(path string) (*Config, error) {
	if path == "" {
		return Load()
	}
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(config)
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Keys absent
// from the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if _, err := saf.ParseDialect(c.Decode.Dialect); err != nil {
		return err
	}
	if c.Decode.MaxBytes < 0 {
		return fmt.Errorf("max_bytes must be non-negative, got %d", c.Decode.MaxBytes)
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("canvas must be positive, got %dx%d", c.Render.Width, c.Render.Height)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must be non-negative, got %d", c.Jobs)
	}

	// Same names, any case, as logging.ParseLevel.
	validLevels := map[string]bool{"error": true, "warn": true, "warning": true, "info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: error, warn, warning, info, debug, trace, or empty for default)", c.Logging.Level)
	}
	return nil
}

// DecodeOpt converts the decode settings into library options.
func (c *Config) DecodeOpt(log *slog.Logger) (saf.DecodeOpt, error) {
	d, err := saf.ParseDialect(c.Decode.Dialect)
	if err != nil {
		return saf.DecodeOpt{}, err
	}
	return saf.DecodeOpt{Dialect: d, FailFast: c.Decode.FailFast, MaxBytes: c.Decode.MaxBytes, Logger: log}, nil
}

// Logger builds the operational logger for w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	return logging.NewLogger(c.Logging.Level, w, c.Logging.JSON)
}

// applyEnvOverrides applies SAF2PNG_* environment variable overrides.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("SAF2PNG_DIALECT"); v != "" {
		config.Decode.Dialect = v
	}
	if v := os.Getenv("SAF2PNG_FAIL_FAST"); v != "" {
		config.Decode.FailFast = v == "true" || v == "1"
	}
	if v := os.Getenv("SAF2PNG_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Decode.MaxBytes = n
		}
	}
	if v := os.Getenv("SAF2PNG_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Render.Width = n
		}
	}
	if v := os.Getenv("SAF2PNG_HEIGHT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Render.Height = n
		}
	}
	if v := os.Getenv("SAF2PNG_OUT_DIR"); v != "" {
		config.Render.OutDir = v
	}
	if v := os.Getenv("SAF2PNG_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Jobs = n
		}
	}
	if v := os.Getenv("SAF2PNG_CATALOG"); v != "" {
		config.Catalog.Path = v
	}
	if v := os.Getenv("SAF2PNG_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}
