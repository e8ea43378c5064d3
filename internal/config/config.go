// Package config loads fcsinfo settings from YAML or TOML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds every setting a command line flag can also override.
type Config struct {
	Format      string   `yaml:"format" toml:"format"`
	Events      int      `yaml:"events" toml:"events"`
	Checks      []string `yaml:"checks" toml:"checks"`
	Concurrency int      `yaml:"concurrency" toml:"concurrency"`
	LogLevel    string   `yaml:"log_level" toml:"log_level"`
	Digest      bool     `yaml:"digest" toml:"digest"`
	// CacheTimeout is a time.ParseDuration string; "0" keeps entries until
	// the file changes and "off" disables caching.
	CacheTimeout string `yaml:"cache_timeout" toml:"cache_timeout"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Format:       "json",
		Concurrency:  4,
		LogLevel:     "info",
		CacheTimeout: "5m",
	}
}

// Load reads path over the defaults. The format follows the extension:
// .toml for TOML, .yaml or .yml for YAML. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("load config %s: unsupported extension %q", path, ext)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Normalize trims every value, lowercases the format and log level, and drops
// blank checks. Load calls it; callers that override fields afterwards should
// call it again before Validate.
func (c *Config) Normalize() {
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.CacheTimeout = strings.TrimSpace(c.CacheTimeout)
	checks := make([]string, 0, len(c.Checks))
	for _, expr := range c.Checks {
		if v := strings.TrimSpace(expr); v != "" {
			checks = append(checks, v)
		}
	}
	c.Checks = checks
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Format {
	case "json", "yaml", "yml", "cbor":
	default:
		return fmt.Errorf("invalid format %q", c.Format)
	}
	if c.Events < 0 {
		return fmt.Errorf("events must not be negative, got %d", c.Events)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, _, err := c.Cache(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return level, nil
}

// Cache parses CacheTimeout into an enable flag and a timeout.
func (c Config) Cache() (enabled bool, timeout time.Duration, err error) {
	switch c.CacheTimeout {
	case "off", "false", "none":
		return false, 0, nil
	case "", "0":
		return true, 0, nil
	}
	d, err := time.ParseDuration(c.CacheTimeout)
	if err != nil || d < 0 {
		return false, 0, fmt.Errorf("invalid cache_timeout %q", c.CacheTimeout)
	}
	return true, d, nil
}
