package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "fcsinfo.yaml", `
format: YAML
events: 10
checks:
  - parameters_count > 0
  - "  "
  - keywords["$CYT"] == "Aurora"
concurrency: 8
log_level: debug
digest: true
cache_timeout: 1h
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "yaml", cfg.Format)
	assert.Equal(t, 10, cfg.Events)
	assert.Equal(t, []string{"parameters_count > 0", `keywords["$CYT"] == "Aurora"`}, cfg.Checks)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.True(t, cfg.Digest)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	enabled, timeout, err := cfg.Cache()
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Equal(t, time.Hour, timeout)
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "fcsinfo.toml", `
format = "cbor"
checks = ["total_events > 0"]
cache_timeout = "off"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "cbor", cfg.Format)
	assert.Equal(t, []string{"total_events > 0"}, cfg.Checks)
	assert.Equal(t, 4, cfg.Concurrency, "unset keys keep their defaults")
	assert.Equal(t, "info", cfg.LogLevel)

	enabled, _, err := cfg.Cache()
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestLoad_EmptyYAMLKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "empty.yml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default().Format, cfg.Format)
	assert.Equal(t, Default().Concurrency, cfg.Concurrency)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"unknown yaml key", "a.yaml", "formats: json\n", "formats"},
		{"unknown toml key", "a.toml", "formats = \"json\"\n", "formats"},
		{"bad format", "a.yaml", "format: xml\n", "invalid format"},
		{"negative events", "a.toml", "events = -1\n", "events"},
		{"zero concurrency", "a.yaml", "concurrency: 0\n", "concurrency"},
		{"bad log level", "a.yaml", "log_level: loud\n", "log_level"},
		{"bad cache timeout", "a.toml", "cache_timeout = \"soon\"\n", "cache_timeout"},
		{"unsupported extension", "a.ini", "format=json\n", "unsupported extension"},
		{"malformed toml", "a.toml", "format = \n", "load config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfig_Cache(t *testing.T) {
	for in, want := range map[string]time.Duration{"": 0, "0": 0, "90s": 90 * time.Second} {
		cfg := Default()
		cfg.CacheTimeout = in
		enabled, timeout, err := cfg.Cache()
		require.NoError(t, err)
		assert.True(t, enabled)
		assert.Equal(t, want, timeout)
	}
}

func TestConfig_Normalize(t *testing.T) {
	cfg := Default()
	cfg.Format = " CBOR "
	cfg.LogLevel = "Warn"
	cfg.CacheTimeout = " 1m "
	cfg.Checks = []string{" total_events > 0 ", "  "}

	cfg.Normalize()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "cbor", cfg.Format)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "1m", cfg.CacheTimeout)
	assert.Equal(t, []string{"total_events > 0"}, cfg.Checks)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}
