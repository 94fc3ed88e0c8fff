package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checkgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_FromYAML(t *testing.T) {
	path := writeConfig(t, `
concurrency: 8
default_timeout: 90s
cache_dir: /tmp/checkgate-cache
base: origin/develop
groups:
  - name: backend-lint
    checks: [ruff]
checks:
  - id: ruff
    command: ["ruff", "check", "{files}"]
    paths: ["**/*.py"]
    timeout: 2m
    env:
      RUFF_CACHE_DIR: .ruff_cache
    cache:
      tool: uv
      inputs: [uv.lock, pyproject.toml]
      setup: ["uv", "sync", "--frozen"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, 90*time.Second, cfg.DefaultTimeout.Duration())
	assert.Equal(t, "/tmp/checkgate-cache", cfg.CacheDir)
	assert.Equal(t, "origin/develop", cfg.Base)
	// Defaults fill unset fields.
	assert.Equal(t, "HEAD", cfg.Head)
	assert.Equal(t, "info", cfg.Log.Level)

	require.Len(t, cfg.Checks, 1)
	ruff := cfg.Checks[0]
	assert.Equal(t, []string{"ruff", "check", "{files}"}, ruff.Command)
	assert.Equal(t, 2*time.Minute, ruff.Timeout.Duration())
	assert.Equal(t, ".ruff_cache", ruff.Env["RUFF_CACHE_DIR"])
	require.NotNil(t, ruff.Cache)
	assert.Equal(t, []string{"uv.lock", "pyproject.toml"}, ruff.Cache.Inputs)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
concurrency: 2
log:
  level: info
`)
	t.Setenv("CHECKGATE_CONCURRENCY", "16")
	t.Setenv("CHECKGATE_LOG_LEVEL", "debug")
	t.Setenv("CHECKGATE_CACHE_DIR", "/tmp/override")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Concurrency)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/override", cfg.CacheDir)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 5*time.Minute, cfg.DefaultTimeout.Duration())
	assert.Equal(t, "origin/main", cfg.Base)
	assert.Equal(t, "HEAD", cfg.Head)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrConfig)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Concurrency:    4,
			DefaultTimeout: Duration(time.Minute),
			Log:            LogConfig{Level: "info", Format: "console"},
			Groups: []GroupConfig{
				{Name: "lint", Checks: []string{"ruff"}},
			},
			Checks: []CheckConfig{
				{ID: "ruff", Command: []string{"ruff"}, Paths: []string{"**/*.py"}},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, true},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, true},
		{"check without id", func(c *Config) { c.Checks[0].ID = "" }, true},
		{"duplicate check id", func(c *Config) {
			c.Checks = append(c.Checks, c.Checks[0])
		}, true},
		{"empty command", func(c *Config) { c.Checks[0].Command = nil }, true},
		{"no path patterns", func(c *Config) { c.Checks[0].Paths = nil }, true},
		{"group references unknown check", func(c *Config) {
			c.Groups[0].Checks = []string{"ghost"}
		}, true},
		{"skip-list references unknown check", func(c *Config) {
			c.Groups[0].Skip = []string{"ghost"}
		}, true},
		{"duplicate group", func(c *Config) {
			c.Groups = append(c.Groups, GroupConfig{Name: "lint"})
		}, true},
		{"group mismatch", func(c *Config) { c.Checks[0].Group = "other" }, true},
		{"cache without tool", func(c *Config) {
			c.Checks[0].Cache = &CacheConfig{Inputs: []string{"a"}, Setup: []string{"x"}}
		}, true},
		{"skip_with references unknown check", func(c *Config) {
			c.Checks[0].SkipWith = []string{"ghost"}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-5s")))
	assert.Error(t, d.UnmarshalText([]byte("bogus")))
}
