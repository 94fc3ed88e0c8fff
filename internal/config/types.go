package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration wraps time.Duration for text unmarshaling (YAML, env vars).
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if parsed < 0 {
		return fmt.Errorf("duration cannot be negative: %s", text)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration().String())
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config is the full declarative input for a gate run.
// Loaded once at start and immutable afterward.
type Config struct {
	// Concurrency bounds the number of checks running at once.
	Concurrency int `koanf:"concurrency"`

	// DefaultTimeout applies to checks that don't declare their own.
	DefaultTimeout Duration `koanf:"default_timeout"`

	// CacheDir is where environment artifacts are stored.
	CacheDir string `koanf:"cache_dir"`

	// RepoPath is the repository root. Defaults to the working directory.
	RepoPath string `koanf:"repo_path"`

	// Base is the revision the changed-file set is computed against.
	Base string `koanf:"base"`

	// Head is the revision under test.
	Head string `koanf:"head"`

	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`

	Groups []GroupConfig `koanf:"groups"`
	Checks []CheckConfig `koanf:"checks"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsConfig controls the optional metrics listener.
// An empty Listen address disables it.
type MetricsConfig struct {
	Listen string `koanf:"listen"`
}

// GroupConfig names a cluster of checks sharing a purpose.
type GroupConfig struct {
	Name string `koanf:"name"`

	// Checks lists the check ids belonging to this group, in plan order.
	Checks []string `koanf:"checks"`

	// Skip lists check ids that are planned as Skipped for this run.
	Skip []string `koanf:"skip"`
}

// CheckConfig declares one check.
type CheckConfig struct {
	ID    string `koanf:"id"`
	Group string `koanf:"group"`

	// Command is the argv template. "{files}" expands to the applicable
	// changed paths, "{dir}" to the repository root. The reserved form
	// "builtin:<name>" runs an in-process check instead of a subprocess.
	Command []string `koanf:"command"`

	// Paths are doublestar glob patterns deciding applicability.
	Paths []string `koanf:"paths"`

	// SkipWith lists check ids this check is mutually exclusive with.
	// When both are applicable, the later-registered one is skipped.
	SkipWith []string `koanf:"skip_with"`

	Timeout Duration          `koanf:"timeout"`
	Env     map[string]string `koanf:"env"`
	Dir     string            `koanf:"dir"`

	Cache *CacheConfig `koanf:"cache"`
}

// CacheConfig declares the cached environment a check depends on.
type CacheConfig struct {
	// Tool identifies the environment builder (e.g. "uv", "pnpm").
	Tool string `koanf:"tool"`

	// Inputs are the lock/config files whose content defines the cache key.
	Inputs []string `koanf:"inputs"`

	// Setup is the argv run on a cache miss to build the environment.
	Setup []string `koanf:"setup"`
}
