package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// envPrefix namespaces checkgate environment overrides.
	envPrefix = "CHECKGATE_"
)

// Load reads configuration from a YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (CHECKGATE_CONCURRENCY, CHECKGATE_LOG_LEVEL, ...)
//  2. YAML config file
//  3. Hardcoded defaults
//
// Environment variables are lowercased after the prefix is stripped, with
// the first underscore mapping to a section separator:
//
//	CHECKGATE_CONCURRENCY -> concurrency
//	CHECKGATE_LOG_LEVEL   -> log.level
//	CHECKGATE_CACHE_DIR   -> cache_dir
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read config file: %v", ErrConfig, err)
		}
		if len(content) > maxConfigFileSize {
			return nil, fmt.Errorf("%w: config file too large: %d bytes (max %d)",
				ErrConfig, len(content), maxConfigFileSize)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: failed to parse config file %s: %v", ErrConfig, configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", transformEnvKey), nil); err != nil {
		return nil, fmt.Errorf("%w: failed to load environment variables: %v", ErrConfig, err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal config: %v", ErrConfig, err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// transformEnvKey maps an environment variable name to a koanf key.
// Top-level keys that themselves contain underscores (cache_dir,
// default_timeout, repo_path) are recognized before the section split.
func transformEnvKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))

	switch lower {
	case "cache_dir", "default_timeout", "repo_path":
		return lower
	}

	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}
