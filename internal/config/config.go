// Package config provides configuration loading for checkgate.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrConfig marks configuration problems. Any error wrapping it is fatal:
// the orchestrator aborts before running a single check.
var ErrConfig = errors.New("invalid configuration")

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 4
	}
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = Duration(5 * time.Minute)
	}
	if cfg.RepoPath == "" {
		cfg.RepoPath = "."
	}
	if cfg.Base == "" {
		cfg.Base = "origin/main"
	}
	if cfg.Head == "" {
		cfg.Head = "HEAD"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

// Validate checks the configuration for errors. All returned errors wrap
// ErrConfig.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be >= 1, got %d", ErrConfig, c.Concurrency)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("%w: log format must be 'json' or 'console', got %q", ErrConfig, c.Log.Format)
	}

	checkIDs := make(map[string]*CheckConfig, len(c.Checks))
	for i := range c.Checks {
		chk := &c.Checks[i]
		if chk.ID == "" {
			return fmt.Errorf("%w: check at index %d has no id", ErrConfig, i)
		}
		if _, dup := checkIDs[chk.ID]; dup {
			return fmt.Errorf("%w: duplicate check id %q", ErrConfig, chk.ID)
		}
		if len(chk.Command) == 0 {
			return fmt.Errorf("%w: check %q has an empty command", ErrConfig, chk.ID)
		}
		if len(chk.Paths) == 0 {
			return fmt.Errorf("%w: check %q has no path patterns", ErrConfig, chk.ID)
		}
		if chk.Cache != nil {
			if chk.Cache.Tool == "" {
				return fmt.Errorf("%w: check %q cache has no tool", ErrConfig, chk.ID)
			}
			if len(chk.Cache.Inputs) == 0 {
				return fmt.Errorf("%w: check %q cache has no inputs", ErrConfig, chk.ID)
			}
			if len(chk.Cache.Setup) == 0 {
				return fmt.Errorf("%w: check %q cache has no setup command", ErrConfig, chk.ID)
			}
		}
		checkIDs[chk.ID] = chk
	}

	groupNames := make(map[string]bool, len(c.Groups))
	for _, grp := range c.Groups {
		if grp.Name == "" {
			return fmt.Errorf("%w: group with empty name", ErrConfig)
		}
		if groupNames[grp.Name] {
			return fmt.Errorf("%w: duplicate group %q", ErrConfig, grp.Name)
		}
		groupNames[grp.Name] = true

		for _, id := range grp.Checks {
			chk, ok := checkIDs[id]
			if !ok {
				return fmt.Errorf("%w: group %q references unknown check %q", ErrConfig, grp.Name, id)
			}
			if chk.Group != "" && chk.Group != grp.Name {
				return fmt.Errorf("%w: check %q declares group %q but is listed under %q",
					ErrConfig, id, chk.Group, grp.Name)
			}
		}
		for _, id := range grp.Skip {
			if _, ok := checkIDs[id]; !ok {
				return fmt.Errorf("%w: group %q skip-list references unknown check %q", ErrConfig, grp.Name, id)
			}
		}
	}

	for _, chk := range c.Checks {
		for _, other := range chk.SkipWith {
			if _, ok := checkIDs[other]; !ok {
				return fmt.Errorf("%w: check %q skip_with references unknown check %q", ErrConfig, chk.ID, other)
			}
		}
	}

	return nil
}
