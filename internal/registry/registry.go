// Package registry holds the static catalog of check definitions.
//
// The registry is populated during the load phase and then sealed.
// Definitions are immutable and returned in registration order, which
// keeps execution plans reproducible across runs.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fyrsmithlabs/checkgate/internal/config"
)

// Errors for registry operations.
var (
	ErrDuplicateID = errors.New("check id already registered")
	ErrNotFound    = errors.New("check not found")
	ErrSealed      = errors.New("registry is sealed")
)

// BuiltinPrefix marks commands executed in-process instead of as a
// subprocess, e.g. "builtin:gitleaks".
const BuiltinPrefix = "builtin:"

// CheckDefinition describes one check. Immutable after registration.
type CheckDefinition struct {
	// ID uniquely identifies the check.
	ID string

	// Group is the named cluster this check belongs to.
	Group string

	// Command is the argv template. See config.CheckConfig.
	Command []string

	// Paths are doublestar glob patterns deciding applicability.
	Paths []string

	// SkipWith lists check ids this check is mutually exclusive with.
	SkipWith []string

	// Timeout for a single run. Zero means the configured default.
	Timeout time.Duration

	// Env holds additional environment variables for the subprocess.
	Env map[string]string

	// Dir overrides the working directory, relative to the repo root.
	Dir string

	// Cache declares the environment this check depends on, nil if none.
	Cache *CacheSpec
}

// CacheSpec declares the cached environment a check depends on.
type CacheSpec struct {
	Tool   string
	Inputs []string
	Setup  []string
}

// IsBuiltin reports whether the check runs in-process.
func (d CheckDefinition) IsBuiltin() bool {
	return len(d.Command) > 0 && strings.HasPrefix(d.Command[0], BuiltinPrefix)
}

// BuiltinName returns the name after the builtin prefix, or "".
func (d CheckDefinition) BuiltinName() string {
	if !d.IsBuiltin() {
		return ""
	}
	return strings.TrimPrefix(d.Command[0], BuiltinPrefix)
}

// Registry is the sealed, ordered catalog of check definitions.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	checks map[string]CheckDefinition
	sealed bool
}

// New creates an empty, unsealed registry.
func New() *Registry {
	return &Registry{
		checks: make(map[string]CheckDefinition),
	}
}

// Register adds a definition. Fails with ErrDuplicateID if the id exists
// and ErrSealed after Seal has been called.
func (r *Registry) Register(def CheckDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("%w: cannot register %q", ErrSealed, def.ID)
	}
	if _, exists := r.checks[def.ID]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateID, def.ID)
	}

	r.checks[def.ID] = def
	r.order = append(r.order, def.ID)
	return nil
}

// Seal freezes the registry. Registration afterwards fails with ErrSealed.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Sealed reports whether the load phase has completed.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Lookup returns the definition for the given id.
func (r *Registry) Lookup(id string) (CheckDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.checks[id]
	if !ok {
		return CheckDefinition{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return def, nil
}

// All returns every definition in registration order.
func (r *Registry) All() []CheckDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]CheckDefinition, 0, len(r.order))
	for _, id := range r.order {
		defs = append(defs, r.checks[id])
	}
	return defs
}

// Len returns the number of registered checks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Load builds a sealed registry from the configuration. Checks are
// registered in config order, scoped to the group that lists them.
func Load(cfg *config.Config) (*Registry, error) {
	r := New()

	// Index group membership so checks declared without a group field
	// still land in the group that lists them.
	groupOf := make(map[string]string)
	for _, grp := range cfg.Groups {
		for _, id := range grp.Checks {
			groupOf[id] = grp.Name
		}
	}

	for _, chk := range cfg.Checks {
		group := chk.Group
		if group == "" {
			group = groupOf[chk.ID]
		}
		if group == "" {
			return nil, fmt.Errorf("%w: check %q belongs to no group", config.ErrConfig, chk.ID)
		}

		def := CheckDefinition{
			ID:       chk.ID,
			Group:    group,
			Command:  append([]string(nil), chk.Command...),
			Paths:    append([]string(nil), chk.Paths...),
			SkipWith: append([]string(nil), chk.SkipWith...),
			Timeout:  chk.Timeout.Duration(),
			Dir:      chk.Dir,
		}
		if len(chk.Env) > 0 {
			def.Env = make(map[string]string, len(chk.Env))
			for k, v := range chk.Env {
				def.Env[k] = v
			}
		}
		if chk.Cache != nil {
			def.Cache = &CacheSpec{
				Tool:   chk.Cache.Tool,
				Inputs: append([]string(nil), chk.Cache.Inputs...),
				Setup:  append([]string(nil), chk.Cache.Setup...),
			}
		}

		if err := r.Register(def); err != nil {
			return nil, err
		}
	}

	r.Seal()
	return r, nil
}
