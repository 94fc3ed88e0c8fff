package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/checkgate/internal/config"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := New()

	require.NoError(t, r.Register(CheckDefinition{ID: "ruff", Group: "backend-lint"}))
	require.NoError(t, r.Register(CheckDefinition{ID: "eslint", Group: "frontend-lint"}))

	def, err := r.Lookup("ruff")
	require.NoError(t, err)
	assert.Equal(t, "backend-lint", def.Group)

	_, err = r.Lookup("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_DuplicateID(t *testing.T) {
	r := New()

	require.NoError(t, r.Register(CheckDefinition{ID: "ruff"}))
	err := r.Register(CheckDefinition{ID: "ruff"})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestRegistry_Seal(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(CheckDefinition{ID: "a"}))

	r.Seal()
	assert.True(t, r.Sealed())

	err := r.Register(CheckDefinition{ID: "b"})
	assert.ErrorIs(t, err, ErrSealed)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_AllPreservesOrder(t *testing.T) {
	r := New()
	ids := []string{"zeta", "alpha", "mid"}
	for _, id := range ids {
		require.NoError(t, r.Register(CheckDefinition{ID: id}))
	}

	all := r.All()
	require.Len(t, all, 3)
	for i, id := range ids {
		assert.Equal(t, id, all[i].ID)
	}
}

func TestCheckDefinition_Builtin(t *testing.T) {
	builtin := CheckDefinition{Command: []string{"builtin:gitleaks"}}
	assert.True(t, builtin.IsBuiltin())
	assert.Equal(t, "gitleaks", builtin.BuiltinName())

	external := CheckDefinition{Command: []string{"ruff", "check"}}
	assert.False(t, external.IsBuiltin())
	assert.Empty(t, external.BuiltinName())
}

func TestLoad(t *testing.T) {
	cfg := &config.Config{
		Groups: []config.GroupConfig{
			{Name: "security", Checks: []string{"secretscan"}},
			{Name: "backend-lint", Checks: []string{"ruff"}},
		},
		Checks: []config.CheckConfig{
			{
				ID:      "secretscan",
				Command: []string{"builtin:gitleaks"},
				Paths:   []string{"**"},
			},
			{
				ID:      "ruff",
				Command: []string{"ruff", "check", "{files}"},
				Paths:   []string{"**/*.py"},
				Timeout: config.Duration(2 * time.Minute),
				Cache: &config.CacheConfig{
					Tool:   "uv",
					Inputs: []string{"uv.lock"},
					Setup:  []string{"uv", "sync", "--frozen"},
				},
			},
		},
	}

	r, err := Load(cfg)
	require.NoError(t, err)
	assert.True(t, r.Sealed())
	assert.Equal(t, 2, r.Len())

	// Group is inferred from the group listing the check.
	def, err := r.Lookup("secretscan")
	require.NoError(t, err)
	assert.Equal(t, "security", def.Group)

	ruff, err := r.Lookup("ruff")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, ruff.Timeout)
	require.NotNil(t, ruff.Cache)
	assert.Equal(t, "uv", ruff.Cache.Tool)
}

func TestLoad_CheckWithoutGroup(t *testing.T) {
	cfg := &config.Config{
		Checks: []config.CheckConfig{
			{ID: "orphan", Command: []string{"true"}, Paths: []string{"**"}},
		},
	}

	_, err := Load(cfg)
	assert.ErrorIs(t, err, config.ErrConfig)
}
