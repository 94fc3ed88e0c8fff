package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/checkgate/internal/changeset"
	"github.com/fyrsmithlabs/checkgate/internal/config"
	"github.com/fyrsmithlabs/checkgate/internal/registry"
)

func planConfig() *config.Config {
	return &config.Config{
		Groups: []config.GroupConfig{
			{Name: "backend-lint", Checks: []string{"ruff", "mypy"}},
			{Name: "docs", Checks: []string{"mdlint"}},
		},
		Checks: []config.CheckConfig{
			{ID: "ruff", Command: []string{"ruff", "check", "{files}"}, Paths: []string{"**/*.py"}},
			{ID: "mypy", Command: []string{"mypy", "{files}"}, Paths: []string{"**/*.py"}},
			{ID: "mdlint", Command: []string{"mdlint", "{files}"}, Paths: []string{"*.md"}},
		},
	}
}

func mustRegistry(t *testing.T, cfg *config.Config) *registry.Registry {
	t.Helper()
	reg, err := registry.Load(cfg)
	require.NoError(t, err)
	return reg
}

func findCheck(t *testing.T, plan *Plan, id string) PlannedCheck {
	t.Helper()
	for _, g := range plan.Groups {
		for _, c := range g.Checks {
			if c.Def.ID == id {
				return c
			}
		}
	}
	t.Fatalf("check %s not in plan", id)
	return PlannedCheck{}
}

func TestBuildPlan_SelectsByChangedFiles(t *testing.T) {
	cfg := planConfig()
	reg := mustRegistry(t, cfg)
	changes := &changeset.ChangeSet{
		Mode:  changeset.ModeDiff,
		Paths: []string{"app/main.py", "README.md"},
	}

	plan, err := buildPlan(cfg, reg, changes)
	require.NoError(t, err)

	assert.Equal(t, 3, plan.Total())
	assert.Equal(t, 3, plan.Runnable())

	ruff := findCheck(t, plan, "ruff")
	assert.False(t, ruff.Skip)
	assert.Equal(t, []string{"app/main.py"}, ruff.Files)

	mdlint := findCheck(t, plan, "mdlint")
	assert.False(t, mdlint.Skip)
	assert.Equal(t, []string{"README.md"}, mdlint.Files)
}

func TestBuildPlan_SkipsUnmatchedChecks(t *testing.T) {
	cfg := planConfig()
	reg := mustRegistry(t, cfg)
	changes := &changeset.ChangeSet{
		Mode:  changeset.ModeDiff,
		Paths: []string{"README.md"},
	}

	plan, err := buildPlan(cfg, reg, changes)
	require.NoError(t, err)

	assert.Equal(t, 3, plan.Total())
	assert.Equal(t, 1, plan.Runnable())

	ruff := findCheck(t, plan, "ruff")
	assert.True(t, ruff.Skip)
	assert.Equal(t, "no changed files match", ruff.SkipReason)
}

func TestBuildPlan_FullScanRunsEverything(t *testing.T) {
	cfg := planConfig()
	reg := mustRegistry(t, cfg)
	changes := &changeset.ChangeSet{
		Mode:  changeset.ModeFullScan,
		Paths: []string{"app/main.py", "README.md", "Makefile"},
	}

	plan, err := buildPlan(cfg, reg, changes)
	require.NoError(t, err)
	assert.Equal(t, 3, plan.Runnable())
}

func TestBuildPlan_FullScanSkipsZeroMatchChecks(t *testing.T) {
	cfg := planConfig()
	cfg.Checks = append(cfg.Checks, config.CheckConfig{
		ID: "golint", Command: []string{"golangci-lint", "run", "{files}"}, Paths: []string{"**/*.go"},
	})
	cfg.Groups = append(cfg.Groups, config.GroupConfig{Name: "go", Checks: []string{"golint"}})
	reg := mustRegistry(t, cfg)
	changes := &changeset.ChangeSet{
		Mode:  changeset.ModeFullScan,
		Paths: []string{"app/main.py", "README.md"},
	}

	plan, err := buildPlan(cfg, reg, changes)
	require.NoError(t, err)

	// No .go file in the tree: running golint would expand {files} to
	// nothing and scan the whole working directory.
	golint := findCheck(t, plan, "golint")
	assert.True(t, golint.Skip)
	assert.Equal(t, "no tracked files match", golint.SkipReason)

	ruff := findCheck(t, plan, "ruff")
	assert.False(t, ruff.Skip)
	assert.Equal(t, []string{"app/main.py"}, ruff.Files)
}

func TestBuildPlan_GroupSkipList(t *testing.T) {
	cfg := planConfig()
	cfg.Groups[0].Skip = []string{"mypy"}
	reg := mustRegistry(t, cfg)
	changes := &changeset.ChangeSet{
		Mode:  changeset.ModeDiff,
		Paths: []string{"app/main.py"},
	}

	plan, err := buildPlan(cfg, reg, changes)
	require.NoError(t, err)

	mypy := findCheck(t, plan, "mypy")
	assert.True(t, mypy.Skip)
	assert.Equal(t, "disabled by group skip-list", mypy.SkipReason)

	ruff := findCheck(t, plan, "ruff")
	assert.False(t, ruff.Skip)
}

func TestBuildPlan_SkipWith(t *testing.T) {
	cfg := planConfig()
	cfg.Checks[1].SkipWith = []string{"ruff"}
	reg := mustRegistry(t, cfg)
	changes := &changeset.ChangeSet{
		Mode:  changeset.ModeDiff,
		Paths: []string{"app/main.py"},
	}

	plan, err := buildPlan(cfg, reg, changes)
	require.NoError(t, err)

	// ruff plans first and wins; mypy yields.
	assert.False(t, findCheck(t, plan, "ruff").Skip)
	mypy := findCheck(t, plan, "mypy")
	assert.True(t, mypy.Skip)
	assert.Equal(t, "mutually exclusive with ruff", mypy.SkipReason)
}

func TestBuildPlan_SkipWithInactivePartner(t *testing.T) {
	cfg := planConfig()
	cfg.Checks[1].SkipWith = []string{"ruff"}
	cfg.Groups[0].Skip = []string{"ruff"}
	reg := mustRegistry(t, cfg)
	changes := &changeset.ChangeSet{
		Mode:  changeset.ModeDiff,
		Paths: []string{"app/main.py"},
	}

	plan, err := buildPlan(cfg, reg, changes)
	require.NoError(t, err)

	// The partner never became runnable, so mypy runs.
	assert.False(t, findCheck(t, plan, "mypy").Skip)
}

func TestBuildPlan_Deterministic(t *testing.T) {
	cfg := planConfig()
	reg := mustRegistry(t, cfg)
	changes := &changeset.ChangeSet{
		Mode:  changeset.ModeDiff,
		Paths: []string{"app/main.py", "README.md"},
	}

	first, err := buildPlan(cfg, reg, changes)
	require.NoError(t, err)
	second, err := buildPlan(cfg, reg, changes)
	require.NoError(t, err)

	require.Equal(t, len(first.Groups), len(second.Groups))
	for i := range first.Groups {
		assert.Equal(t, first.Groups[i].Name, second.Groups[i].Name)
		require.Equal(t, len(first.Groups[i].Checks), len(second.Groups[i].Checks))
		for j := range first.Groups[i].Checks {
			assert.Equal(t, first.Groups[i].Checks[j].Def.ID, second.Groups[i].Checks[j].Def.ID)
			assert.Equal(t, first.Groups[i].Checks[j].Skip, second.Groups[i].Checks[j].Skip)
		}
	}
}
