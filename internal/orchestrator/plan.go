package orchestrator

import (
	"fmt"

	"github.com/fyrsmithlabs/checkgate/internal/changeset"
	"github.com/fyrsmithlabs/checkgate/internal/config"
	"github.com/fyrsmithlabs/checkgate/internal/registry"
)

// PlannedCheck is one check selected (or skipped) for this run.
type PlannedCheck struct {
	Def registry.CheckDefinition

	// Files are the in-scope paths matching the check's patterns.
	Files []string

	// Skip marks checks that are planned but will not run. The reason
	// is surfaced verbatim in the report.
	Skip       bool
	SkipReason string
}

// PlannedGroup holds a group's checks in plan order.
type PlannedGroup struct {
	Name   string
	Checks []PlannedCheck
}

// Plan is the ordered execution plan for one run. Built once,
// read-only during execution.
type Plan struct {
	Groups  []PlannedGroup
	Changes *changeset.ChangeSet
}

// Total returns the number of planned checks, skipped ones included.
func (p *Plan) Total() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Checks)
	}
	return n
}

// Runnable returns the number of checks that will actually run.
func (p *Plan) Runnable() int {
	n := 0
	for _, g := range p.Groups {
		for _, c := range g.Checks {
			if !c.Skip {
				n++
			}
		}
	}
	return n
}

// buildPlan selects checks for the given change scope. Groups and the
// checks within them keep configuration order, so identical inputs
// always produce an identical plan.
func buildPlan(cfg *config.Config, reg *registry.Registry, changes *changeset.ChangeSet) (*Plan, error) {
	plan := &Plan{Changes: changes}

	// Checks already planned as runnable, for skip_with exclusion.
	runnable := make(map[string]bool)

	for _, grp := range cfg.Groups {
		disabled := make(map[string]bool, len(grp.Skip))
		for _, id := range grp.Skip {
			disabled[id] = true
		}

		pg := PlannedGroup{Name: grp.Name}
		for _, id := range grp.Checks {
			def, err := reg.Lookup(id)
			if err != nil {
				return nil, fmt.Errorf("planning group %q: %w", grp.Name, err)
			}

			pc := PlannedCheck{Def: def}
			switch {
			case disabled[id]:
				pc.Skip = true
				pc.SkipReason = "disabled by group skip-list"
			case !changes.Applicable(def.Paths):
				pc.Skip = true
				pc.SkipReason = "no changed files match"
			default:
				// A full scan makes every check applicable, but a check
				// whose patterns match nothing in the tree would run with
				// an empty {files} expansion and lint the whole working
				// directory instead.
				files := changes.FilesMatching(def.Paths)
				if len(files) == 0 {
					pc.Skip = true
					pc.SkipReason = "no tracked files match"
					break
				}
				if other := excludedBy(def, runnable); other != "" {
					pc.Skip = true
					pc.SkipReason = fmt.Sprintf("mutually exclusive with %s", other)
					break
				}
				pc.Files = files
				runnable[id] = true
			}
			pg.Checks = append(pg.Checks, pc)
		}
		plan.Groups = append(plan.Groups, pg)
	}

	return plan, nil
}

// excludedBy returns the id of an already-runnable check that def is
// mutually exclusive with, or "".
func excludedBy(def registry.CheckDefinition, runnable map[string]bool) string {
	for _, other := range def.SkipWith {
		if runnable[other] {
			return other
		}
	}
	return ""
}
