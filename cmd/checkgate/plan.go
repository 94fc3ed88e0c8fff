package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/checkgate/internal/changeset"
	"github.com/fyrsmithlabs/checkgate/internal/metrics"
	"github.com/fyrsmithlabs/checkgate/internal/orchestrator"
	"github.com/fyrsmithlabs/checkgate/internal/registry"
	"github.com/fyrsmithlabs/checkgate/internal/runner"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the execution plan without running anything",
	Long: `Plan computes the changed-file set and prints which checks would run,
which would be skipped, and why.`,
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	reg, err := registry.Load(cfg)
	if err != nil {
		return err
	}

	sel, err := changeset.NewSelector(cfg.RepoPath, log)
	if err != nil {
		return err
	}

	run := runner.New(cfg.RepoPath, nil, cfg.DefaultTimeout.Duration(), log, metrics.New())
	orch := orchestrator.New(cfg, reg, sel, run, log, nil)

	plan, err := orch.BuildPlan()
	if err != nil {
		return err
	}

	fmt.Printf("Scope: %s (%s..%s), %d file(s)\n\n",
		plan.Changes.Mode, plan.Changes.Base, plan.Changes.Head, len(plan.Changes.Paths))

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Group", "Check", "Action", "Files", "Reason"})

	for i, pg := range plan.Groups {
		if i > 0 {
			t.AppendSeparator()
		}
		for _, pc := range pg.Checks {
			action := "run"
			reason := ""
			files := len(pc.Files)
			if pc.Skip {
				action = "skip"
				reason = pc.SkipReason
			}
			t.AppendRow(table.Row{pg.Name, pc.Def.ID, action, files, reason})
		}
	}
	t.Render()

	return nil
}
