// Package report renders the per-check breakdown of a gate run, as a
// console table for humans and as a JSON document for machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/fyrsmithlabs/checkgate/internal/gate"
	"github.com/fyrsmithlabs/checkgate/internal/orchestrator"
	"github.com/fyrsmithlabs/checkgate/internal/runner"
)

// Document is the machine-readable report artifact.
type Document struct {
	RunID       string        `json:"run_id"`
	Mode        string        `json:"mode"`
	Base        string        `json:"base"`
	Head        string        `json:"head"`
	Outcome     gate.Outcome  `json:"outcome"`
	Groups      []GroupReport `json:"groups"`
	Duration    string        `json:"duration"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// GroupReport is one group's section of the report.
type GroupReport struct {
	Name   string               `json:"name"`
	Status runner.Status        `json:"status"`
	Checks []runner.CheckResult `json:"checks"`
}

// Build assembles the report document from a run result, preserving
// plan order.
func Build(res *orchestrator.Result) *Document {
	byID := make(map[string]runner.CheckResult, len(res.Decision.Results))
	for _, r := range res.Decision.Results {
		byID[r.CheckID] = r
	}

	doc := &Document{
		RunID:       res.RunID,
		Mode:        string(res.Plan.Changes.Mode),
		Base:        res.Plan.Changes.Base,
		Head:        res.Plan.Changes.Head,
		Outcome:     res.Decision.Outcome,
		Duration:    res.Duration.Round(time.Millisecond).String(),
		GeneratedAt: time.Now().UTC(),
	}

	for _, pg := range res.Plan.Groups {
		gr := GroupReport{Name: pg.Name}
		for _, pc := range pg.Checks {
			if r, ok := byID[pc.Def.ID]; ok {
				gr.Checks = append(gr.Checks, r)
			}
		}
		gr.Status = groupStatus(gr.Checks)
		doc.Groups = append(doc.Groups, gr)
	}

	return doc
}

// groupStatus folds check statuses into a group status. A group with
// zero applicable checks is Skipped, never Failed.
func groupStatus(checks []runner.CheckResult) runner.Status {
	status := runner.StatusSkipped
	for _, c := range checks {
		switch c.Status {
		case runner.StatusFailed, runner.StatusErrored:
			return runner.StatusFailed
		case runner.StatusPassed:
			status = runner.StatusPassed
		}
	}
	return status
}

// Write renders the human-readable report table.
func Write(w io.Writer, res *orchestrator.Result) {
	doc := Build(res)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Group", "Check", "Status", "Duration", "Detail"})

	for i, gr := range doc.Groups {
		if i > 0 {
			t.AppendSeparator()
		}
		if len(gr.Checks) == 0 {
			t.AppendRow(table.Row{gr.Name, "-", colorize(runner.StatusSkipped), "-", "no checks selected"})
			continue
		}
		for _, c := range gr.Checks {
			t.AppendRow(table.Row{
				gr.Name,
				c.CheckID,
				colorize(c.Status),
				c.Duration.Round(time.Millisecond),
				c.Detail,
			})
		}
	}
	t.Render()

	fmt.Fprintf(w, "\nGate: %s (%d passed, %d failed, %d errored, %d skipped) in %s\n",
		strings.ToUpper(string(doc.Outcome)),
		res.Decision.Passed, res.Decision.Failed, res.Decision.Errored, res.Decision.Skipped,
		doc.Duration)

	// Replay raw output of blocking checks so the failing tool is easy
	// to locate without re-running anything.
	for _, gr := range doc.Groups {
		for _, c := range gr.Checks {
			if (c.Status == runner.StatusFailed || c.Status == runner.StatusErrored) && c.Output != "" {
				fmt.Fprintf(w, "\n--- %s ---\n%s", c.CheckID, c.Output)
				if !strings.HasSuffix(c.Output, "\n") {
					fmt.Fprintln(w)
				}
			}
		}
	}
}

// WriteJSON writes the machine-readable artifact.
func WriteJSON(w io.Writer, res *orchestrator.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Build(res))
}

func colorize(s runner.Status) string {
	switch s {
	case runner.StatusPassed:
		return text.FgGreen.Sprint(s)
	case runner.StatusFailed, runner.StatusErrored:
		return text.FgRed.Sprint(s)
	default:
		return text.FgYellow.Sprint(s)
	}
}
