package runner

import (
	"time"

	"github.com/fyrsmithlabs/checkgate/internal/registry"
)

// Status classifies the outcome of one check.
type Status string

const (
	// StatusPassed means the check ran and exited zero.
	StatusPassed Status = "passed"

	// StatusFailed means the check ran and exited nonzero.
	StatusFailed Status = "failed"

	// StatusSkipped means the check was not applicable to this run.
	// Skipped never influences the gate decision.
	StatusSkipped Status = "skipped"

	// StatusErrored means the check could not run to completion:
	// missing binary, setup failure, or timeout. Counts as a gate
	// failure, distinct from StatusFailed.
	StatusErrored Status = "errored"
)

// CheckResult is the immutable outcome of one check in one run.
type CheckResult struct {
	CheckID   string        `json:"check_id"`
	Group     string        `json:"group"`
	Status    Status        `json:"status"`
	ExitCode  int           `json:"exit_code"`
	Output    string        `json:"output,omitempty"`
	Detail    string        `json:"detail,omitempty"`
	TimedOut  bool          `json:"timed_out,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Skipped builds the result for a check that was planned but not run.
func Skipped(def registry.CheckDefinition, reason string) CheckResult {
	return CheckResult{
		CheckID:   def.ID,
		Group:     def.Group,
		Status:    StatusSkipped,
		Detail:    reason,
		StartedAt: time.Now().UTC(),
	}
}
