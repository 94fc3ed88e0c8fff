// Package gate aggregates check results into a single decision.
//
// The aggregator is a small state machine: Pending until the first
// result arrives, Collecting while results stream in (in any order),
// and Decided once every planned check has reported. The decision rule
// is strict and commutative: Fail iff any result is Failed or Errored;
// Skipped results never influence the outcome.
package gate

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/checkgate/internal/runner"
)

// State of the aggregator.
type State string

const (
	StatePending    State = "pending"
	StateCollecting State = "collecting"
	StateDecided    State = "decided"
)

// Outcome is the terminal gate signal.
type Outcome string

const (
	OutcomePass Outcome = "pass"
	OutcomeFail Outcome = "fail"
)

// Errors for aggregator misuse.
var (
	ErrDecided    = errors.New("gate already decided")
	ErrIncomplete = errors.New("not all planned checks have reported")
	ErrAborted    = errors.New("run aborted")
)

// Decision is the terminal output of a run. Produced exactly once.
type Decision struct {
	Outcome Outcome              `json:"outcome"`
	Results []runner.CheckResult `json:"results"`

	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Errored int `json:"errored"`
}

// Blocking reports whether the decision blocks the change.
func (d *Decision) Blocking() bool {
	return d.Outcome == OutcomeFail
}

// Aggregator collects results for one orchestration run.
type Aggregator struct {
	mu      sync.Mutex
	state   State
	planned int
	results []runner.CheckResult
}

// NewAggregator creates an aggregator expecting the given number of
// planned results.
func NewAggregator(planned int) *Aggregator {
	return &Aggregator{
		state:   StatePending,
		planned: planned,
		results: make([]runner.CheckResult, 0, planned),
	}
}

// State returns the current aggregator state.
func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Add records one result. Results may arrive in any order. Adding after
// the decision fails with ErrDecided.
func (a *Aggregator) Add(res runner.CheckResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StateDecided {
		return fmt.Errorf("%w: dropping result for %s", ErrDecided, res.CheckID)
	}
	if len(a.results) >= a.planned {
		return fmt.Errorf("unexpected result for %s: all %d planned checks already reported", res.CheckID, a.planned)
	}

	a.state = StateCollecting
	a.results = append(a.results, res)
	return nil
}

// Decide produces the gate decision. It fails with ErrIncomplete until
// every planned check has reported and with ErrDecided when called twice.
func (a *Aggregator) Decide() (*Decision, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StateDecided {
		return nil, ErrDecided
	}
	if len(a.results) < a.planned {
		return nil, fmt.Errorf("%w: %d of %d", ErrIncomplete, len(a.results), a.planned)
	}

	a.state = StateDecided

	dec := &Decision{
		Outcome: OutcomePass,
		Results: append([]runner.CheckResult(nil), a.results...),
	}
	for _, res := range a.results {
		switch res.Status {
		case runner.StatusPassed:
			dec.Passed++
		case runner.StatusFailed:
			dec.Failed++
			dec.Outcome = OutcomeFail
		case runner.StatusErrored:
			dec.Errored++
			dec.Outcome = OutcomeFail
		case runner.StatusSkipped:
			dec.Skipped++
		}
	}
	return dec, nil
}

// Abort discards all collected results and seals the aggregator without
// publishing a decision. Used when a run is superseded or canceled.
func (a *Aggregator) Abort() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = StateDecided
	a.results = nil
}
