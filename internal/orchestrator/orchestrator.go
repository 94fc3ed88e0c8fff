// Package orchestrator drives a gate run end to end: compute the change
// scope, build the execution plan, dispatch checks with bounded
// concurrency, and aggregate results into the gate decision.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/checkgate/internal/changeset"
	"github.com/fyrsmithlabs/checkgate/internal/config"
	"github.com/fyrsmithlabs/checkgate/internal/gate"
	"github.com/fyrsmithlabs/checkgate/internal/logging"
	"github.com/fyrsmithlabs/checkgate/internal/metrics"
	"github.com/fyrsmithlabs/checkgate/internal/registry"
	"github.com/fyrsmithlabs/checkgate/internal/runner"
)

// Orchestrator is the top-level driver for gate runs.
type Orchestrator struct {
	cfg     *config.Config
	reg     *registry.Registry
	sel     *changeset.Selector
	run     *runner.Runner
	log     *logging.Logger
	metrics *metrics.Metrics
}

// Result is the complete outcome of one orchestration run.
type Result struct {
	RunID    string
	Plan     *Plan
	Decision *gate.Decision
	Duration time.Duration
}

// New wires an orchestrator. The metrics handle may be nil.
func New(cfg *config.Config, reg *registry.Registry, sel *changeset.Selector, run *runner.Runner, log *logging.Logger, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		reg:     reg,
		sel:     sel,
		run:     run,
		log:     log.Named("orchestrator"),
		metrics: m,
	}
}

// BuildPlan computes the change scope and the execution plan without
// running anything.
func (o *Orchestrator) BuildPlan() (*Plan, error) {
	changes, err := o.sel.Compute(o.cfg.Base, o.cfg.Head)
	if err != nil {
		return nil, err
	}
	return buildPlan(o.cfg, o.reg, changes)
}

// Execute runs the full gate. Every planned check runs to completion
// even when an early one fails, so the report is always complete. When
// ctx is canceled, in-flight subprocesses are terminated, collected
// results are discarded, and no decision is published.
func (o *Orchestrator) Execute(ctx context.Context) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()

	plan, err := o.BuildPlan()
	if err != nil {
		return nil, err
	}

	o.log.Info("starting gate run",
		zap.String("run_id", runID),
		zap.String("mode", string(plan.Changes.Mode)),
		zap.Int("changed_files", len(plan.Changes.Paths)),
		zap.Int("planned", plan.Total()),
		zap.Int("runnable", plan.Runnable()))

	agg := gate.NewAggregator(plan.Total())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)

	for _, pg := range plan.Groups {
		for _, pc := range pg.Checks {
			if pc.Skip {
				if err := agg.Add(runner.Skipped(pc.Def, pc.SkipReason)); err != nil {
					return nil, err
				}
				continue
			}

			pc := pc
			g.Go(func() error {
				res := o.run.Run(gctx, pc.Def, pc.Files)
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return agg.Add(res)
			})
		}
	}

	if err := g.Wait(); err != nil {
		agg.Abort()
		return nil, fmt.Errorf("gate run %s aborted: %w", runID, err)
	}
	if err := ctx.Err(); err != nil {
		agg.Abort()
		return nil, fmt.Errorf("gate run %s aborted: %w", runID, err)
	}

	dec, err := agg.Decide()
	if err != nil {
		return nil, err
	}

	duration := time.Since(start)
	if o.metrics != nil {
		o.metrics.GateDecisionsTotal.WithLabelValues(string(dec.Outcome)).Inc()
		o.metrics.RunDuration.Observe(duration.Seconds())
	}

	o.log.Info("gate decided",
		zap.String("run_id", runID),
		zap.String("outcome", string(dec.Outcome)),
		zap.Int("passed", dec.Passed),
		zap.Int("failed", dec.Failed),
		zap.Int("errored", dec.Errored),
		zap.Int("skipped", dec.Skipped),
		zap.Duration("duration", duration))

	return &Result{
		RunID:    runID,
		Plan:     plan,
		Decision: dec,
		Duration: duration,
	}, nil
}
