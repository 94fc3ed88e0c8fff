// Package runner executes checks as isolated subprocesses and
// classifies their outcomes.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/checkgate/internal/cache"
	"github.com/fyrsmithlabs/checkgate/internal/logging"
	"github.com/fyrsmithlabs/checkgate/internal/metrics"
	"github.com/fyrsmithlabs/checkgate/internal/registry"
)

// Runner executes one check at a time. Safe for concurrent use.
type Runner struct {
	workDir        string
	cache          *cache.Store
	defaultTimeout time.Duration
	log            *logging.Logger
	metrics        *metrics.Metrics
}

// New creates a runner rooted at workDir. cacheStore may be nil when no
// check declares a cached environment.
func New(workDir string, cacheStore *cache.Store, defaultTimeout time.Duration, log *logging.Logger, m *metrics.Metrics) *Runner {
	return &Runner{
		workDir:        workDir,
		cache:          cacheStore,
		defaultTimeout: defaultTimeout,
		log:            log.Named("runner"),
		metrics:        m,
	}
}

// Run executes the check against the given in-scope files and returns
// its result. All failure modes are folded into the result; Run itself
// never returns an error.
func (r *Runner) Run(ctx context.Context, def registry.CheckDefinition, files []string) CheckResult {
	start := time.Now()
	res := CheckResult{
		CheckID:   def.ID,
		Group:     def.Group,
		StartedAt: start.UTC(),
	}

	if err := r.ensureEnvironment(ctx, def); err != nil {
		// A failed environment build surfaces on the dependent check
		// as an execution error; other cache keys are unaffected.
		res.Status = StatusErrored
		res.Detail = err.Error()
		res.Duration = time.Since(start)
		r.observe(res)
		return res
	}

	if def.IsBuiltin() {
		r.runBuiltin(ctx, def, files, &res)
	} else {
		r.runCommand(ctx, def, files, &res)
	}

	res.Duration = time.Since(start)
	r.observe(res)

	r.log.Debug("check finished",
		zap.String("check", def.ID),
		zap.String("status", string(res.Status)),
		zap.Duration("duration", res.Duration))

	return res
}

// ensureEnvironment builds the check's cached environment if declared.
func (r *Runner) ensureEnvironment(ctx context.Context, def registry.CheckDefinition) error {
	if def.Cache == nil {
		return nil
	}
	if r.cache == nil {
		return fmt.Errorf("check %s declares a cached environment but no cache store is configured", def.ID)
	}

	key, err := cache.Key(r.workDir, def.Cache.Tool, def.Cache.Inputs)
	if err != nil {
		return err
	}

	setup := def.Cache.Setup
	_, err = r.cache.GetOrBuild(ctx, key, def.Cache.Tool, func(ctx context.Context, dir string) error {
		cmd := exec.CommandContext(ctx, setup[0], setup[1:]...)
		cmd.Dir = r.workDir
		var buf bytes.Buffer
		cmd.Stdout = &buf
		cmd.Stderr = &buf
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("%v: %s", err, strings.TrimSpace(buf.String()))
		}
		return nil
	})
	return err
}

// runCommand spawns the check's command and classifies the outcome:
// exit 0 => Passed, nonzero => Failed, failure to start or timeout =>
// Errored.
func (r *Runner) runCommand(ctx context.Context, def registry.CheckDefinition, files []string, res *CheckResult) {
	timeout := def.Timeout
	if timeout == 0 {
		timeout = r.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := expandArgs(def.Command, files, r.workDir)
	if len(argv) == 0 {
		res.Status = StatusErrored
		res.Detail = "command expanded to an empty argv"
		return
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.workDir
	if def.Dir != "" {
		cmd.Dir = filepath.Join(r.workDir, def.Dir)
	}
	if len(def.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range def.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	res.Output = buf.String()

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		res.Status = StatusErrored
		res.TimedOut = true
		res.Detail = fmt.Sprintf("timed out after %s", timeout)
	case err == nil:
		res.Status = StatusPassed
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.Status = StatusFailed
			res.ExitCode = exitErr.ExitCode()
		} else {
			// The subprocess never started: missing binary, bad
			// permissions, or the run context was canceled.
			res.Status = StatusErrored
			res.Detail = err.Error()
		}
	}
}

// expandArgs resolves template placeholders in the command argv.
// A standalone "{files}" argument expands to the in-scope file list
// (and disappears when the list is empty); "{dir}" expands to the
// repository root.
func expandArgs(command, files []string, workDir string) []string {
	argv := make([]string, 0, len(command)+len(files))
	for _, arg := range command {
		switch arg {
		case "{files}":
			argv = append(argv, files...)
		case "{dir}":
			argv = append(argv, workDir)
		default:
			argv = append(argv, strings.ReplaceAll(arg, "{dir}", workDir))
		}
	}
	return argv
}

func (r *Runner) observe(res CheckResult) {
	if r.metrics == nil {
		return
	}
	r.metrics.ChecksTotal.WithLabelValues(res.Group, string(res.Status)).Inc()
	r.metrics.CheckDuration.WithLabelValues(res.CheckID).Observe(res.Duration.Seconds())
}
