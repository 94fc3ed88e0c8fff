package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fyrsmithlabs/checkgate/internal/registry"
	"github.com/fyrsmithlabs/checkgate/internal/secrets"
)

// Builtin checks run in-process instead of spawning a subprocess.
// Currently only "builtin:gitleaks" exists: the secret scan the gate
// ships with so no scanner binary is required on PATH.

var (
	scannerOnce sync.Once
	scanner     *secrets.Scanner
	scannerErr  error
)

// runBuiltin dispatches an in-process check under the same timeout
// contract as subprocess checks.
func (r *Runner) runBuiltin(ctx context.Context, def registry.CheckDefinition, files []string, res *CheckResult) {
	timeout := def.Timeout
	if timeout == 0 {
		timeout = r.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch def.BuiltinName() {
	case "gitleaks":
		r.runSecretScan(ctx, files, res)
	default:
		res.Status = StatusErrored
		res.Detail = fmt.Sprintf("unknown builtin check %q", def.BuiltinName())
	}

	if ctx.Err() == context.DeadlineExceeded {
		res.Status = StatusErrored
		res.TimedOut = true
		res.Detail = fmt.Sprintf("timed out after %s", timeout)
	}
}

func (r *Runner) runSecretScan(ctx context.Context, files []string, res *CheckResult) {
	scannerOnce.Do(func() {
		scanner, scannerErr = secrets.NewScanner()
	})
	if scannerErr != nil {
		res.Status = StatusErrored
		res.Detail = scannerErr.Error()
		return
	}

	findings, err := scanner.ScanFiles(ctx, r.workDir, files)
	if err != nil {
		res.Status = StatusErrored
		res.Detail = err.Error()
		return
	}

	if len(findings) == 0 {
		res.Status = StatusPassed
		return
	}

	var out strings.Builder
	for _, f := range findings {
		fmt.Fprintf(&out, "%s:%d: %s (%s)\n", f.File, f.Line, f.RuleDesc, f.RuleID)
	}
	res.Status = StatusFailed
	res.ExitCode = 1
	res.Output = out.String()
	res.Detail = fmt.Sprintf("%d potential secret(s) detected", len(findings))
}
