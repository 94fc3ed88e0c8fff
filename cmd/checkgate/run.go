package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/checkgate/internal/cache"
	"github.com/fyrsmithlabs/checkgate/internal/changeset"
	"github.com/fyrsmithlabs/checkgate/internal/config"
	"github.com/fyrsmithlabs/checkgate/internal/logging"
	"github.com/fyrsmithlabs/checkgate/internal/metrics"
	"github.com/fyrsmithlabs/checkgate/internal/orchestrator"
	"github.com/fyrsmithlabs/checkgate/internal/registry"
	"github.com/fyrsmithlabs/checkgate/internal/report"
	"github.com/fyrsmithlabs/checkgate/internal/runner"
)

var reportJSONPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the gate and report the decision",
	Long: `Run computes the changed-file set between base and head, selects the
applicable checks, runs them, and prints the per-check report.

Examples:
  # Gate the current branch against origin/main
  checkgate run

  # Gate an explicit revision range and keep a JSON artifact
  checkgate run --base origin/main --head HEAD --report-json gate.json`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&reportJSONPath, "report-json", "", "also write the report as JSON to this path")
}

// runRun wires the engine and executes a full gate run.
func runRun(cmd *cobra.Command, args []string) error {
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

	m := metrics.New()

	var store *cache.Store
	if cfg.CacheDir != "" {
		store, err = cache.NewStore(expandHome(cfg.CacheDir), log, m)
		if err != nil {
			return err
		}
	}

	run := runner.New(cfg.RepoPath, store, cfg.DefaultTimeout.Duration(), log, m)
	orch := orchestrator.New(cfg, reg, sel, run, log, m)

	// A superseding run or operator interrupt cancels cooperatively:
	// in-flight subprocesses are terminated and no decision is published.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Listen != "" {
		srv := metrics.NewServer(log)
		go func() {
			if err := srv.Start(cfg.Metrics.Listen); err != nil {
				log.Error("metrics listener failed", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	res, err := orch.Execute(ctx)
	if err != nil {
		return err
	}

	report.Write(os.Stdout, res)

	if reportJSONPath != "" {
		f, err := os.Create(reportJSONPath)
		if err != nil {
			return fmt.Errorf("creating report artifact: %w", err)
		}
		defer f.Close()
		if err := report.WriteJSON(f, res); err != nil {
			return fmt.Errorf("writing report artifact: %w", err)
		}
	}

	if res.Decision.Blocking() {
		return errGateFailed
	}
	return nil
}

// loadConfigAndLogger loads the config, applies flag overrides, and
// builds the logger.
func loadConfigAndLogger() (*config.Config, *logging.Logger, error) {
	path := configPath
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			// The default config name is optional; an explicit one is not.
			if path != "checkgate.yaml" {
				return nil, nil, fmt.Errorf("config file %s: %w", path, err)
			}
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	if repoPath != "" {
		cfg.RepoPath = repoPath
	}
	if baseRev != "" {
		cfg.Base = baseRev
	}
	if headRev != "" {
		cfg.Head = headRev
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}

	return cfg, log, nil
}

// expandHome resolves a leading ~/ against the user's home directory.
func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return home + path[1:]
		}
	}
	return path
}
