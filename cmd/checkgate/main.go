// Package main implements the checkgate CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// flags shared across subcommands
	configPath string
	repoPath   string
	baseRev    string
	headRev    string

	// version information
	version = "dev"
)

// errGateFailed distinguishes a failing gate (exit 1) from operational
// errors (exit 2).
var errGateFailed = errors.New("gate failed")

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errGateFailed) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}

var rootCmd = &cobra.Command{
	Use:   "checkgate",
	Short: "Incremental quality-gate orchestrator",
	Long: `checkgate selects which checks apply to a changed-file set, runs them
with isolation and caching, and renders a single gate decision.

The process exit code mirrors the decision: 0 when the gate passes,
1 when it fails, 2 on configuration or repository errors.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "checkgate.yaml", "path to the gate configuration file")
	rootCmd.PersistentFlags().StringVar(&repoPath, "repo", "", "repository root (defaults to config repo_path)")
	rootCmd.PersistentFlags().StringVar(&baseRev, "base", "", "base revision (defaults to config base)")
	rootCmd.PersistentFlags().StringVar(&headRev, "head", "", "head revision (defaults to config head)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(checksCmd)
}
