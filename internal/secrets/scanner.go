// Package secrets runs the builtin secret scan over in-scope files
// using the Gitleaks SDK, so the gate can scan for leaked credentials
// without requiring a scanner binary on PATH.
package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// maxFileSize caps how much of a single file is scanned.
const maxFileSize = 4 * 1024 * 1024

// Finding is one detected secret.
type Finding struct {
	File     string // path relative to the repo root
	RuleID   string // Gitleaks rule id (e.g. "github-pat")
	RuleDesc string // human-readable description
	Line     int    // line number where the secret was found
	Secret   string // the matched value
}

// Scanner scans file contents with the default Gitleaks ruleset
// (800+ patterns).
type Scanner struct {
	detector *detect.Detector
}

// NewScanner builds a scanner with the default Gitleaks config.
func NewScanner() (*Scanner, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("creating gitleaks detector: %w", err)
	}
	return &Scanner{detector: detector}, nil
}

// ScanFiles scans the given paths (relative to root) and returns all
// findings. Paths that no longer exist are skipped: a changed-file set
// legitimately includes deletions. Cancellation is checked between
// files so a large full scan stays responsive to timeouts.
func (s *Scanner) ScanFiles(ctx context.Context, root string, paths []string) ([]Finding, error) {
	var findings []Finding

	for _, rel := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		full := filepath.Join(root, rel)
		info, err := os.Stat(full)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", rel, err)
		}
		if info.IsDir() || info.Size() > maxFileSize {
			continue
		}

		content, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rel, err)
		}

		for _, f := range s.detector.DetectString(string(content)) {
			findings = append(findings, Finding{
				File:     rel,
				RuleID:   f.RuleID,
				RuleDesc: f.Description,
				Line:     f.StartLine,
				Secret:   f.Secret,
			})
		}
	}

	return findings, nil
}
