// Package changeset computes the changed-file scope for a gate run and
// decides which checks apply to it.
package changeset

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/checkgate/internal/logging"
	"github.com/fyrsmithlabs/checkgate/pkg/git"
)

// Mode is the scope mode of a change set.
type Mode string

const (
	// ModeDiff means the scope is the tree diff between base and head.
	ModeDiff Mode = "diff"

	// ModeFullScan means the base was unresolvable and the scope is
	// every tracked file at head. The gate is never silently skipped
	// when history is unavailable (shallow clones, force-pushes).
	ModeFullScan Mode = "full-scan"
)

// ChangeSet is the set of paths in scope for one run.
// Computed once per orchestration run and immutable afterward.
type ChangeSet struct {
	Mode  Mode
	Base  string
	Head  string
	Paths []string
}

// Selector computes change sets from a repository.
type Selector struct {
	repo *git.Repo
	log  *logging.Logger
}

// NewSelector opens the repository at repoPath.
func NewSelector(repoPath string, log *logging.Logger) (*Selector, error) {
	repo, err := git.Open(repoPath)
	if err != nil {
		return nil, err
	}
	return &Selector{repo: repo, log: log.Named("changeset")}, nil
}

// Compute resolves base and head and returns the change scope.
//
// Head must resolve; there is nothing to gate without it. A base that
// resolves neither locally nor under origin/ switches the run to
// ModeFullScan with a warning, never an error.
func (s *Selector) Compute(base, head string) (*ChangeSet, error) {
	headHash, ok := s.repo.Resolve(head)
	if !ok {
		return nil, fmt.Errorf("cannot resolve head revision %q", head)
	}

	baseHash, ok := s.repo.Resolve(base)
	if !ok {
		s.log.Warn("base revision unresolvable, scanning all tracked files",
			zap.String("base", base))
		paths, err := s.repo.TrackedFiles(headHash)
		if err != nil {
			return nil, fmt.Errorf("listing tracked files: %w", err)
		}
		return &ChangeSet{Mode: ModeFullScan, Base: base, Head: head, Paths: paths}, nil
	}

	paths, err := s.repo.DiffPaths(baseHash, headHash)
	if err != nil {
		return nil, fmt.Errorf("computing diff %s..%s: %w", base, head, err)
	}

	s.log.Debug("computed change scope",
		zap.String("base", base),
		zap.String("head", head),
		zap.Int("changed_files", len(paths)))

	return &ChangeSet{Mode: ModeDiff, Base: base, Head: head, Paths: paths}, nil
}

// Applicable reports whether a check with the given path patterns applies
// to this change set. In full-scan mode every check applies.
func (c *ChangeSet) Applicable(patterns []string) bool {
	if c.Mode == ModeFullScan {
		return true
	}
	for _, p := range c.Paths {
		if matchesAny(p, patterns) {
			return true
		}
	}
	return false
}

// FilesMatching returns the in-scope paths matching the given patterns,
// in change-set order. Used to expand {files} in command templates.
func (c *ChangeSet) FilesMatching(patterns []string) []string {
	var out []string
	for _, p := range c.Paths {
		if matchesAny(p, patterns) {
			out = append(out, p)
		}
	}
	return out
}

// matchesAny matches a path against doublestar patterns. Patterns without
// a slash also match against the basename, so "*.py" applies anywhere in
// the tree.
func matchesAny(filePath string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, filePath); err == nil && ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, err := doublestar.Match(pattern, path.Base(filePath)); err == nil && ok {
				return true
			}
		}
	}
	return false
}
