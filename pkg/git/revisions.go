// Package git provides the revision-source boundary for checkgate.
//
// It wraps go-git with the small set of operations the change selector
// needs: resolving base/head references (locally, then under origin/),
// diffing commit trees, and enumerating tracked files for full scans.
package git

import (
	"errors"
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var (
	// ErrNotGitRepo indicates the directory is not a Git repository.
	ErrNotGitRepo = errors.New("not a git repository")
)

// Repo wraps an opened repository.
type Repo struct {
	repo *gogit.Repository
}

// Open opens the repository rooted at path.
func Open(path string) (*Repo, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotGitRepo, path)
		}
		return nil, fmt.Errorf("opening repository %s: %w", path, err)
	}
	return &Repo{repo: repo}, nil
}

// Resolve resolves a revision reference to a commit hash. It tries the
// reference as given first, then under origin/ when the reference is not
// already remote-qualified. The second return value is false when the
// reference cannot be resolved either way; that is not an error.
func (r *Repo) Resolve(rev string) (plumbing.Hash, bool) {
	if rev == "" {
		return plumbing.ZeroHash, false
	}

	if h, err := r.repo.ResolveRevision(plumbing.Revision(rev)); err == nil {
		return *h, true
	}

	if !strings.Contains(rev, "/") {
		if h, err := r.repo.ResolveRevision(plumbing.Revision("origin/" + rev)); err == nil {
			return *h, true
		}
	}

	return plumbing.ZeroHash, false
}

// DiffPaths returns the set of file paths that differ between the trees
// of the base and head commits. Renames contribute both sides.
func (r *Repo) DiffPaths(base, head plumbing.Hash) ([]string, error) {
	baseTree, err := r.treeAt(base)
	if err != nil {
		return nil, fmt.Errorf("base tree: %w", err)
	}
	headTree, err := r.treeAt(head)
	if err != nil {
		return nil, fmt.Errorf("head tree: %w", err)
	}

	changes, err := object.DiffTree(baseTree, headTree)
	if err != nil {
		return nil, fmt.Errorf("diffing trees: %w", err)
	}

	seen := make(map[string]bool)
	var paths []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			paths = append(paths, name)
		}
	}
	for _, change := range changes {
		add(change.From.Name)
		add(change.To.Name)
	}
	return paths, nil
}

// TrackedFiles lists every file in the tree of the given commit.
func (r *Repo) TrackedFiles(commit plumbing.Hash) ([]string, error) {
	tree, err := r.treeAt(commit)
	if err != nil {
		return nil, err
	}

	var paths []string
	iter := tree.Files()
	defer iter.Close()
	err = iter.ForEach(func(f *object.File) error {
		paths = append(paths, f.Name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking tree: %w", err)
	}
	return paths, nil
}

// Branch returns the current branch name, or "detached" when HEAD does
// not point at a branch.
func (r *Repo) Branch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return "detached", nil
}

func (r *Repo) treeAt(hash plumbing.Hash) (*object.Tree, error) {
	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("tree of %s: %w", hash, err)
	}
	return tree, nil
}
