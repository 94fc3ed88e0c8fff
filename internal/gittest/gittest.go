// Package gittest builds throwaway git repositories for tests.
package gittest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repo is a real repository rooted in a temp directory.
type Repo struct {
	Dir  string
	Repo *gogit.Repository

	t  *testing.T
	wt *gogit.Worktree
}

// Init creates an empty repository under t.TempDir().
func Init(t *testing.T) *Repo {
	t.Helper()

	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	return &Repo{Dir: dir, Repo: repo, t: t, wt: wt}
}

// Commit writes the given files, stages them, and commits. Returns the
// commit hash.
func (r *Repo) Commit(msg string, files map[string]string) plumbing.Hash {
	r.t.Helper()

	for name, content := range files {
		full := filepath.Join(r.Dir, name)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			r.t.Fatalf("mkdir for %s: %v", name, err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			r.t.Fatalf("write %s: %v", name, err)
		}
		if _, err := r.wt.Add(name); err != nil {
			r.t.Fatalf("add %s: %v", name, err)
		}
	}

	hash, err := r.wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "checkgate test",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		r.t.Fatalf("commit: %v", err)
	}
	return hash
}

// Remove deletes a file, stages the deletion, and commits.
func (r *Repo) Remove(msg, name string) plumbing.Hash {
	r.t.Helper()

	if _, err := r.wt.Remove(name); err != nil {
		r.t.Fatalf("remove %s: %v", name, err)
	}
	hash, err := r.wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "checkgate test",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		r.t.Fatalf("commit: %v", err)
	}
	return hash
}

// SetRemoteRef creates refs/remotes/origin/<name> pointing at hash, to
// exercise remote-reference fallback without a network.
func (r *Repo) SetRemoteRef(name string, hash plumbing.Hash) {
	r.t.Helper()

	ref := plumbing.NewHashReference(plumbing.NewRemoteReferenceName("origin", name), hash)
	if err := r.Repo.Storer.SetReference(ref); err != nil {
		r.t.Fatalf("set remote ref %s: %v", name, err)
	}
}
