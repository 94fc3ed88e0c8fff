// Package cache stores reusable environment artifacts keyed by the
// content of the inputs that define them.
//
// Keys are pure functions of the tool identity plus the content of its
// lock/config files, so a run with identical inputs always hits the same
// entry and a lockfile edit rolls the key over to a fresh build.
// Concurrent GetOrBuild calls for the same key coalesce into a single
// builder invocation; distinct keys never block on each other.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fyrsmithlabs/checkgate/internal/logging"
	"github.com/fyrsmithlabs/checkgate/internal/metrics"
)

// ErrBuild marks a failed builder invocation. Failed builds are never
// stored, so the key stays buildable and unrelated keys are unaffected.
var ErrBuild = errors.New("cache build failed")

// Entry records a built artifact.
type Entry struct {
	Key       string    `json:"key"`
	Tool      string    `json:"tool"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// BuilderFunc builds an environment artifact into dir.
type BuilderFunc func(ctx context.Context, dir string) error

// Store is the on-disk artifact cache.
type Store struct {
	dir     string
	log     *logging.Logger
	metrics *metrics.Metrics

	sf singleflight.Group

	mu      sync.Mutex
	entries map[string]*Entry
}

type manifest struct {
	Version int               `json:"version"`
	Entries map[string]*Entry `json:"entries"`
}

// NewStore opens (or creates) the cache rooted at dir.
func NewStore(dir string, log *logging.Logger, m *metrics.Metrics) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	s := &Store{
		dir:     dir,
		log:     log.Named("cache"),
		metrics: m,
		entries: make(map[string]*Entry),
	}
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading cache manifest: %w", err)
	}
	return s, nil
}

// GetOrBuild returns the artifact for key, invoking builder only on a
// miss. On a hit the builder is never called. A builder failure is
// reported as ErrBuild and nothing is stored.
func (s *Store) GetOrBuild(ctx context.Context, key string, tool string, builder BuilderFunc) (*Entry, error) {
	if entry := s.lookup(key); entry != nil {
		if s.metrics != nil {
			s.metrics.CacheHitsTotal.Inc()
		}
		return entry, nil
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		// A concurrent caller may have completed the build while this
		// one waited on the singleflight slot.
		if entry := s.lookup(key); entry != nil {
			return entry, nil
		}
		return s.build(ctx, key, tool, builder)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

// Dir returns the cache root.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) lookup(key string) *Entry {
	s.mu.Lock()
	entry, ok := s.entries[key]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	// The manifest can outlive a manually deleted artifact dir.
	if _, err := os.Stat(entry.Path); err != nil {
		return nil
	}
	return entry
}

func (s *Store) build(ctx context.Context, key, tool string, builder BuilderFunc) (*Entry, error) {
	if s.metrics != nil {
		s.metrics.CacheMissesTotal.Inc()
	}

	artifactDir := filepath.Join(s.dir, key)
	tmpDir := artifactDir + ".tmp"
	if err := os.RemoveAll(tmpDir); err != nil {
		return nil, fmt.Errorf("%w: clearing staging dir: %v", ErrBuild, err)
	}
	if err := os.MkdirAll(tmpDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: creating staging dir: %v", ErrBuild, err)
	}

	s.log.Debug("building cache entry", zap.String("key", key), zap.String("tool", tool))

	if err := builder(ctx, tmpDir); err != nil {
		os.RemoveAll(tmpDir)
		if s.metrics != nil {
			s.metrics.CacheBuildsFailed.Inc()
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrBuild, tool, err)
	}

	// An orphaned artifact dir (manifest lost or never written) would
	// make the rename fail forever; clear it so the key stays buildable.
	if err := os.RemoveAll(artifactDir); err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("%w: clearing stale artifact: %v", ErrBuild, err)
	}
	if err := os.Rename(tmpDir, artifactDir); err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("%w: publishing artifact: %v", ErrBuild, err)
	}

	entry := &Entry{
		Key:       key,
		Tool:      tool,
		Path:      artifactDir,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.entries[key] = entry
	err := s.save()
	s.mu.Unlock()
	if err != nil {
		// The artifact is already published and usable; a manifest write
		// failure only costs persistence across restarts.
		s.log.Warn("saving cache manifest", zap.Error(err))
	}

	return entry, nil
}

// load reads the manifest from disk. Caller holds no lock (startup only).
func (s *Store) load() error {
	data, err := os.ReadFile(filepath.Join(s.dir, "manifest.json"))
	if err != nil {
		return err
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("manifest corrupted: %w", err)
	}
	if m.Entries == nil {
		m.Entries = make(map[string]*Entry)
	}
	s.entries = m.Entries
	return nil
}

// save writes the manifest atomically. Caller holds s.mu.
func (s *Store) save() error {
	m := manifest{Version: 1, Entries: s.entries}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(s.dir, "manifest.json")
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
