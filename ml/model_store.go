package ml

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const defaultStoreSize = 4

// ModelStore hands out loaded model handles keyed by artifact path. Handles
// are evicted when their artifact file changes on disk, so the next Get
// returns the retrained model.
type ModelStore struct {
	cache   *lru.Cache[string, *Model]
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	load    func(path string) (*Model, error)

	mu      sync.Mutex
	watched map[string]bool

	// generations counts invalidations per key. A load that overlaps an
	// invalidation is not cached.
	genMu       sync.Mutex
	generations map[string]uint64
}

func NewModelStore(size int, logger *zap.Logger) (*ModelStore, error) {
	if size <= 0 {
		size = defaultStoreSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[string, *Model](size)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create artifact watcher: %w", err)
	}
	return &ModelStore{
		cache:       cache,
		watcher:     watcher,
		logger:      logger,
		load:        LoadModel,
		watched:     make(map[string]bool),
		generations: make(map[string]uint64),
	}, nil
}

// Get returns the model at path, loading it on first use.
func (s *ModelStore) Get(path string) (*Model, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, &SerializationError{Op: "load", Path: path, Err: err}
	}
	if m, ok := s.cache.Get(key); ok {
		return m, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.cache.Get(key); ok {
		return m, nil
	}

	s.watchDir(filepath.Dir(key))
	gen := s.generation(key)
	m, err := s.load(key)
	if err != nil {
		return nil, err
	}
	if s.generation(key) != gen {
		s.logger.Info("artifact changed while loading, not caching", zap.String("path", key))
		return m, nil
	}
	s.cache.Add(key, m)
	s.logger.Info("model loaded",
		zap.String("path", key),
		zap.String("type", m.Type),
		zap.Int("trees", m.TreeCount()),
		zap.Strings("features", m.Features))
	return m, nil
}

// Invalidate drops the cached handle for path.
func (s *ModelStore) Invalidate(path string) {
	key, err := filepath.Abs(path)
	if err != nil {
		return
	}
	s.genMu.Lock()
	s.generations[key]++
	s.genMu.Unlock()
	if s.cache.Remove(key) {
		s.logger.Info("model evicted", zap.String("path", key))
	}
}

// Len reports the number of cached handles.
func (s *ModelStore) Len() int {
	return s.cache.Len()
}

// Run evicts handles whose artifacts change until ctx is cancelled.
func (s *ModelStore) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				s.Invalidate(event.Name)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("artifact watcher error", zap.Error(err))
		}
	}
}

func (s *ModelStore) generation(key string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[key]
}

func (s *ModelStore) Close() error {
	s.cache.Purge()
	return s.watcher.Close()
}

// watchDir watches the artifact directory rather than the file, because
// SaveModel replaces the file by rename.
func (s *ModelStore) watchDir(dir string) {
	if s.watched[dir] {
		return
	}
	if err := s.watcher.Add(dir); err != nil {
		s.logger.Warn("cannot watch artifact directory", zap.String("dir", dir), zap.Error(err))
		return
	}
	s.watched[dir] = true
}
