// Package jsonfile implements the entity store: an authoritative in-memory
// collection for one entity kind, mirrored to a JSON array file on disk.
// Every write replaces the whole collection and persists it through a
// temp-file-then-rename sequence, so a reader of the canonical path never
// observes a partially written file.
package jsonfile

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"storecore/pkg/domain"
)

// Config describes how to open a store for one entity kind.
type Config[T any] struct {
	// Entity names the kind held by the store; used in logs and errors.
	Entity domain.EntityType
	// Path is the writable canonical file. Reads go here first.
	Path string
	// Seed is an optional bundled JSON array used when Path is absent.
	// A successful seed load is persisted to Path immediately so later
	// runs see the writable file first.
	Seed []byte
	// StrictLoad turns load failures into errors instead of an empty
	// collection plus a logged warning.
	StrictLoad bool
	// IDOf extracts the assigned identifier from an entity.
	IDOf func(T) int64
	// Clone returns a deep copy of an entity. Defaults to a shallow copy.
	Clone func(T) T

	Logger *zap.Logger
}

// Store holds the live collection for one entity kind. All access goes
// through Snapshot and Replace under a read/write lock; callers never observe
// the internal slice.
type Store[T any] struct {
	mu     sync.RWMutex
	items  []T
	nextID atomic.Int64

	entity domain.EntityType
	path   string
	idOf   func(T) int64
	clone  func(T) T
	logger *zap.Logger
}

// renameFile is swappable in tests to simulate a crash between the temp
// write and the rename.
var renameFile = os.Rename

// Open loads the collection from cfg.Path, falling back to cfg.Seed and then
// to an empty collection, and seeds the id allocator to max(id)+1.
func Open[T any](cfg Config[T]) (*Store[T], error) {
	if cfg.IDOf == nil {
		return nil, errors.New("jsonfile: Config.IDOf is required")
	}
	if cfg.Clone == nil {
		cfg.Clone = func(v T) T { return v }
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &Store[T]{
		entity: cfg.Entity,
		path:   cfg.Path,
		idOf:   cfg.IDOf,
		clone:  cfg.Clone,
		logger: cfg.Logger,
	}
	items, err := s.load(cfg.Seed)
	if err != nil {
		if cfg.StrictLoad {
			return nil, err
		}
		s.logger.Warn("entity store load failed, starting empty",
			zap.String("entity", string(cfg.Entity)),
			zap.String("path", cfg.Path),
			zap.Error(err))
		items = nil
	}
	s.items = items
	max := int64(0)
	for _, it := range items {
		if id := s.idOf(it); id > max {
			max = id
		}
	}
	s.nextID.Store(max + 1)
	s.logger.Info("entity store loaded",
		zap.String("entity", string(cfg.Entity)),
		zap.String("path", cfg.Path),
		zap.Int("count", len(items)),
		zap.Int64("next_id", max+1))
	return s, nil
}

func (s *Store[T]) load(seed []byte) ([]T, error) {
	raw, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, domain.PersistenceError{Op: "load", Path: s.path, Err: err}
		}
		return items, nil
	case errors.Is(err, fs.ErrNotExist):
		if seed == nil {
			return nil, nil
		}
		var items []T
		if err := json.Unmarshal(seed, &items); err != nil {
			return nil, domain.PersistenceError{Op: "seed", Path: s.path, Err: err}
		}
		// Persist the seed so subsequent runs read the writable path.
		if err := s.persist(items); err != nil {
			return nil, err
		}
		return items, nil
	default:
		return nil, domain.PersistenceError{Op: "load", Path: s.path, Err: err}
	}
}

// Snapshot returns a defensive copy of the current collection. Concurrent
// snapshots proceed in parallel; a snapshot never observes a write in
// progress.
func (s *Store[T]) Snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, s.clone(it))
	}
	return out
}

// Len returns the current collection size.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Replace swaps the in-memory collection for items and persists it
// atomically. The rename onto the canonical path is the atomicity boundary:
// a crash before it leaves the old file untouched, a crash after it leaves
// the new file fully written. On a persist failure the in-memory swap has
// already happened; the returned PersistenceError signals that memory and
// disk may disagree.
func (s *Store[T]) Replace(items []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceLocked(items)
}

// Update runs mutate against a mutable copy of the collection and replaces
// the store with its result, all under the exclusive lock, so concurrent
// Update calls never lose each other's changes. mutate must not retain the
// slice it receives.
func (s *Store[T]) Update(mutate func(items []T) []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := make([]T, 0, len(s.items))
	for _, it := range s.items {
		cur = append(cur, s.clone(it))
	}
	return s.replaceLocked(mutate(cur))
}

func (s *Store[T]) replaceLocked(items []T) error {
	next := make([]T, 0, len(items))
	for _, it := range items {
		next = append(next, s.clone(it))
	}
	s.items = next
	return s.persist(next)
}

func (s *Store[T]) persist(items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return domain.PersistenceError{Op: "encode", Path: s.path, Err: err}
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.PersistenceError{Op: "mkdir", Path: dir, Err: err}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return domain.PersistenceError{Op: "write", Path: s.path, Err: err}
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return domain.PersistenceError{Op: "write", Path: s.path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return domain.PersistenceError{Op: "sync", Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return domain.PersistenceError{Op: "close", Path: s.path, Err: err}
	}
	if err := renameFile(tmp.Name(), s.path); err != nil {
		return domain.PersistenceError{Op: "rename", Path: s.path, Err: err}
	}
	return nil
}

// NextID returns a strictly increasing identifier. No two calls, however
// concurrent, return the same value. The counter is seeded once at load and
// never reset while the process runs.
func (s *Store[T]) NextID() int64 {
	return s.nextID.Add(1) - 1
}
