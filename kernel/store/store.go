// Package store implements the RAM store of §4.9: a single Unit value,
// rooted at an empty Map when created, changed through Save (a merge at a
// path) or SetRoot (which accepts any Unit), with a size protocol.
package store

import (
	"sync"

	"vnix/kernel/kernerr"
	"vnix/kernel/unit"
)

// Store wraps the single shared Unit tree behind a mutex (§5 "Shared
// resources"): handlers may call it reentrantly from inside a dispatched
// computation without racing the scheduler's own driving thread.
type Store struct {
	mu   sync.Mutex
	root unit.Unit
}

// New returns a Store rooted at an empty Map.
func New() *Store {
	return &Store{root: unit.Map{}}
}

// Load returns find(path, root), or StoreLoadFailed if nothing is there.
func (s *Store) Load(path unit.Ref) (unit.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := unit.FindRef(path, s.root)
	if !ok {
		return nil, kernerr.StoreLoadFailed(kernerr.New(kernerr.KindStoreLoadFailed, "no value at "+path.String()))
	}
	return v, nil
}

// Save replaces root with merge_ref(path, value, root).
func (s *Store) Save(path unit.Ref, value unit.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.root = unit.MergeRef([]string(path), value, s.root)
	return nil
}

// Size walks the store and sums per-variant byte contributions.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return unit.Size(s.root)
}

// Root returns the current root Unit, for snapshotting.
func (s *Store) Root() unit.Unit {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.root
}

// SetRoot replaces the entire root, used when loading a persisted snapshot.
func (s *Store) SetRoot(root unit.Unit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.root = root
}
