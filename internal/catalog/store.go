package catalog

import (
	"sync/atomic"
)

// Store holds the current catalog snapshot. Readers never block; Reload
// swaps the snapshot only when the new file loads cleanly.
type Store struct {
	path     string
	snapshot atomic.Value // Catalog
}

// NewStore loads path and returns a store serving it.
func NewStore(path string) (*Store, error) {
	apps, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path}
	s.snapshot.Store(apps)
	return s, nil
}

// NewStaticStore serves a fixed catalog. Reload is a no-op.
func NewStaticStore(apps Catalog) *Store {
	s := &Store{}
	s.snapshot.Store(apps)
	return s
}

// Apps returns the current snapshot. Callers must not modify it.
func (s *Store) Apps() Catalog {
	if apps, ok := s.snapshot.Load().(Catalog); ok {
		return apps
	}
	return Catalog{}
}

// Reload re-reads the backing file. On error the previous snapshot stays.
func (s *Store) Reload() (Catalog, error) {
	if s.path == "" {
		return s.Apps(), nil
	}
	apps, err := LoadFile(s.path)
	if err != nil {
		return nil, err
	}
	s.snapshot.Store(apps)
	return apps, nil
}

// Path returns the file the store was loaded from.
func (s *Store) Path() string {
	return s.path
}
