// Package memory is an in-process PlasmidStore used by tests and by
// throwaway runs that need no durability.
package memory

import (
	"context"
	"sort"
	"sync"

	"plasmap/pkg/domain"
)

var _ domain.PlasmidStore = (*Store)(nil)

// Store keeps plasmids in a map guarded by a mutex. The mutex makes
// InsertPlasmidIfAbsent atomic.
type Store struct {
	mu       sync.RWMutex
	plasmids map[domain.Key]domain.Plasmid
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{plasmids: make(map[domain.Key]domain.Plasmid)}
}

// FindPlasmid looks up key.
func (s *Store) FindPlasmid(_ context.Context, key domain.Key) (domain.Plasmid, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plasmids[key]
	if !ok {
		return domain.Plasmid{}, false, nil
	}
	return p.Clone(), true, nil
}

// CreatePlasmid stores p or fails with domain.ErrDuplicateKey.
func (s *Store) CreatePlasmid(_ context.Context, p domain.Plasmid) (domain.Plasmid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plasmids[p.Key()]; ok {
		return domain.Plasmid{}, domain.DuplicateKeyError{Key: p.Key()}
	}
	s.plasmids[p.Key()] = p.Clone()
	return p.Clone(), nil
}

// InsertPlasmidIfAbsent stores p unless its key is taken.
func (s *Store) InsertPlasmidIfAbsent(_ context.Context, p domain.Plasmid) (domain.Plasmid, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.plasmids[p.Key()]; ok {
		return existing.Clone(), false, nil
	}
	s.plasmids[p.Key()] = p.Clone()
	return p.Clone(), true, nil
}

// ListPlasmids returns plasmids ordered by namespace then name.
func (s *Store) ListPlasmids(_ context.Context, namespace string) ([]domain.Plasmid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Plasmid, 0, len(s.plasmids))
	for k, p := range s.plasmids {
		if namespace == "" || k.Namespace == namespace {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Namespace != out[j].Namespace {
			return out[i].Namespace < out[j].Namespace
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// DeletePlasmids removes the plasmids of namespace, or all of them when
// namespace is empty.
func (s *Store) DeletePlasmids(_ context.Context, namespace string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.plasmids {
		if namespace == "" || k.Namespace == namespace {
			delete(s.plasmids, k)
			n++
		}
	}
	return n, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
