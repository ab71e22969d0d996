// Package store persists trusted states so a light client survives
// restarts without re-establishing trust from a weak-subjectivity point
// every time. It mirrors the upstream tendermint/lite split between a fast
// in-memory tier and a durable backing tier, combined by a multiStore that
// serves reads from memory when it can, falls back to the durable tier on a
// miss, and writes through to both.
package store

import (
	"fmt"
	"sync"

	"github.com/tmlite/tmlite/lite/types"
)

// Store persists and retrieves trusted states keyed by height.
type Store interface {
	// SaveTrustedState persists ts, making it retrievable by its header's
	// height and (if greater) the new latest trusted state.
	SaveTrustedState(ts types.TrustedState) error
	// TrustedStateAt returns the trusted state at exactly height, or an
	// errNoSuchHeight error if none is stored at that height.
	TrustedStateAt(height types.Height) (types.TrustedState, error)
	// LatestTrustedState returns the highest-height trusted state saved so
	// far, or the zero value with no error if the store is empty.
	LatestTrustedState() (types.TrustedState, error)
	// SetLimit bounds the number of trusted states retained, discarding the
	// oldest beyond the most recent n once exceeded. n <= 0 means unbounded.
	SetLimit(n int)
}

// memStore is a simple map-backed Store, safe for concurrent use. It is
// also the in-memory tier multiStore layers in front of a durable Store.
type memStore struct {
	mu      sync.RWMutex
	states  map[types.Height]types.TrustedState
	order   []types.Height // ascending insertion order, for SetLimit eviction
	latest  types.Height
	limit   int
}

// NewMemStore constructs an empty in-memory Store.
func NewMemStore() Store {
	return &memStore{states: make(map[types.Height]types.TrustedState)}
}

func (s *memStore) SaveTrustedState(ts types.TrustedState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := ts.Header.Height
	if _, exists := s.states[h]; !exists {
		s.order = append(s.order, h)
	}
	s.states[h] = ts
	if h > s.latest {
		s.latest = h
	}
	s.evictLocked()
	return nil
}

func (s *memStore) evictLocked() {
	if s.limit <= 0 {
		return
	}
	for len(s.order) > s.limit {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.states, oldest)
	}
}

func (s *memStore) TrustedStateAt(height types.Height) (types.TrustedState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts, ok := s.states[height]
	if !ok {
		return types.TrustedState{}, errNoSuchHeight(height)
	}
	return ts, nil
}

func (s *memStore) LatestTrustedState() (types.TrustedState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return types.TrustedState{}, nil
	}
	return s.states[s.latest], nil
}

func (s *memStore) SetLimit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limit = n
	s.evictLocked()
}

type errHeightNotFound struct {
	height types.Height
}

func (e errHeightNotFound) Error() string {
	return fmt.Sprintf("no trusted state stored at height %d", e.height)
}

func errNoSuchHeight(h types.Height) error {
	return errHeightNotFound{h}
}

// multiStore layers a fast cache in front of a durable backing store: every
// read is served from cache, falling back to the backing store and
// populating the cache on a miss; every write goes to both.
type multiStore struct {
	cache   Store
	backing Store
}

// NewMultiStore combines cache (typically a memStore) with backing
// (typically a db-backed Store) the way the teacher's MultiProvider
// chains a fast provider in front of a persistent one.
func NewMultiStore(cache, backing Store) Store {
	return &multiStore{cache: cache, backing: backing}
}

func (m *multiStore) SaveTrustedState(ts types.TrustedState) error {
	if err := m.backing.SaveTrustedState(ts); err != nil {
		return err
	}
	return m.cache.SaveTrustedState(ts)
}

func (m *multiStore) TrustedStateAt(height types.Height) (types.TrustedState, error) {
	if ts, err := m.cache.TrustedStateAt(height); err == nil {
		return ts, nil
	}
	ts, err := m.backing.TrustedStateAt(height)
	if err != nil {
		return types.TrustedState{}, err
	}
	_ = m.cache.SaveTrustedState(ts)
	return ts, nil
}

func (m *multiStore) LatestTrustedState() (types.TrustedState, error) {
	ts, err := m.cache.LatestTrustedState()
	if err == nil && ts.Header.Height != 0 {
		return ts, nil
	}
	return m.backing.LatestTrustedState()
}

func (m *multiStore) SetLimit(n int) {
	m.cache.SetLimit(n)
	m.backing.SetLimit(n)
}
