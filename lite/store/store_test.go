package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tmlite/tmlite/lite/types"
)

func TestMemStore_SaveAndRetrieve(t *testing.T) {
	s := NewMemStore()
	ts10 := types.TrustedState{Header: types.Header{Height: 10}}
	ts20 := types.TrustedState{Header: types.Header{Height: 20}}

	require.NoError(t, s.SaveTrustedState(ts10))
	require.NoError(t, s.SaveTrustedState(ts20))

	got, err := s.TrustedStateAt(10)
	require.NoError(t, err)
	require.Equal(t, types.Height(10), got.Header.Height)

	latest, err := s.LatestTrustedState()
	require.NoError(t, err)
	require.Equal(t, types.Height(20), latest.Header.Height)

	_, err = s.TrustedStateAt(999)
	require.Error(t, err)
}

func TestMemStore_SetLimitEvictsOldest(t *testing.T) {
	s := NewMemStore()
	for h := types.Height(1); h <= 5; h++ {
		require.NoError(t, s.SaveTrustedState(types.TrustedState{Header: types.Header{Height: h}}))
	}
	s.SetLimit(2)

	_, err := s.TrustedStateAt(1)
	require.Error(t, err, "height 1 should have been evicted")
	_, err = s.TrustedStateAt(4)
	require.NoError(t, err)
	_, err = s.TrustedStateAt(5)
	require.NoError(t, err)
}

// fakeBacking is a minimal Store used to verify multiStore's cache-then-
// backing fallback and write-through behavior without a real database.
type fakeBacking struct {
	Store
	reads int
}

func newFakeBacking() *fakeBacking {
	return &fakeBacking{Store: NewMemStore()}
}

func (f *fakeBacking) TrustedStateAt(h types.Height) (types.TrustedState, error) {
	f.reads++
	return f.Store.TrustedStateAt(h)
}

func TestMultiStore_WritesThroughReadsFromCache(t *testing.T) {
	cache := NewMemStore()
	backing := newFakeBacking()
	m := NewMultiStore(cache, backing)

	ts := types.TrustedState{Header: types.Header{Height: 42}}
	require.NoError(t, m.SaveTrustedState(ts))

	got, err := m.TrustedStateAt(42)
	require.NoError(t, err)
	require.Equal(t, types.Height(42), got.Header.Height)
	require.Equal(t, 0, backing.reads, "a cache hit should never touch the backing store")

	// Direct cache population check: looking up a height only ever saved to
	// backing should fall back and then populate the cache.
	require.NoError(t, backing.Store.SaveTrustedState(types.TrustedState{Header: types.Header{Height: 7}}))
	got, err = m.TrustedStateAt(7)
	require.NoError(t, err)
	require.Equal(t, types.Height(7), got.Header.Height)
	require.Equal(t, 1, backing.reads)

	got, err = m.TrustedStateAt(7)
	require.NoError(t, err)
	require.Equal(t, types.Height(7), got.Header.Height)
	require.Equal(t, 1, backing.reads, "second lookup should be served from cache")
}
