package store

import (
	"encoding/binary"
	"fmt"

	amino "github.com/tendermint/go-amino"
	dbm "github.com/tendermint/tm-db"

	"github.com/tmlite/tmlite/lite/types"
)

var cdc = amino.NewCodec()

// dbStore is the durable tier: trusted states are amino-encoded and kept
// in a tm-db KV store (typically goleveldb), keyed by a big-endian height
// so an iterator over the keyspace visits states in height order -- the
// same encoding trick the teacher's providers/db package uses to make
// "delete everything before height N" a range scan instead of a full scan.
type dbStore struct {
	db    dbm.DB
	limit int
}

const dbKeyPrefix = "lite/trusted/"

// NewDBStore wraps db (e.g. a *goleveldb.GoLevelDB) as a durable Store.
func NewDBStore(db dbm.DB) Store {
	return &dbStore{db: db}
}

func dbKey(h types.Height) []byte {
	b := make([]byte, len(dbKeyPrefix)+8)
	copy(b, dbKeyPrefix)
	binary.BigEndian.PutUint64(b[len(dbKeyPrefix):], uint64(h))
	return b
}

const latestKey = dbKeyPrefix + "latest"

func (s *dbStore) SaveTrustedState(ts types.TrustedState) error {
	bz, err := cdc.MarshalBinaryLengthPrefixed(ts)
	if err != nil {
		return fmt.Errorf("encoding trusted state: %w", err)
	}
	if err := s.db.Set(dbKey(ts.Header.Height), bz); err != nil {
		return err
	}
	latest, err := s.LatestTrustedState()
	if err == nil && ts.Header.Height >= latest.Header.Height {
		if err := s.db.Set([]byte(latestKey), dbKey(ts.Header.Height)); err != nil {
			return err
		}
	}
	s.evict()
	return nil
}

func (s *dbStore) TrustedStateAt(height types.Height) (types.TrustedState, error) {
	bz, err := s.db.Get(dbKey(height))
	if err != nil {
		return types.TrustedState{}, err
	}
	if bz == nil {
		return types.TrustedState{}, errNoSuchHeight(height)
	}
	var ts types.TrustedState
	if err := cdc.UnmarshalBinaryLengthPrefixed(bz, &ts); err != nil {
		return types.TrustedState{}, fmt.Errorf("decoding trusted state: %w", err)
	}
	return ts, nil
}

func (s *dbStore) LatestTrustedState() (types.TrustedState, error) {
	key, err := s.db.Get([]byte(latestKey))
	if err != nil {
		return types.TrustedState{}, err
	}
	if key == nil {
		return types.TrustedState{}, nil
	}
	bz, err := s.db.Get(key)
	if err != nil {
		return types.TrustedState{}, err
	}
	if bz == nil {
		return types.TrustedState{}, nil
	}
	var ts types.TrustedState
	if err := cdc.UnmarshalBinaryLengthPrefixed(bz, &ts); err != nil {
		return types.TrustedState{}, fmt.Errorf("decoding trusted state: %w", err)
	}
	return ts, nil
}

// SetLimit records the retention bound and evicts at once; every later Save
// evicts again, mirroring the teacher's deleteAfterN which also runs
// post-write rather than maintaining a live count.
func (s *dbStore) SetLimit(n int) {
	s.limit = n
	s.evict()
}

// evict deletes entries older than the most recent s.limit heights by
// scanning the keyspace in ascending order, same approach as the teacher's
// deleteAfterN helper in providers/db/db.go.
func (s *dbStore) evict() {
	if s.limit <= 0 {
		return
	}
	start := []byte(dbKeyPrefix)
	end := []byte(dbKeyPrefix + "\xff")
	iter, err := s.db.Iterator(start, end)
	if err != nil {
		return
	}
	defer iter.Close()

	var keys [][]byte
	for ; iter.Valid(); iter.Next() {
		if string(iter.Key()) == latestKey {
			// The latest-pointer key shares this prefix for locality but is
			// not itself a height entry; it must never be evicted.
			continue
		}
		k := make([]byte, len(iter.Key()))
		copy(k, iter.Key())
		keys = append(keys, k)
	}
	if len(keys) <= s.limit {
		return
	}
	for _, k := range keys[:len(keys)-s.limit] {
		_ = s.db.Delete(k)
	}
}
