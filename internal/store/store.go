// Package store holds the in-process candle series shared by every
// subscriber session. Mutation is serialized per (symbol, interval) key so
// unrelated instruments never contend on the same lock.
package store

import (
	"sync"
	"time"

	"github.com/serted/cryptocluster/internal/domain"
)

type key struct {
	symbol   string
	interval string
}

// Series is the ordered candle sequence for one key, with a bucket index for
// O(1) find-or-create. It must only be touched from inside
// CandleStore.Update, which holds the key's lock.
type Series struct {
	candles []domain.Candle
	index   map[int64]int
}

// Len returns the number of candles in the series.
func (s *Series) Len() int { return len(s.candles) }

// Find returns a pointer to the candle for the given bucket, if present.
// The pointer is only valid while the key's lock is held.
func (s *Series) Find(bucket int64) (*domain.Candle, bool) {
	i, ok := s.index[bucket]
	if !ok {
		return nil, false
	}
	return &s.candles[i], true
}

// Append adds a candle for a new bucket. Buckets are expected to arrive in
// non-decreasing time order; an existing bucket is overwritten in place.
func (s *Series) Append(c domain.Candle) {
	if s.index == nil {
		s.index = make(map[int64]int)
	}
	if i, ok := s.index[c.Time]; ok {
		s.candles[i] = c
		return
	}
	s.index[c.Time] = len(s.candles)
	s.candles = append(s.candles, c)
}

func (s *Series) replace(candles []domain.Candle) {
	s.candles = candles
	s.index = make(map[int64]int, len(candles))
	for i, c := range candles {
		s.index[c.Time] = i
	}
}

func (s *Series) snapshot() []domain.Candle {
	out := make([]domain.Candle, len(s.candles))
	copy(out, s.candles)
	return out
}

type entry struct {
	mu          sync.Mutex
	series      Series
	lastRefresh time.Time
}

// CandleStore maps (symbol, interval) to a candle series with a per-key
// refresh timestamp. It is safe for concurrent use; each key carries its own
// lock.
type CandleStore struct {
	mu      sync.RWMutex
	entries map[key]*entry

	now func() time.Time
}

// New creates an empty CandleStore.
func New() *CandleStore {
	return &CandleStore{
		entries: make(map[key]*entry),
		now:     time.Now,
	}
}

func (cs *CandleStore) entry(symbol, interval string) *entry {
	k := key{symbol: symbol, interval: interval}

	cs.mu.RLock()
	e, ok := cs.entries[k]
	cs.mu.RUnlock()
	if ok {
		return e
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if e, ok := cs.entries[k]; ok {
		return e
	}
	e = &entry{}
	cs.entries[k] = e
	return e
}

// Update runs fn against the key's series under its lock. All candle
// mutation goes through here.
func (cs *CandleStore) Update(symbol, interval string, fn func(*Series)) {
	e := cs.entry(symbol, interval)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.series)
}

// Snapshot returns a copy of the key's candle sequence, empty if unknown.
func (cs *CandleStore) Snapshot(symbol, interval string) []domain.Candle {
	e := cs.entry(symbol, interval)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.series.snapshot()
}

// Replace swaps in a freshly loaded candle sequence and touches the key's
// refresh timestamp.
func (cs *CandleStore) Replace(symbol, interval string, candles []domain.Candle) {
	e := cs.entry(symbol, interval)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.series.replace(candles)
	e.lastRefresh = cs.now()
}

// LastRefresh returns when the key was last backfilled, along with whether
// the key currently holds any candles. The staleness gate in the historical
// loader keys off both.
func (cs *CandleStore) LastRefresh(symbol, interval string) (time.Time, bool) {
	e := cs.entry(symbol, interval)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRefresh, e.series.Len() > 0
}

// Touch updates the key's refresh timestamp without changing its candles.
func (cs *CandleStore) Touch(symbol, interval string) {
	e := cs.entry(symbol, interval)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastRefresh = cs.now()
}
