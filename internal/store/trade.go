package store

import (
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/efreitasn/papertrade/internal/domain"
)

// btreeDegree matches the small working sets of per-session trade logs.
const btreeDegree = 2

// tradeLess orders trades by execution time, then by ID. Trade IDs are
// ULIDs, so ties within the same millisecond keep append order.
func tradeLess(a, b *domain.Trade) bool {
	if a.ExecutedAt.Equal(b.ExecutedAt) {
		return a.ID < b.ID
	}
	return a.ExecutedAt.Before(b.ExecutedAt)
}

// TradeStore is a thread-safe store of executed trades keyed by session.
// Logs are append-only: entries are never edited or removed one by one,
// and only a portfolio reset clears a session's log. Each log is indexed
// by execution time for ordered listing and since-filtered queries.
type TradeStore struct {
	mu   sync.RWMutex
	logs map[string]*btree.BTreeG[*domain.Trade]
}

// NewTradeStore creates an empty TradeStore.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		logs: make(map[string]*btree.BTreeG[*domain.Trade]),
	}
}

// Append adds an executed trade to the session's log.
func (s *TradeStore) Append(sessionID string, t *domain.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, ok := s.logs[sessionID]
	if !ok {
		log = btree.NewG(btreeDegree, tradeLess)
		s.logs[sessionID] = log
	}
	log.ReplaceOrInsert(t)
}

// BySession returns all trades for a session in chronological order.
// Returns an empty slice if the session has no trades.
func (s *TradeStore) BySession(sessionID string) []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.logs[sessionID]
	if !ok {
		return []*domain.Trade{}
	}
	out := make([]*domain.Trade, 0, log.Len())
	log.Ascend(func(t *domain.Trade) bool {
		out = append(out, t)
		return true
	})
	return out
}

// Since returns the session's trades executed at or after the given time,
// in chronological order.
func (s *TradeStore) Since(sessionID string, since time.Time) []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.logs[sessionID]
	if !ok {
		return []*domain.Trade{}
	}
	// The empty ID sorts before any ULID, making the bound inclusive.
	pivot := &domain.Trade{ExecutedAt: since}
	out := []*domain.Trade{}
	log.AscendGreaterOrEqual(pivot, func(t *domain.Trade) bool {
		out = append(out, t)
		return true
	})
	return out
}

// Count returns the number of trades logged for a session.
func (s *TradeStore) Count(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.logs[sessionID]
	if !ok {
		return 0
	}
	return log.Len()
}

// Clear removes all trades for a session. Used by portfolio reset only.
func (s *TradeStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, sessionID)
}

// Restore replaces a session's log with the given trades, used when
// loading persisted state at startup.
func (s *TradeStore) Restore(sessionID string, trades []*domain.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := btree.NewG(btreeDegree, tradeLess)
	for _, t := range trades {
		log.ReplaceOrInsert(t)
	}
	s.logs[sessionID] = log
}
