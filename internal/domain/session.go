package domain

import (
	"sync"
	"time"
)

// Session is one independent paper-trading session. Sessions share nothing:
// each owns its ledger, its slice of the trade log, and its persistence key.
//
// Wallet is an optional external wallet-address label attached at creation.
// Its presence has no effect on ledger or execution rules.
type Session struct {
	ID        string
	Wallet    string
	CreatedAt time.Time
	Ledger    *Ledger
	Seq       uint64     // monotonic mutation counter, guarded by Mu
	Mu        sync.Mutex // serializes all ledger mutation for this session
}

// NewSession creates a session with a fresh ledger.
func NewSession(id, wallet string, startingCash float64) *Session {
	return &Session{
		ID:        id,
		Wallet:    wallet,
		CreatedAt: time.Now().UTC(),
		Ledger:    NewLedger(startingCash),
	}
}
