package store

import (
	"context"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
)

// PortfolioSnapshot is the single durable record kept per session: the
// complete ledger state plus the trade log, stamped with the monotonic
// mutation sequence it corresponds to. Seq lets stores and the persister
// refuse to overwrite a newer record with a stale one.
type PortfolioSnapshot struct {
	SessionID    string                    `json:"session_id"`
	Wallet       string                    `json:"wallet,omitempty"`
	CreatedAt    time.Time                 `json:"created_at"`
	StartingCash float64                   `json:"starting_cash"`
	CashBalance  float64                   `json:"cash_balance"`
	Holdings     map[string]domain.Holding `json:"holdings"`
	Trades       []*domain.Trade           `json:"trades"`
	Seq          uint64                    `json:"seq"`
	LastUpdated  time.Time                 `json:"last_updated"`
}

// SnapshotStore persists one PortfolioSnapshot per session under a fixed
// per-session key. Load returns domain.ErrSnapshotNotFound for sessions
// that were never saved.
type SnapshotStore interface {
	Save(ctx context.Context, snap *PortfolioSnapshot) error
	Load(ctx context.Context, sessionID string) (*PortfolioSnapshot, error)
	List(ctx context.Context) ([]*PortfolioSnapshot, error)
	Delete(ctx context.Context, sessionID string) error
	Close() error
}
