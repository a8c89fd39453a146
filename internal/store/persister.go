package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// drainTimeout bounds the final flush performed at shutdown.
const drainTimeout = 5 * time.Second

// Persister writes portfolio snapshots behind the caller's back: order
// execution enqueues and moves on, and a background loop performs the
// actual store writes. Per session only the newest snapshot (by Seq) is
// kept pending, so a save triggered by trade N can never be overtaken and
// overwritten by a stale save queued before it. Failed saves stay pending
// and are retried on the next mutation and on a periodic flush tick; a
// persistence failure never rolls back committed in-memory state.
type Persister struct {
	store         SnapshotStore
	logger        *slog.Logger
	flushInterval time.Duration

	mu      sync.Mutex
	pending map[string]*PortfolioSnapshot
	notify  chan struct{}
	done    chan struct{}
}

// NewPersister creates a Persister flushing on demand and every
// flushInterval.
func NewPersister(store SnapshotStore, flushInterval time.Duration, logger *slog.Logger) *Persister {
	return &Persister{
		store:         store,
		logger:        logger,
		flushInterval: flushInterval,
		pending:       make(map[string]*PortfolioSnapshot),
		notify:        make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
}

// Enqueue schedules a snapshot for persistence and returns immediately.
// A pending older snapshot for the same session is superseded.
func (p *Persister) Enqueue(snap *PortfolioSnapshot) {
	p.mu.Lock()
	cur, ok := p.pending[snap.SessionID]
	if !ok || snap.Seq >= cur.Seq {
		p.pending[snap.SessionID] = snap
	}
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Start launches the background flush loop. It stops when ctx is
// cancelled, after one final drain so the latest state is not silently
// lost at shutdown.
func (p *Persister) Start(ctx context.Context) {
	go func() {
		defer close(p.done)

		ticker := time.NewTicker(p.flushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				dctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
				p.Flush(dctx)
				cancel()
				return
			case <-p.notify:
				p.Flush(ctx)
			case <-ticker.C:
				p.Flush(ctx)
			}
		}
	}()
}

// Flush writes all pending snapshots. Saves that fail are re-queued unless
// a newer snapshot for the session arrived in the meantime.
func (p *Persister) Flush(ctx context.Context) {
	p.mu.Lock()
	batch := p.pending
	p.pending = make(map[string]*PortfolioSnapshot)
	p.mu.Unlock()

	for id, snap := range batch {
		if err := p.store.Save(ctx, snap); err != nil {
			p.logger.Warn("portfolio persist failed, will retry",
				slog.String("session_id", id),
				slog.Uint64("seq", snap.Seq),
				slog.String("error", err.Error()),
			)
			p.mu.Lock()
			if cur, ok := p.pending[id]; !ok || snap.Seq > cur.Seq {
				p.pending[id] = snap
			}
			p.mu.Unlock()
		}
	}
}

// Wait blocks until the loop started by Start has performed its final
// drain and exited. All flushing happens on that single goroutine, which
// keeps per-session saves ordered by Seq.
func (p *Persister) Wait() {
	<-p.done
}

// PendingCount returns the number of sessions with unsaved snapshots.
func (p *Persister) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
