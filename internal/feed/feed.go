package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
)

// historyLimit bounds the per-symbol price history; the oldest point is
// evicted once full.
const historyLimit = 100

// State is the refresh state machine's current position. Transitions:
//
//	Idle     → Fetching                    (timer, retry timer, or kick)
//	Fetching → Idle                        (success; clears degraded)
//	Fetching → Backoff                     (failure below the retry ceiling)
//	Fetching → Degraded                    (failure at the ceiling; fallback published)
//	Backoff  → Fetching                    (retry timer fires)
//	Degraded → Fetching                    (regular interval keeps attempting)
type State int

const (
	StateIdle State = iota
	StateFetching
	StateBackoff
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateBackoff:
		return "backoff"
	case StateDegraded:
		return "degraded"
	}
	return "unknown"
}

// Status describes the feed's health for the market status endpoint.
// Degraded means fallback (non-live) quotes are being served after
// repeated fetch failures; it is a visible condition, not an error.
type Status struct {
	State               State
	Degraded            bool
	ConsecutiveFailures int
	LastSuccess         time.Time
	LastError           string
}

// Fetcher retrieves one batch quote snapshot for all tracked symbols.
type Fetcher interface {
	FetchTickers(ctx context.Context) ([]domain.Quote, error)
}

// Options configure the refresh loop and the backoff schedule.
type Options struct {
	Interval     time.Duration // regular refresh cadence (tens of seconds; respects source rate limits)
	BackoffBase  time.Duration // first retry delay; doubles per consecutive failure
	BackoffMax   time.Duration // clamp for the backoff delay
	RetryCeiling int           // consecutive failures before switching to fallback quotes
}

// Feed maintains the freshest obtainable quote for every tracked symbol.
// The snapshot is replaced atomically on success, so readers never observe
// a partially-updated set. Refreshes coalesce: at most one is in flight,
// and a refresh requested while one is pending is a no-op.
type Feed struct {
	fetcher Fetcher
	symbols *domain.SymbolRegistry
	opts    Options
	logger  *slog.Logger

	kick chan struct{}

	mu          sync.RWMutex
	state       State
	degraded    bool
	failures    int
	lastSuccess time.Time
	lastErr     error
	snapshot    domain.Snapshot
	history     map[string][]domain.PricePoint
}

// New creates a Feed. Call Start to drive it from the interval timer, or
// Refresh directly for manual control.
func New(fetcher Fetcher, symbols *domain.SymbolRegistry, opts Options, logger *slog.Logger) *Feed {
	return &Feed{
		fetcher:  fetcher,
		symbols:  symbols,
		opts:     opts,
		logger:   logger,
		kick:     make(chan struct{}, 1),
		snapshot: make(domain.Snapshot),
		history:  make(map[string][]domain.PricePoint),
	}
}

// Start launches the background refresh loop. It primes the snapshot
// immediately, then refreshes on the regular interval, on backoff retry
// timers, and on RequestRefresh kicks. The loop, and any pending retry
// timer, stop when ctx is cancelled; no refresh fires after teardown.
func (f *Feed) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(f.opts.Interval)
		defer ticker.Stop()

		var retry *time.Timer
		var retryC <-chan time.Time
		stopRetry := func() {
			if retry != nil {
				retry.Stop()
				retry = nil
				retryC = nil
			}
		}
		defer stopRetry()

		attempt := func() {
			stopRetry()
			if err := f.Refresh(ctx); err != nil {
				if d, ok := f.RetryDelay(); ok {
					retry = time.NewTimer(d)
					retryC = retry.C
				}
			}
		}

		attempt()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				attempt()
			case <-retryC:
				retry = nil
				retryC = nil
				attempt()
			case <-f.kick:
				attempt()
			}
		}
	}()
}

// RequestRefresh asks the running loop for an immediate refresh. It never
// blocks; a request made while one is already queued is coalesced.
func (f *Feed) RequestRefresh() {
	select {
	case f.kick <- struct{}{}:
	default:
	}
}

// Refresh performs one fetch attempt and advances the state machine. A
// call made while another refresh is in flight returns nil without doing
// anything.
func (f *Feed) Refresh(ctx context.Context) error {
	if !f.beginFetch() {
		return nil
	}
	quotes, err := f.fetcher.FetchTickers(ctx)
	f.finishFetch(quotes, err)
	return err
}

// RetryDelay returns the backoff delay before the next retry, or false
// when the feed is not in the backoff state. The delay doubles per
// consecutive failure (base * 2^retries) and is clamped to the maximum;
// once degraded, retries stop escalating and only the regular interval
// applies.
func (f *Feed) RetryDelay() (time.Duration, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.state != StateBackoff {
		return 0, false
	}
	d := f.opts.BackoffBase
	for i := 1; i < f.failures; i++ {
		d *= 2
		if d >= f.opts.BackoffMax {
			return f.opts.BackoffMax, true
		}
	}
	if d > f.opts.BackoffMax {
		d = f.opts.BackoffMax
	}
	return d, true
}

// Snapshot returns a copy of the latest quote set.
func (f *Feed) Snapshot() domain.Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(domain.Snapshot, len(f.snapshot))
	for s, q := range f.snapshot {
		out[s] = q
	}
	return out
}

// Quote returns the latest quote for symbol, or false if the symbol was
// never observed and no fallback exists for it.
func (f *Feed) Quote(symbol string) (domain.Quote, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	q, ok := f.snapshot[symbol]
	return q, ok
}

// History returns a copy of the bounded price history for symbol, oldest
// first. The history is display/trend data only; valuation always uses
// the snapshot.
func (f *Feed) History(symbol string) []domain.PricePoint {
	f.mu.RLock()
	defer f.mu.RUnlock()

	h := f.history[symbol]
	out := make([]domain.PricePoint, len(h))
	copy(out, h)
	return out
}

// Status reports the state machine position and degraded flag.
func (f *Feed) Status() Status {
	f.mu.RLock()
	defer f.mu.RUnlock()

	st := Status{
		State:               f.state,
		Degraded:            f.degraded,
		ConsecutiveFailures: f.failures,
		LastSuccess:         f.lastSuccess,
	}
	if f.lastErr != nil {
		st.LastError = f.lastErr.Error()
	}
	return st
}

// beginFetch transitions to Fetching, or reports false when a refresh is
// already in flight so the caller coalesces into a no-op.
func (f *Feed) beginFetch() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateFetching {
		return false
	}
	f.state = StateFetching
	return true
}

// finishFetch applies the outcome of one fetch attempt.
func (f *Feed) finishFetch(quotes []domain.Quote, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.failures++
		f.lastErr = err
		if f.failures >= f.opts.RetryCeiling {
			// Ceiling reached: publish the static fallback table and keep
			// attempting at the regular interval so one success self-heals.
			wasDegraded := f.degraded
			f.degraded = true
			f.state = StateDegraded
			f.applyFallbackLocked()
			if !wasDegraded {
				f.logger.Warn("feed degraded, serving fallback quotes",
					slog.Int("consecutive_failures", f.failures),
					slog.String("error", err.Error()),
				)
			}
		} else {
			f.state = StateBackoff
			f.logger.Warn("feed refresh failed",
				slog.Int("consecutive_failures", f.failures),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	snap := make(domain.Snapshot, len(quotes))
	for _, q := range quotes {
		snap[q.Symbol] = q
		f.appendHistoryLocked(q)
	}
	f.snapshot = snap

	if f.degraded {
		f.logger.Info("feed recovered, serving live quotes")
	}
	f.degraded = false
	f.failures = 0
	f.lastErr = nil
	f.lastSuccess = time.Now().UTC()
	f.state = StateIdle
}

// applyFallbackLocked replaces the snapshot with the static fallback table.
// Tracked symbols with no fallback row keep their last observed quote, if
// any, so a live observation is never downgraded to nothing.
func (f *Feed) applyFallbackLocked() {
	now := time.Now().UTC()
	snap := make(domain.Snapshot, f.symbols.Len())
	for _, s := range f.symbols.List() {
		if q, ok := fallbackQuote(s, now); ok {
			snap[s] = q
			continue
		}
		if q, ok := f.snapshot[s]; ok {
			snap[s] = q
		}
	}
	f.snapshot = snap
}

func (f *Feed) appendHistoryLocked(q domain.Quote) {
	h := append(f.history[q.Symbol], domain.PricePoint{
		ObservedAt: q.ObservedAt,
		Price:      q.Price,
	})
	if len(h) > historyLimit {
		h = h[len(h)-historyLimit:]
	}
	f.history[q.Symbol] = h
}
