package service

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/engine"
	"github.com/efreitasn/papertrade/internal/store"
)

// Wallet addresses are opaque labels: hex, base58 and chain-prefixed forms
// all pass, anything unprintable or oversized does not.
var walletRegex = regexp.MustCompile(`^[a-zA-Z0-9:_-]{1,128}$`)

// QuoteSource provides the latest published quote snapshot. Satisfied by
// *feed.Feed.
type QuoteSource interface {
	Snapshot() domain.Snapshot
}

// CreateSessionRequest represents the input for session creation. Wallet
// is an optional identity label and has no effect on execution rules.
type CreateSessionRequest struct {
	Wallet string
}

// OrderInput represents a user order as received at the boundary.
type OrderInput struct {
	Symbol     string
	Side       string
	Kind       string
	Amount     float64
	LimitPrice *float64
}

// PortfolioView is the read model for one session: ledger state plus the
// mark-to-market valuation against the latest snapshot.
type PortfolioView struct {
	SessionID    string
	Wallet       string
	CreatedAt    time.Time
	StartingCash float64
	CashBalance  float64
	Holdings     []domain.Holding
	Valuation    engine.Valuation
	TradeCount   int
}

// PortfolioService handles session creation, order placement, reset, and
// portfolio queries. Every committed mutation is handed to the persister;
// persistence failures never roll back in-memory state.
type PortfolioService struct {
	sessions     *store.SessionStore
	trades       *store.TradeStore
	snapshots    store.SnapshotStore
	persister    *store.Persister
	executor     *engine.Executor
	feed         QuoteSource
	startingCash float64
	logger       *slog.Logger
}

// NewPortfolioService creates a PortfolioService with the given dependencies.
func NewPortfolioService(
	sessions *store.SessionStore,
	trades *store.TradeStore,
	snapshots store.SnapshotStore,
	persister *store.Persister,
	executor *engine.Executor,
	feed QuoteSource,
	startingCash float64,
	logger *slog.Logger,
) *PortfolioService {
	return &PortfolioService{
		sessions:     sessions,
		trades:       trades,
		snapshots:    snapshots,
		persister:    persister,
		executor:     executor,
		feed:         feed,
		startingCash: startingCash,
		logger:       logger,
	}
}

// Restore loads every persisted session at startup and rebuilds its
// in-memory ledger and trade log.
func (s *PortfolioService) Restore(ctx context.Context) error {
	snaps, err := s.snapshots.List(ctx)
	if err != nil {
		return err
	}

	for _, snap := range snaps {
		sess := &domain.Session{
			ID:        snap.SessionID,
			Wallet:    snap.Wallet,
			CreatedAt: snap.CreatedAt,
			Ledger:    domain.NewLedger(snap.StartingCash),
			Seq:       snap.Seq,
		}
		sess.Ledger.Restore(snap.CashBalance, snap.Holdings)
		s.trades.Restore(sess.ID, snap.Trades)
		s.sessions.Put(sess)
	}

	if len(snaps) > 0 {
		s.logger.Info("restored sessions from store", slog.Int("count", len(snaps)))
	}
	return nil
}

// CreateSession registers a new independent session with the fixed
// starting cash balance and persists its initial state.
func (s *PortfolioService) CreateSession(req CreateSessionRequest) (*domain.Session, error) {
	if req.Wallet != "" && !walletRegex.MatchString(req.Wallet) {
		return nil, &domain.ValidationError{
			Message: "wallet_address must match ^[a-zA-Z0-9:_-]{1,128}$",
		}
	}

	sess := domain.NewSession(uuid.NewString(), req.Wallet, s.startingCash)
	s.sessions.Put(sess)
	s.persist(sess)

	s.logger.Info("session created",
		slog.String("session_id", sess.ID),
		slog.Float64("starting_cash", s.startingCash),
	)
	return sess, nil
}

// GetSession retrieves a session by ID.
func (s *PortfolioService) GetSession(sessionID string) (*domain.Session, error) {
	return s.sessions.Get(sessionID)
}

// PlaceOrder executes one order against the session using whatever
// snapshot the feed currently publishes, then schedules persistence of the
// committed state.
func (s *PortfolioService) PlaceOrder(sessionID string, in OrderInput) (*domain.Trade, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	trade, err := s.executor.Execute(sess, engine.OrderRequest{
		Symbol:     in.Symbol,
		Side:       domain.OrderSide(in.Side),
		Kind:       domain.OrderKind(in.Kind),
		Amount:     in.Amount,
		LimitPrice: in.LimitPrice,
	}, s.feed.Snapshot())
	if err != nil {
		return nil, err
	}

	s.persist(sess)
	return trade, nil
}

// Reset restores the session's starting cash, clears its holdings and its
// trade log, and persists the emptied state.
func (s *PortfolioService) Reset(sessionID string) error {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}

	// Clearing the trade log under Mu keeps it in step with the ledger
	// when an order commits concurrently.
	sess.Mu.Lock()
	sess.Ledger.Reset()
	sess.Seq++
	s.trades.Clear(sessionID)
	sess.Mu.Unlock()

	s.persist(sess)
	s.logger.Info("session reset", slog.String("session_id", sessionID))
	return nil
}

// Portfolio returns the session's ledger state valued against the latest
// feed snapshot.
func (s *PortfolioService) Portfolio(sessionID string) (*PortfolioView, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	snap := s.feed.Snapshot()

	sess.Mu.Lock()
	holdings := sess.Ledger.Holdings()
	view := &PortfolioView{
		SessionID:    sess.ID,
		Wallet:       sess.Wallet,
		CreatedAt:    sess.CreatedAt,
		StartingCash: sess.Ledger.StartingCash(),
		CashBalance:  sess.Ledger.Cash(),
		Valuation:    engine.Valuate(sess.Ledger, snap),
	}
	sess.Mu.Unlock()

	view.Holdings = make([]domain.Holding, 0, len(holdings))
	for _, h := range holdings {
		view.Holdings = append(view.Holdings, h)
	}
	sort.Slice(view.Holdings, func(i, j int) bool {
		return view.Holdings[i].Symbol < view.Holdings[j].Symbol
	})
	view.TradeCount = s.trades.Count(sessionID)

	return view, nil
}

// Trades lists the session's executed trades in chronological order,
// optionally filtered to those at or after since.
func (s *PortfolioService) Trades(sessionID string, since *time.Time) ([]*domain.Trade, error) {
	if _, err := s.sessions.Get(sessionID); err != nil {
		return nil, err
	}
	if since != nil {
		return s.trades.Since(sessionID, *since), nil
	}
	return s.trades.BySession(sessionID), nil
}

// persist captures a consistent snapshot of the session under its mutex
// and hands it to the write-behind persister. The trade log is read inside
// the critical section so the trades always match the captured Seq.
func (s *PortfolioService) persist(sess *domain.Session) {
	sess.Mu.Lock()
	snap := &store.PortfolioSnapshot{
		SessionID:    sess.ID,
		Wallet:       sess.Wallet,
		CreatedAt:    sess.CreatedAt,
		StartingCash: sess.Ledger.StartingCash(),
		CashBalance:  sess.Ledger.Cash(),
		Holdings:     sess.Ledger.Holdings(),
		Trades:       s.trades.BySession(sess.ID),
		Seq:          sess.Seq,
		LastUpdated:  time.Now().UTC(),
	}
	sess.Mu.Unlock()

	s.persister.Enqueue(snap)
}
