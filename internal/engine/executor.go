package engine

import (
	"fmt"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/store"
)

// OrderRequest represents one user order. LimitPrice is required for limit
// orders and must be omitted for market orders. Requests are transient:
// rejected orders leave no state and no log entry behind.
type OrderRequest struct {
	Symbol     string
	Side       domain.OrderSide
	Kind       domain.OrderKind
	Amount     float64
	LimitPrice *float64
}

// Executor is the only entry point that turns an order request into a
// ledger mutation plus a trade-log entry. All preconditions are checked
// before any mutation, so a failed order leaves the ledger and the trade
// log untouched. An entry exists in the log if and only if the
// corresponding ledger mutation committed.
type Executor struct {
	symbols *domain.SymbolRegistry
	trades  *store.TradeStore
}

// NewExecutor creates an Executor appending to the given trade store.
func NewExecutor(symbols *domain.SymbolRegistry, trades *store.TradeStore) *Executor {
	return &Executor{symbols: symbols, trades: trades}
}

// Execute validates the request against the session's ledger and the given
// feed snapshot, applies the mutation, and appends the executed trade.
// It holds the session mutex for the whole validate-then-commit sequence,
// so two executions on the same session never interleave. The snapshot is
// whatever the feed last published; execution never waits for a fresh
// price.
func (e *Executor) Execute(sess *domain.Session, req OrderRequest, snap domain.Snapshot) (*domain.Trade, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if !e.symbols.Exists(req.Symbol) {
		return nil, domain.ErrUnknownSymbol
	}

	price, err := resolveFillPrice(req, snap)
	if err != nil {
		return nil, err
	}

	sess.Mu.Lock()
	defer sess.Mu.Unlock()

	switch req.Side {
	case domain.OrderSideBuy:
		err = sess.Ledger.ApplyBuy(req.Symbol, req.Amount, price)
	case domain.OrderSideSell:
		err = sess.Ledger.ApplySell(req.Symbol, req.Amount, price)
	}
	if err != nil {
		return nil, err
	}

	sess.Seq++
	trade := &domain.Trade{
		ID:         domain.NewTradeID(),
		Symbol:     req.Symbol,
		Side:       req.Side,
		Kind:       req.Kind,
		Amount:     req.Amount,
		Price:      price,
		Total:      req.Amount * price,
		ExecutedAt: time.Now().UTC(),
	}
	e.trades.Append(sess.ID, trade)

	return trade, nil
}

// resolveFillPrice determines the execution price for a request. Market
// orders fill at the snapshot price; limit orders fill immediately at the
// price the user specified. The simulator does not model resting limit
// orders or partial fills.
func resolveFillPrice(req OrderRequest, snap domain.Snapshot) (float64, error) {
	switch req.Kind {
	case domain.OrderKindMarket:
		q, ok := snap[req.Symbol]
		if !ok {
			return 0, domain.ErrNoPrice
		}
		return q.Price, nil
	case domain.OrderKindLimit:
		return *req.LimitPrice, nil
	}
	return 0, fmt.Errorf("unreachable order kind %q", req.Kind)
}

func validateRequest(req OrderRequest) error {
	if req.Side != domain.OrderSideBuy && req.Side != domain.OrderSideSell {
		return &domain.ValidationError{
			Message: "side must be 'buy' or 'sell'",
		}
	}
	if req.Kind != domain.OrderKindMarket && req.Kind != domain.OrderKindLimit {
		return &domain.ValidationError{
			Message: fmt.Sprintf("Unknown order kind: %s. Must be one of: market, limit", req.Kind),
		}
	}
	if req.Amount <= 0 {
		return &domain.ValidationError{
			Message: "amount must be greater than 0",
		}
	}
	if req.Kind == domain.OrderKindLimit {
		if req.LimitPrice == nil {
			return &domain.ValidationError{
				Message: "limit_price is required for limit orders",
			}
		}
		if *req.LimitPrice <= 0 {
			return &domain.ValidationError{
				Message: "limit_price must be greater than 0",
			}
		}
	}
	if req.Kind == domain.OrderKindMarket && req.LimitPrice != nil {
		return &domain.ValidationError{
			Message: "limit_price must be omitted for market orders",
		}
	}
	return nil
}
