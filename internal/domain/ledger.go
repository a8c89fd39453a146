package domain

// amountEpsilon is the tolerance below which a remaining position amount is
// treated as zero. Fractional asset amounts are float64, and selling an
// entire position computed from earlier arithmetic can leave dust on the
// order of 1e-16.
const amountEpsilon = 1e-9

// Holding is a position in one symbol with its weighted-average cost basis.
// TotalCost tracks the cost basis of the currently-held amount only; sells
// reduce it proportionally at the existing average price.
type Holding struct {
	Symbol    string  `json:"symbol"`
	Amount    float64 `json:"amount"`
	AvgPrice  float64 `json:"avg_price"`
	TotalCost float64 `json:"total_cost"`
}

// Ledger is the sole source of truth for a session's cash and holdings.
// All mutation goes through ApplyBuy, ApplySell, and Reset. Ledger does no
// locking of its own; the owning session's mutex serializes access.
type Ledger struct {
	cash         float64
	startingCash float64
	holdings     map[string]*Holding
}

// NewLedger creates a ledger with the given starting cash and no holdings.
func NewLedger(startingCash float64) *Ledger {
	return &Ledger{
		cash:         startingCash,
		startingCash: startingCash,
		holdings:     make(map[string]*Holding),
	}
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 { return l.cash }

// StartingCash returns the fixed session starting balance.
func (l *Ledger) StartingCash() float64 { return l.startingCash }

// Holding returns a copy of the position in symbol, or false if none is held.
func (l *Ledger) Holding(symbol string) (Holding, bool) {
	h, ok := l.holdings[symbol]
	if !ok {
		return Holding{}, false
	}
	return *h, true
}

// Holdings returns a copy of all positions, keyed by symbol.
func (l *Ledger) Holdings() map[string]Holding {
	out := make(map[string]Holding, len(l.holdings))
	for s, h := range l.holdings {
		out[s] = *h
	}
	return out
}

// ApplyBuy debits amount*price from cash and folds the purchase into the
// symbol's position using the weighted-average-cost rule. It returns a
// ValidationError for a non-positive amount or price, and
// ErrInsufficientFunds when the cost exceeds the cash balance; neither
// mutates anything.
func (l *Ledger) ApplyBuy(symbol string, amount, price float64) error {
	if amount <= 0 || price <= 0 {
		return &ValidationError{Message: "amount and price must be greater than 0"}
	}
	cost := amount * price
	if cost > l.cash {
		return ErrInsufficientFunds
	}

	l.cash -= cost

	h, ok := l.holdings[symbol]
	if !ok {
		l.holdings[symbol] = &Holding{
			Symbol:    symbol,
			Amount:    amount,
			AvgPrice:  price,
			TotalCost: cost,
		}
		return nil
	}

	h.Amount += amount
	h.TotalCost += cost
	h.AvgPrice = h.TotalCost / h.Amount
	return nil
}

// ApplySell credits amount*price to cash and removes cost basis at the
// position's existing average price, not the sale price. The average price of any
// remainder is unchanged. A position sold down to zero is removed from the
// map entirely. It returns ErrInsufficientHoldings, without mutating
// anything, when no position exists or the amount exceeds it. A
// non-positive amount or price yields a ValidationError.
func (l *Ledger) ApplySell(symbol string, amount, price float64) error {
	if amount <= 0 || price <= 0 {
		return &ValidationError{Message: "amount and price must be greater than 0"}
	}
	h, ok := l.holdings[symbol]
	if !ok || amount > h.Amount {
		return ErrInsufficientHoldings
	}

	l.cash += amount * price
	h.Amount -= amount
	h.TotalCost -= amount * h.AvgPrice

	if h.Amount <= amountEpsilon {
		delete(l.holdings, symbol)
	}
	return nil
}

// Reset restores the starting cash balance and clears all holdings. The
// session layer clears the trade log alongside.
func (l *Ledger) Reset() {
	l.cash = l.startingCash
	l.holdings = make(map[string]*Holding)
}

// Restore overwrites the ledger's state from a persisted snapshot.
// Holdings are deep-copied.
func (l *Ledger) Restore(cash float64, holdings map[string]Holding) {
	l.cash = cash
	l.holdings = make(map[string]*Holding, len(holdings))
	for s, h := range holdings {
		hc := h
		l.holdings[s] = &hc
	}
}
