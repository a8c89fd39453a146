package engine

import "github.com/efreitasn/papertrade/internal/domain"

// Valuation is the mark-to-market view of a portfolio against one feed
// snapshot.
type Valuation struct {
	TotalValue    float64 `json:"total_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	PnLPercent    float64 `json:"pnl_percent"`
}

// Valuate computes total portfolio value, unrealized P&L, and P&L percent
// from the ledger and the latest snapshot. It is pure: it mutates neither
// input, and identical inputs always produce identical output.
//
// A holding whose symbol has no current quote contributes 0 to value
// rather than failing; its entire cost basis shows up as unrealized loss
// until a quote appears. Cash contributes to value but never to P&L.
func Valuate(l *domain.Ledger, snap domain.Snapshot) Valuation {
	total := l.Cash()
	var pnl float64

	for _, h := range l.Holdings() {
		var current float64
		if q, ok := snap[h.Symbol]; ok {
			current = h.Amount * q.Price
		}
		total += current
		pnl += current - h.TotalCost
	}

	var pct float64
	if l.StartingCash() > 0 {
		pct = (total - l.StartingCash()) / l.StartingCash() * 100
	}

	return Valuation{
		TotalValue:    total,
		UnrealizedPnL: pnl,
		PnLPercent:    pct,
	}
}
