package feed

import (
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
)

// fallbackRow holds the static values served for a symbol once the feed is
// degraded. The numbers are plausible, not live; the degraded flag tells
// clients they are looking at fallback data.
type fallbackRow struct {
	price     float64
	changePct float64
	volume    float64
	high      float64
	low       float64
}

var fallbackRows = map[string]fallbackRow{
	"BTCUSDT": {price: 67250.00, changePct: -1.24, volume: 28450.52, high: 68910.00, low: 66380.00},
	"ETHUSDT": {price: 3245.50, changePct: 0.87, volume: 412873.10, high: 3310.25, low: 3198.40},
	"BNBUSDT": {price: 585.20, changePct: -0.42, volume: 152304.75, high: 596.80, low: 579.10},
	"SOLUSDT": {price: 142.75, changePct: 2.31, volume: 981245.30, high: 146.90, low: 138.20},
	"XRPUSDT": {price: 0.5312, changePct: -0.15, volume: 48120933.00, high: 0.5450, low: 0.5237},
}

// fallbackQuote returns the static fallback quote for symbol, stamped with
// the given observation time, or false if no fallback row exists.
func fallbackQuote(symbol string, observedAt time.Time) (domain.Quote, bool) {
	row, ok := fallbackRows[symbol]
	if !ok {
		return domain.Quote{}, false
	}
	return domain.Quote{
		Symbol:       symbol,
		Price:        row.price,
		ChangePct24h: row.changePct,
		Volume24h:    row.volume,
		High24h:      row.high,
		Low24h:       row.low,
		ObservedAt:   observedAt,
	}, true
}
