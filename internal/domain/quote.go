package domain

import "time"

// Quote is one observed price point for a symbol. Quotes are produced only
// by the feed and are never mutated after creation; a new observation
// replaces the prior one wholesale.
type Quote struct {
	Symbol       string    `json:"symbol"`
	Price        float64   `json:"price"`
	ChangePct24h float64   `json:"change_pct_24h"`
	Volume24h    float64   `json:"volume_24h"`
	High24h      float64   `json:"high_24h"`
	Low24h       float64   `json:"low_24h"`
	ObservedAt   time.Time `json:"observed_at"`
}

// PricePoint is a single entry in a symbol's bounded price history.
type PricePoint struct {
	ObservedAt time.Time `json:"observed_at"`
	Price      float64   `json:"price"`
}

// Snapshot is the complete set of latest quotes across tracked symbols,
// keyed by symbol. A snapshot is an immutable value: readers receive a
// copy and must not share it with writers.
type Snapshot map[string]Quote
