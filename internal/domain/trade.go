package domain

import "time"

// OrderSide indicates whether an order buys or sells the base asset.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderKind distinguishes market orders, which fill at the latest quote,
// from limit orders, which fill immediately at the price the user typed.
// The simulator does not model resting limit orders or partial fills.
type OrderKind string

const (
	OrderKindMarket OrderKind = "market"
	OrderKindLimit  OrderKind = "limit"
)

// Trade is one executed order. Trades are append-only: they are never
// edited or removed, and a portfolio reset clears the log wholesale.
type Trade struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       OrderSide `json:"side"`
	Kind       OrderKind `json:"kind"`
	Amount     float64   `json:"amount"`
	Price      float64   `json:"price"`
	Total      float64   `json:"total"`
	ExecutedAt time.Time `json:"executed_at"`
}
