package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrSessionNotFound      = errors.New("session_not_found")
	ErrSnapshotNotFound     = errors.New("snapshot_not_found")
	ErrUnknownSymbol        = errors.New("unknown_symbol")
	ErrInsufficientFunds    = errors.New("insufficient_funds")
	ErrInsufficientHoldings = errors.New("insufficient_holdings")
	ErrNoPrice              = errors.New("no_price")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
