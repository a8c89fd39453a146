package domain

import (
	"sort"
	"sync"
)

// SymbolRegistry holds the fixed allow-list of tradable pairs known at
// startup. Quotes for symbols outside the registry are discarded by the
// feed, and orders against them are rejected.
type SymbolRegistry struct {
	mu      sync.RWMutex
	symbols map[string]bool
}

// NewSymbolRegistry creates a registry containing the given symbols.
func NewSymbolRegistry(symbols []string) *SymbolRegistry {
	m := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		m[s] = true
	}
	return &SymbolRegistry{symbols: m}
}

// Exists returns true if the symbol is in the allow-list. Safe for concurrent use.
func (r *SymbolRegistry) Exists(symbol string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.symbols[symbol]
}

// List returns all tracked symbols in lexicographic order.
func (r *SymbolRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.symbols))
	for s := range r.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of tracked symbols.
func (r *SymbolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.symbols)
}
