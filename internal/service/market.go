package service

import (
	"sort"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/feed"
)

// MarketService serves quote, history, and feed-health queries, and relays
// on-demand refresh requests to the feed.
type MarketService struct {
	feed    *feed.Feed
	symbols *domain.SymbolRegistry
}

// NewMarketService creates a MarketService over the given feed.
func NewMarketService(f *feed.Feed, symbols *domain.SymbolRegistry) *MarketService {
	return &MarketService{feed: f, symbols: symbols}
}

// Quotes returns the latest snapshot as a slice ordered by symbol. Tracked
// symbols with no observation yet are absent.
func (s *MarketService) Quotes() []domain.Quote {
	snap := s.feed.Snapshot()
	out := make([]domain.Quote, 0, len(snap))
	for _, q := range snap {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Quote returns the latest quote for one tracked symbol. It returns
// domain.ErrUnknownSymbol for symbols outside the allow-list and
// domain.ErrNoPrice for tracked symbols that were never observed and have
// no fallback.
func (s *MarketService) Quote(symbol string) (domain.Quote, error) {
	if !s.symbols.Exists(symbol) {
		return domain.Quote{}, domain.ErrUnknownSymbol
	}
	q, ok := s.feed.Quote(symbol)
	if !ok {
		return domain.Quote{}, domain.ErrNoPrice
	}
	return q, nil
}

// History returns the bounded price history for one tracked symbol,
// oldest first; possibly empty.
func (s *MarketService) History(symbol string) ([]domain.PricePoint, error) {
	if !s.symbols.Exists(symbol) {
		return nil, domain.ErrUnknownSymbol
	}
	return s.feed.History(symbol), nil
}

// Status reports the feed state machine position and degraded flag.
func (s *MarketService) Status() feed.Status {
	return s.feed.Status()
}

// RequestRefresh asks the feed for an immediate refresh; coalesced with
// any refresh already pending.
func (s *MarketService) RequestRefresh() {
	s.feed.RequestRefresh()
}
