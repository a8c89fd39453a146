package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
)

// tickerDTO mirrors one element of the external 24h ticker array. The
// source returns every symbol it knows about, with all numeric fields
// string-encoded.
type tickerDTO struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	Volume             string `json:"volume"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
}

// Client fetches batch ticker snapshots from the external quote source.
// The source is untrusted: rows with missing or non-numeric fields are
// dropped per-symbol rather than failing the whole refresh.
type Client struct {
	baseURL string
	symbols *domain.SymbolRegistry
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates a Client for the given base URL. The request timeout
// bounds the whole fetch and is distinct from the feed's retry backoff.
func NewClient(baseURL string, symbols *domain.SymbolRegistry, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		symbols: symbols,
		client:  newHTTPClient(timeout),
		logger:  logger,
	}
}

// newHTTPClient builds an HTTP client for external API calls. The default
// client has no timeout, so a tuned transport is always used instead.
func newHTTPClient(timeout time.Duration) *http.Client {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: t}
}

// FetchTickers retrieves the full ticker array in one request and returns
// quotes for tracked symbols only. An empty usable result is an error, so
// the caller's retry path treats it the same as a network failure.
func (c *Client) FetchTickers(ctx context.Context) ([]domain.Quote, error) {
	u := fmt.Sprintf("%s/ticker/24hr", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			c.logger.Warn("failed to close response body", slog.String("error", err.Error()))
		}
	}()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("ticker source http %d", res.StatusCode)
	}

	var body []tickerDTO
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode ticker response: %w", err)
	}

	now := time.Now().UTC()
	quotes := make([]domain.Quote, 0, c.symbols.Len())
	for _, t := range body {
		if !c.symbols.Exists(t.Symbol) {
			continue
		}
		q, err := t.toQuote(now)
		if err != nil {
			c.logger.Warn("dropping malformed ticker row",
				slog.String("symbol", t.Symbol),
				slog.String("error", err.Error()),
			)
			continue
		}
		quotes = append(quotes, q)
	}

	if len(quotes) == 0 {
		return nil, fmt.Errorf("ticker source returned no usable quotes for tracked symbols")
	}
	return quotes, nil
}

func (t tickerDTO) toQuote(observedAt time.Time) (domain.Quote, error) {
	price, err := strconv.ParseFloat(t.LastPrice, 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("parse lastPrice %q: %w", t.LastPrice, err)
	}
	if price <= 0 {
		return domain.Quote{}, fmt.Errorf("non-positive lastPrice %q", t.LastPrice)
	}
	change, err := strconv.ParseFloat(t.PriceChangePercent, 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("parse priceChangePercent %q: %w", t.PriceChangePercent, err)
	}
	volume, err := strconv.ParseFloat(t.Volume, 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("parse volume %q: %w", t.Volume, err)
	}
	if volume < 0 {
		return domain.Quote{}, fmt.Errorf("negative volume %q", t.Volume)
	}
	high, err := strconv.ParseFloat(t.HighPrice, 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("parse highPrice %q: %w", t.HighPrice, err)
	}
	low, err := strconv.ParseFloat(t.LowPrice, 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("parse lowPrice %q: %w", t.LowPrice, err)
	}

	return domain.Quote{
		Symbol:       t.Symbol,
		Price:        price,
		ChangePct24h: change,
		Volume24h:    volume,
		High24h:      high,
		Low24h:       low,
		ObservedAt:   observedAt,
	}, nil
}
