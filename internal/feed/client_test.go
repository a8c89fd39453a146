package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efreitasn/papertrade/internal/domain"
)

func testClient(t *testing.T, handler http.HandlerFunc, tracked ...string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	symbols := domain.NewSymbolRegistry(tracked)
	return NewClient(srv.URL, symbols, 5*time.Second, testLogger())
}

func TestClient_FetchTickers(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ticker/24hr", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"symbol":"BTCUSDT","lastPrice":"64123.45","priceChangePercent":"-1.2","volume":"28450.5","highPrice":"65000.0","lowPrice":"63000.0"},
			{"symbol":"ETHUSDT","lastPrice":"3200.10","priceChangePercent":"0.8","volume":"412873.1","highPrice":"3300.0","lowPrice":"3100.0"}
		]`))
	}, "BTCUSDT", "ETHUSDT")

	quotes, err := c.FetchTickers(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	bySymbol := make(map[string]domain.Quote)
	for _, q := range quotes {
		bySymbol[q.Symbol] = q
	}
	btc := bySymbol["BTCUSDT"]
	assert.Equal(t, 64123.45, btc.Price)
	assert.Equal(t, -1.2, btc.ChangePct24h)
	assert.Equal(t, 28450.5, btc.Volume24h)
	assert.Equal(t, 65000.0, btc.High24h)
	assert.Equal(t, 63000.0, btc.Low24h)
	assert.False(t, btc.ObservedAt.IsZero())
}

func TestClient_FiltersUntrackedSymbols(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"symbol":"BTCUSDT","lastPrice":"64000","priceChangePercent":"0","volume":"1","highPrice":"64000","lowPrice":"64000"},
			{"symbol":"DOGEUSDT","lastPrice":"0.1","priceChangePercent":"0","volume":"1","highPrice":"0.1","lowPrice":"0.1"}
		]`))
	}, "BTCUSDT")

	quotes, err := c.FetchTickers(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "BTCUSDT", quotes[0].Symbol)
}

func TestClient_DropsMalformedRowsPerSymbol(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{
			name: "non-numeric price",
			row:  `{"symbol":"ETHUSDT","lastPrice":"oops","priceChangePercent":"0","volume":"1","highPrice":"1","lowPrice":"1"}`,
		},
		{
			name: "missing price",
			row:  `{"symbol":"ETHUSDT","priceChangePercent":"0","volume":"1","highPrice":"1","lowPrice":"1"}`,
		},
		{
			name: "zero price",
			row:  `{"symbol":"ETHUSDT","lastPrice":"0","priceChangePercent":"0","volume":"1","highPrice":"1","lowPrice":"1"}`,
		},
		{
			name: "negative volume",
			row:  `{"symbol":"ETHUSDT","lastPrice":"3200","priceChangePercent":"0","volume":"-5","highPrice":"1","lowPrice":"1"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `[{"symbol":"BTCUSDT","lastPrice":"64000","priceChangePercent":"0","volume":"1","highPrice":"64000","lowPrice":"64000"},` + tt.row + `]`
			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}, "BTCUSDT", "ETHUSDT")

			// The bad row is dropped; the good one survives.
			quotes, err := c.FetchTickers(context.Background())
			require.NoError(t, err)
			require.Len(t, quotes, 1)
			assert.Equal(t, "BTCUSDT", quotes[0].Symbol)
		})
	}
}

func TestClient_AllRowsUnusableIsError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"symbol":"BTCUSDT","lastPrice":"bad","priceChangePercent":"0","volume":"1","highPrice":"1","lowPrice":"1"}]`))
	}, "BTCUSDT")

	_, err := c.FetchTickers(context.Background())
	require.Error(t, err)
}

func TestClient_EmptyArrayIsError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}, "BTCUSDT")

	_, err := c.FetchTickers(context.Background())
	require.Error(t, err)
}

func TestClient_HTTPErrorStatus(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, "BTCUSDT")

	_, err := c.FetchTickers(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClient_MalformedJSON(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"`))
	}, "BTCUSDT")

	_, err := c.FetchTickers(context.Background())
	require.Error(t, err)
}

func TestClient_ContextCancellation(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}, "BTCUSDT")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.FetchTickers(ctx)
	require.Error(t, err)
}
