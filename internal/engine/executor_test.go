package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/store"
)

func newTestExecutor(t *testing.T) (*Executor, *store.TradeStore) {
	t.Helper()
	symbols := domain.NewSymbolRegistry([]string{"BTCUSDT", "ETHUSDT"})
	trades := store.NewTradeStore()
	return NewExecutor(symbols, trades), trades
}

func testSnapshot() domain.Snapshot {
	return domain.Snapshot{
		"BTCUSDT": {Symbol: "BTCUSDT", Price: 50000, ObservedAt: time.Now().UTC()},
	}
}

func ptr(f float64) *float64 { return &f }

func TestExecutor_MarketBuy(t *testing.T) {
	exec, trades := newTestExecutor(t)
	sess := domain.NewSession("s1", "", 10000)

	trade, err := exec.Execute(sess, OrderRequest{
		Symbol: "BTCUSDT",
		Side:   domain.OrderSideBuy,
		Kind:   domain.OrderKindMarket,
		Amount: 0.1,
	}, testSnapshot())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if trade.Price != 50000 {
		t.Errorf("Price = %v, want 50000 (snapshot price)", trade.Price)
	}
	if math.Abs(trade.Total-5000) > 1e-6 {
		t.Errorf("Total = %v, want 5000", trade.Total)
	}
	if math.Abs(sess.Ledger.Cash()-5000) > 1e-6 {
		t.Errorf("Cash() = %v, want 5000", sess.Ledger.Cash())
	}
	if sess.Seq != 1 {
		t.Errorf("Seq = %d, want 1", sess.Seq)
	}
	if got := trades.Count("s1"); got != 1 {
		t.Errorf("trade log length = %d, want 1", got)
	}
}

func TestExecutor_LimitOrderFillsAtLimitPrice(t *testing.T) {
	exec, _ := newTestExecutor(t)
	sess := domain.NewSession("s1", "", 10000)

	trade, err := exec.Execute(sess, OrderRequest{
		Symbol:     "BTCUSDT",
		Side:       domain.OrderSideBuy,
		Kind:       domain.OrderKindLimit,
		Amount:     0.1,
		LimitPrice: ptr(48000),
	}, testSnapshot())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if trade.Price != 48000 {
		t.Errorf("Price = %v, want 48000 (limit price, not snapshot)", trade.Price)
	}
}

func TestExecutor_LimitSellWithoutQuote(t *testing.T) {
	exec, _ := newTestExecutor(t)
	sess := domain.NewSession("s1", "", 10000)

	if _, err := exec.Execute(sess, OrderRequest{
		Symbol:     "ETHUSDT",
		Side:       domain.OrderSideBuy,
		Kind:       domain.OrderKindLimit,
		Amount:     1,
		LimitPrice: ptr(3000),
	}, testSnapshot()); err != nil {
		t.Fatalf("limit buy error = %v", err)
	}

	// Limit orders never consult the snapshot, so a symbol with no quote
	// still trades.
	trade, err := exec.Execute(sess, OrderRequest{
		Symbol:     "ETHUSDT",
		Side:       domain.OrderSideSell,
		Kind:       domain.OrderKindLimit,
		Amount:     1,
		LimitPrice: ptr(3500),
	}, testSnapshot())
	if err != nil {
		t.Fatalf("limit sell error = %v", err)
	}
	if trade.Price != 3500 {
		t.Errorf("Price = %v, want 3500", trade.Price)
	}
}

func TestExecutor_MarketOrderNoPrice(t *testing.T) {
	exec, trades := newTestExecutor(t)
	sess := domain.NewSession("s1", "", 10000)

	_, err := exec.Execute(sess, OrderRequest{
		Symbol: "ETHUSDT",
		Side:   domain.OrderSideBuy,
		Kind:   domain.OrderKindMarket,
		Amount: 1,
	}, testSnapshot())
	if !errors.Is(err, domain.ErrNoPrice) {
		t.Fatalf("Execute() error = %v, want ErrNoPrice", err)
	}
	if got := trades.Count("s1"); got != 0 {
		t.Errorf("trade log length = %d, want 0", got)
	}
}

func TestExecutor_UnknownSymbol(t *testing.T) {
	exec, _ := newTestExecutor(t)
	sess := domain.NewSession("s1", "", 10000)

	_, err := exec.Execute(sess, OrderRequest{
		Symbol: "DOGEUSDT",
		Side:   domain.OrderSideBuy,
		Kind:   domain.OrderKindMarket,
		Amount: 1,
	}, testSnapshot())
	if !errors.Is(err, domain.ErrUnknownSymbol) {
		t.Fatalf("Execute() error = %v, want ErrUnknownSymbol", err)
	}
}

func TestExecutor_FailedOrderLeavesStateUntouched(t *testing.T) {
	exec, trades := newTestExecutor(t)
	sess := domain.NewSession("s1", "", 10000)

	_, err := exec.Execute(sess, OrderRequest{
		Symbol: "BTCUSDT",
		Side:   domain.OrderSideBuy,
		Kind:   domain.OrderKindMarket,
		Amount: 1.0, // costs 50000 against 10000 cash
	}, testSnapshot())
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("Execute() error = %v, want ErrInsufficientFunds", err)
	}

	if sess.Ledger.Cash() != 10000 {
		t.Errorf("Cash() = %v, want 10000 (unchanged)", sess.Ledger.Cash())
	}
	if len(sess.Ledger.Holdings()) != 0 {
		t.Errorf("Holdings() = %v, want empty", sess.Ledger.Holdings())
	}
	if sess.Seq != 0 {
		t.Errorf("Seq = %d, want 0 (unchanged)", sess.Seq)
	}
	if got := trades.Count("s1"); got != 0 {
		t.Errorf("trade log length = %d, want 0", got)
	}
}

func TestExecutor_SellWithoutHolding(t *testing.T) {
	exec, trades := newTestExecutor(t)
	sess := domain.NewSession("s1", "", 10000)

	_, err := exec.Execute(sess, OrderRequest{
		Symbol: "BTCUSDT",
		Side:   domain.OrderSideSell,
		Kind:   domain.OrderKindMarket,
		Amount: 0.1,
	}, testSnapshot())
	if !errors.Is(err, domain.ErrInsufficientHoldings) {
		t.Fatalf("Execute() error = %v, want ErrInsufficientHoldings", err)
	}
	if got := trades.Count("s1"); got != 0 {
		t.Errorf("trade log length = %d, want 0", got)
	}
}

func TestExecutor_Validation(t *testing.T) {
	exec, _ := newTestExecutor(t)
	sess := domain.NewSession("s1", "", 10000)

	tests := []struct {
		name string
		req  OrderRequest
	}{
		{
			name: "invalid side",
			req:  OrderRequest{Symbol: "BTCUSDT", Side: "hold", Kind: domain.OrderKindMarket, Amount: 1},
		},
		{
			name: "invalid kind",
			req:  OrderRequest{Symbol: "BTCUSDT", Side: domain.OrderSideBuy, Kind: "stop", Amount: 1},
		},
		{
			name: "zero amount",
			req:  OrderRequest{Symbol: "BTCUSDT", Side: domain.OrderSideBuy, Kind: domain.OrderKindMarket, Amount: 0},
		},
		{
			name: "negative amount",
			req:  OrderRequest{Symbol: "BTCUSDT", Side: domain.OrderSideBuy, Kind: domain.OrderKindMarket, Amount: -1},
		},
		{
			name: "limit without limit price",
			req:  OrderRequest{Symbol: "BTCUSDT", Side: domain.OrderSideBuy, Kind: domain.OrderKindLimit, Amount: 1},
		},
		{
			name: "limit with non-positive limit price",
			req:  OrderRequest{Symbol: "BTCUSDT", Side: domain.OrderSideBuy, Kind: domain.OrderKindLimit, Amount: 1, LimitPrice: ptr(0)},
		},
		{
			name: "market with limit price",
			req:  OrderRequest{Symbol: "BTCUSDT", Side: domain.OrderSideBuy, Kind: domain.OrderKindMarket, Amount: 1, LimitPrice: ptr(50000)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := exec.Execute(sess, tt.req, testSnapshot())
			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Execute() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestExecutor_TradeIDsIncrease(t *testing.T) {
	exec, _ := newTestExecutor(t)
	sess := domain.NewSession("s1", "", 10000)

	var prev string
	for i := 0; i < 5; i++ {
		trade, err := exec.Execute(sess, OrderRequest{
			Symbol: "BTCUSDT",
			Side:   domain.OrderSideBuy,
			Kind:   domain.OrderKindMarket,
			Amount: 0.00001,
		}, testSnapshot())
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if trade.ID <= prev {
			t.Fatalf("trade ID %q not greater than previous %q", trade.ID, prev)
		}
		prev = trade.ID
	}
}
