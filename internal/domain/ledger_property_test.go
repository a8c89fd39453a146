package domain

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

// ledgerMachine drives a ledger through random buy/sell sequences while
// checking solvency, the weighted-average-cost relation, and the absence
// of zero-amount positions.
type ledgerMachine struct {
	ledger *Ledger
}

func (m *ledgerMachine) init(t *rapid.T) {
	cash := rapid.Float64Range(100, 1_000_000).Draw(t, "startingCash")
	m.ledger = NewLedger(cash)
}

func (m *ledgerMachine) checkInvariants(t *rapid.T) {
	if m.ledger.Cash() < 0 {
		t.Fatalf("cash went negative: %v", m.ledger.Cash())
	}
	for sym, h := range m.ledger.Holdings() {
		if h.Amount <= amountEpsilon {
			t.Fatalf("zero-amount holding %s left in map: %+v", sym, h)
		}
		want := h.TotalCost / h.Amount
		if math.Abs(h.AvgPrice-want) > 1e-6*math.Max(1, want) {
			t.Fatalf("%s: AvgPrice = %v, TotalCost/Amount = %v", sym, h.AvgPrice, want)
		}
	}
}

func TestProperty_LedgerInvariants(t *testing.T) {
	symbols := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}

	rapid.Check(t, func(t *rapid.T) {
		var m ledgerMachine
		m.init(t)

		steps := rapid.IntRange(1, 50).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			symbol := rapid.SampledFrom(symbols).Draw(t, "symbol")
			price := rapid.Float64Range(0.01, 100_000).Draw(t, "price")

			if rapid.Bool().Draw(t, "buy") {
				amount := rapid.Float64Range(0.0001, 10).Draw(t, "buyAmount")
				err := m.ledger.ApplyBuy(symbol, amount, price)
				if err != nil && err != ErrInsufficientFunds {
					t.Fatalf("ApplyBuy() unexpected error: %v", err)
				}
			} else {
				h, ok := m.ledger.Holding(symbol)
				if !ok {
					continue
				}
				// Sell up to the full position, sometimes exactly all of it.
				amount := h.Amount
				if rapid.Bool().Draw(t, "partial") {
					amount = rapid.Float64Range(0, h.Amount).Draw(t, "sellAmount")
					if amount == 0 {
						continue
					}
				}
				err := m.ledger.ApplySell(symbol, amount, price)
				if err != nil && err != ErrInsufficientHoldings {
					t.Fatalf("ApplySell() unexpected error: %v", err)
				}
			}

			m.checkInvariants(t)
		}
	})
}

func TestProperty_FailedBuyMutatesNothing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cash := rapid.Float64Range(1, 1000).Draw(t, "cash")
		l := NewLedger(cash)

		// Force a cost strictly above the balance.
		price := rapid.Float64Range(1, 10_000).Draw(t, "price")
		amount := (cash + rapid.Float64Range(1, 100).Draw(t, "excess")) / price

		err := l.ApplyBuy("BTCUSDT", amount, price)
		if err != ErrInsufficientFunds {
			t.Fatalf("ApplyBuy() error = %v, want ErrInsufficientFunds", err)
		}
		if l.Cash() != cash {
			t.Fatalf("cash mutated by failed buy: %v, want %v", l.Cash(), cash)
		}
		if len(l.Holdings()) != 0 {
			t.Fatalf("holdings mutated by failed buy: %v", l.Holdings())
		}
	})
}

func TestProperty_BuySellRoundTripConservesValue(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cash := rapid.Float64Range(1000, 1_000_000).Draw(t, "cash")
		price := rapid.Float64Range(0.01, 100_000).Draw(t, "price")
		l := NewLedger(cash)

		// Stay clearly under the balance so float rounding on cost cannot
		// tip the buy into rejection.
		amount := rapid.Float64Range(0.0001, 0.99*cash/price).Draw(t, "amount")

		if err := l.ApplyBuy("BTCUSDT", amount, price); err != nil {
			t.Fatalf("ApplyBuy() error = %v", err)
		}
		if err := l.ApplySell("BTCUSDT", amount, price); err != nil {
			t.Fatalf("ApplySell() error = %v", err)
		}

		// Buying and selling the full amount at the same price restores cash.
		if math.Abs(l.Cash()-cash) > 1e-6*cash {
			t.Fatalf("cash after round trip = %v, want %v", l.Cash(), cash)
		}
		if len(l.Holdings()) != 0 {
			t.Fatalf("holdings after full round trip: %v", l.Holdings())
		}
	})
}
