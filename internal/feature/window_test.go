package feature_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sentinel_go/internal/domain"
	"sentinel_go/internal/event"
	"sentinel_go/internal/feature"
)

func testWindowConfig() feature.WindowConfig {
	return feature.WindowConfig{
		TradeCapacity:    8,
		ContextCapacity:  4,
		MomentumLookback: 2,
		OIDeltaLookback:  1,
		MinTrades:        4,
	}
}

func trade(side string, size, price float64) *event.TradeEvent {
	return &event.TradeEvent{
		Symbol: "BTC",
		Side:   side,
		Size:   decimal.NewFromFloat(size),
		Price:  decimal.NewFromFloat(price),
		Time:   time.Now(),
	}
}

func snapshot(w *feature.SymbolWindow) domain.FeatureVector {
	return w.Snapshot(time.Now())
}

func TestSymbolWindow_InsufficientData(t *testing.T) {
	w := feature.NewSymbolWindow("BTC", testWindowConfig())

	t.Run("Empty Window", func(t *testing.T) {
		vec := snapshot(w)
		for _, name := range domain.FieldNames() {
			if vec.Get(name).OK {
				t.Errorf("field %s should be insufficient on an empty window", name)
			}
		}
	})

	// 3 trades: below MinTrades(4), above MomentumLookback(2)
	w.ApplyTrade(trade(domain.SideBuy, 1, 100))
	w.ApplyTrade(trade(domain.SideBuy, 1, 102))
	w.ApplyTrade(trade(domain.SideBuy, 1, 105))

	t.Run("Per-Field Thresholds", func(t *testing.T) {
		vec := snapshot(w)
		if vec.CVD.OK || vec.BuyRatio.OK {
			t.Error("cvd/buy_ratio need MinTrades samples")
		}
		if !vec.MomentumBps.OK {
			t.Error("momentum needs only lookback+1 samples")
		}
		if !vec.LastPrice.OK {
			t.Error("last_price needs a single trade")
		}
		if vec.FundingBps.OK || vec.OIDeltaPct.OK || vec.MarkPremiumBps.OK {
			t.Error("context fields should stay insufficient without snapshots")
		}
	})

	// 4th trade crosses MinTrades
	w.ApplyTrade(trade(domain.SideSell, 1, 104))

	t.Run("Thresholds Crossed", func(t *testing.T) {
		vec := snapshot(w)
		if !vec.CVD.OK || !vec.BuyRatio.OK {
			t.Error("cvd/buy_ratio should be available at MinTrades samples")
		}
		// CVD = +1 +1 +1 -1 = 2
		if vec.CVD.Value != 2 {
			t.Errorf("CVD = %v, want 2", vec.CVD.Value)
		}
		// BuyRatio = 3 / 4
		if vec.BuyRatio.Value != 0.75 {
			t.Errorf("BuyRatio = %v, want 0.75", vec.BuyRatio.Value)
		}
	})
}

func TestSymbolWindow_CVDIncremental(t *testing.T) {
	t.Run("Net Sum Within Capacity", func(t *testing.T) {
		w := feature.NewSymbolWindow("BTC", testWindowConfig())

		// Signed sequence: +1.5 +2.5 -0.5 -2.0 => net 1.5
		w.ApplyTrade(trade(domain.SideBuy, 1.5, 100))
		w.ApplyTrade(trade(domain.SideBuy, 2.5, 100))
		w.ApplyTrade(trade(domain.SideSell, 0.5, 100))
		w.ApplyTrade(trade(domain.SideSell, 2.0, 100))

		vec := snapshot(w)
		if !vec.CVD.OK {
			t.Fatal("CVD should be available")
		}
		if vec.CVD.Value != 1.5 {
			t.Errorf("CVD = %v, want 1.5", vec.CVD.Value)
		}
	})

	t.Run("Matches Batch Recompute After Eviction", func(t *testing.T) {
		cfg := testWindowConfig()
		cfg.TradeCapacity = 4
		cfg.MinTrades = 2
		cfg.MomentumLookback = 1
		w := feature.NewSymbolWindow("BTC", cfg)

		// 6 trades into a 4-slot ring: the ring retains the last 4.
		// Sequence: +1 +1 +1 +1 -2 -2, retained: +1 +1 -2 -2 => -2
		sides := []string{
			domain.SideBuy, domain.SideBuy, domain.SideBuy,
			domain.SideBuy, domain.SideSell, domain.SideSell,
		}
		sizes := []float64{1, 1, 1, 1, 2, 2}

		var batch float64
		for i, side := range sides {
			w.ApplyTrade(trade(side, sizes[i], 100))
			if i >= len(sides)-cfg.TradeCapacity {
				if side == domain.SideBuy {
					batch += sizes[i]
				} else {
					batch -= sizes[i]
				}
			}
		}

		vec := snapshot(w)
		if vec.CVD.Value != batch {
			t.Errorf("incremental CVD = %v, batch recompute = %v", vec.CVD.Value, batch)
		}
		if vec.CVD.Value != -2 {
			t.Errorf("CVD = %v, want -2", vec.CVD.Value)
		}
	})
}

func TestSymbolWindow_Momentum(t *testing.T) {
	w := feature.NewSymbolWindow("BTC", testWindowConfig())

	// Lookback 2: newest 105 vs 100 two positions back
	// => (105/100 - 1) * 10000 = 500 bps
	w.ApplyTrade(trade(domain.SideBuy, 1, 100))
	w.ApplyTrade(trade(domain.SideBuy, 1, 102))
	w.ApplyTrade(trade(domain.SideBuy, 1, 105))

	vec := snapshot(w)
	if !vec.MomentumBps.OK {
		t.Fatal("momentum should be available at lookback+1 samples")
	}
	if vec.MomentumBps.Value != 500 {
		t.Errorf("MomentumBps = %v, want 500", vec.MomentumBps.Value)
	}

	t.Run("Safety: Zero Back Price", func(t *testing.T) {
		w := feature.NewSymbolWindow("BTC", testWindowConfig())
		w.ApplyTrade(trade(domain.SideBuy, 1, 0))
		w.ApplyTrade(trade(domain.SideBuy, 1, 100))
		w.ApplyTrade(trade(domain.SideBuy, 1, 105))

		vec := snapshot(w)
		if vec.MomentumBps.OK {
			t.Error("zero denominator must yield insufficient data, not infinity")
		}
	})
}

func TestSymbolWindow_ContextFeatures(t *testing.T) {
	w := feature.NewSymbolWindow("BTC", testWindowConfig())

	ctx := func(oi, funding, oracle, mark float64) *event.ContextEvent {
		return &event.ContextEvent{
			Symbol:       "BTC",
			OpenInterest: decimal.NewFromFloat(oi),
			FundingRate:  decimal.NewFromFloat(funding),
			OraclePrice:  decimal.NewFromFloat(oracle),
			MarkPrice:    decimal.NewFromFloat(mark),
			Time:         time.Now(),
		}
	}

	// First snapshot: funding 0.0001 => 1 bps, mark 100.5 vs oracle 100 => 50 bps
	w.ApplyContext(ctx(200, 0.0001, 100, 100.5))

	vec := snapshot(w)
	if !vec.FundingBps.OK || vec.FundingBps.Value != 1 {
		t.Errorf("FundingBps = %+v, want {1 true}", vec.FundingBps)
	}
	if !vec.MarkPremiumBps.OK || vec.MarkPremiumBps.Value != 50 {
		t.Errorf("MarkPremiumBps = %+v, want {50 true}", vec.MarkPremiumBps)
	}
	if vec.OIDeltaPct.OK {
		t.Error("oi_delta needs lookback+1 snapshots")
	}

	// Second snapshot: OI 200 -> 220 => +10%
	w.ApplyContext(ctx(220, 0.0001, 100, 100.5))

	vec = snapshot(w)
	if !vec.OIDeltaPct.OK || vec.OIDeltaPct.Value != 10 {
		t.Errorf("OIDeltaPct = %+v, want {10 true}", vec.OIDeltaPct)
	}

	t.Run("Safety: Zero Oracle", func(t *testing.T) {
		w := feature.NewSymbolWindow("BTC", testWindowConfig())
		w.ApplyContext(ctx(200, 0.0001, 0, 100.5))

		vec := snapshot(w)
		if vec.MarkPremiumBps.OK {
			t.Error("zero oracle price must yield insufficient data")
		}
	})
}
