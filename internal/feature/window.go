package feature

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sentinel_go/internal/domain"
	"sentinel_go/internal/event"
)

// WindowConfig sizes the per-symbol rings and look-backs. Validated by the
// configuration layer before any window is built.
type WindowConfig struct {
	TradeCapacity    int // trade ring slots
	ContextCapacity  int // context ring slots
	MomentumLookback int // trades back for momentum_bps, < TradeCapacity
	OIDeltaLookback  int // snapshots back for oi_delta_pct, < ContextCapacity
	MinTrades        int // floor before cvd/buy_ratio report OK
}

// tradeSample is one trade ring slot.
type tradeSample struct {
	signedSize decimal.Decimal // +size for aggressor buys, -size for sells
	size       decimal.Decimal
	price      decimal.Decimal
	ts         time.Time
}

// contextSample is one context ring slot.
type contextSample struct {
	openInterest decimal.Decimal
	fundingRate  decimal.Decimal
	oraclePrice  decimal.Decimal
	markPrice    decimal.Decimal
	ts           time.Time
}

// SymbolWindow holds the rolling state for one symbol.
// OPTIMIZED: Uses Ring Buffers with running sums to ensure O(1) per apply;
// the volume-delta total is adjusted incrementally, never recomputed.
type SymbolWindow struct {
	mu     sync.Mutex
	symbol string
	cfg    WindowConfig

	// Trade ring. head is the next write position (oldest slot when full).
	trades    []tradeSample
	head      int
	count     int
	cvd       decimal.Decimal // running signed-size sum over the ring
	buyVolume decimal.Decimal // running aggressor-buy volume over the ring
	volume    decimal.Decimal // running total volume over the ring

	// Context ring
	ctxs     []contextSample
	ctxHead  int
	ctxCount int
}

// NewSymbolWindow creates a window with fixed-size ring allocations.
func NewSymbolWindow(symbol string, cfg WindowConfig) *SymbolWindow {
	if cfg.MomentumLookback >= cfg.TradeCapacity {
		panic("SymbolWindow: momentum lookback must be less than trade capacity")
	}
	if cfg.OIDeltaLookback >= cfg.ContextCapacity {
		panic("SymbolWindow: oi delta lookback must be less than context capacity")
	}
	return &SymbolWindow{
		symbol: symbol,
		cfg:    cfg,
		trades: make([]tradeSample, cfg.TradeCapacity),
		ctxs:   make([]contextSample, cfg.ContextCapacity),
	}
}

// ApplyTrade folds one trade print into the ring and running sums.
func (w *SymbolWindow) ApplyTrade(ev *event.TradeEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	signed := ev.Size
	if ev.Side != domain.SideBuy {
		signed = ev.Size.Neg()
	}

	// If full, retire the oldest sample from the running sums before overwriting
	if w.count == w.cfg.TradeCapacity {
		oldest := &w.trades[w.head]
		w.cvd = w.cvd.Sub(oldest.signedSize)
		w.volume = w.volume.Sub(oldest.size)
		if oldest.signedSize.Sign() > 0 {
			w.buyVolume = w.buyVolume.Sub(oldest.size)
		}
	}

	slot := &w.trades[w.head]
	slot.signedSize = signed
	slot.size = ev.Size
	slot.price = ev.Price
	slot.ts = ev.Time

	w.cvd = w.cvd.Add(signed)
	w.volume = w.volume.Add(ev.Size)
	if signed.Sign() > 0 {
		w.buyVolume = w.buyVolume.Add(ev.Size)
	}

	w.head = (w.head + 1) % w.cfg.TradeCapacity
	if w.count < w.cfg.TradeCapacity {
		w.count++
	}
}

// ApplyContext folds one asset-context snapshot into the context ring.
func (w *SymbolWindow) ApplyContext(ev *event.ContextEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	slot := &w.ctxs[w.ctxHead]
	slot.openInterest = ev.OpenInterest
	slot.fundingRate = ev.FundingRate
	slot.oraclePrice = ev.OraclePrice
	slot.markPrice = ev.MarkPrice
	slot.ts = ev.Time

	w.ctxHead = (w.ctxHead + 1) % w.cfg.ContextCapacity
	if w.ctxCount < w.cfg.ContextCapacity {
		w.ctxCount++
	}
}

// tradeAt returns the sample k positions back from the newest one.
// Caller holds the lock and has verified k < count.
func (w *SymbolWindow) tradeAt(k int) *tradeSample {
	idx := w.head - 1 - k
	if idx < 0 {
		idx += w.cfg.TradeCapacity
	}
	return &w.trades[idx]
}

// ctxAt returns the context snapshot k positions back from the newest one.
func (w *SymbolWindow) ctxAt(k int) *contextSample {
	idx := w.ctxHead - 1 - k
	if idx < 0 {
		idx += w.cfg.ContextCapacity
	}
	return &w.ctxs[idx]
}

var (
	decOne = decimal.NewFromInt(1)
	decBps = decimal.NewFromInt(10000)
	decPct = decimal.NewFromInt(100)
)

// Snapshot computes a point-in-time FeatureVector over current ring state.
// Fields without enough samples, or whose denominator is not positive, stay
// not-OK rather than reporting zero or infinity.
func (w *SymbolWindow) Snapshot(now time.Time) domain.FeatureVector {
	w.mu.Lock()
	defer w.mu.Unlock()

	vec := domain.FeatureVector{Symbol: w.symbol, At: now}

	if w.count > 0 {
		vec.LastPrice = domain.Field{Value: w.tradeAt(0).price.InexactFloat64(), OK: true}
	}

	if w.count >= w.cfg.MinTrades {
		vec.CVD = domain.Field{Value: w.cvd.InexactFloat64(), OK: true}
		if w.volume.Sign() > 0 {
			vec.BuyRatio = domain.Field{Value: w.buyVolume.Div(w.volume).InexactFloat64(), OK: true}
		}
	}

	if w.count > w.cfg.MomentumLookback {
		newest := w.tradeAt(0)
		back := w.tradeAt(w.cfg.MomentumLookback)
		if back.price.Sign() > 0 {
			move := newest.price.Div(back.price).Sub(decOne).Mul(decBps)
			vec.MomentumBps = domain.Field{Value: move.InexactFloat64(), OK: true}
		}
	}

	if w.ctxCount > 0 {
		latest := w.ctxAt(0)
		vec.FundingBps = domain.Field{Value: latest.fundingRate.Mul(decBps).InexactFloat64(), OK: true}
		if latest.oraclePrice.Sign() > 0 {
			prem := latest.markPrice.Div(latest.oraclePrice).Sub(decOne).Mul(decBps)
			vec.MarkPremiumBps = domain.Field{Value: prem.InexactFloat64(), OK: true}
		}
	}

	if w.ctxCount > w.cfg.OIDeltaLookback {
		latest := w.ctxAt(0)
		back := w.ctxAt(w.cfg.OIDeltaLookback)
		if back.openInterest.Sign() > 0 {
			delta := latest.openInterest.Div(back.openInterest).Sub(decOne).Mul(decPct)
			vec.OIDeltaPct = domain.Field{Value: delta.InexactFloat64(), OK: true}
		}
	}

	return vec
}

// TradeCount reports how many trade samples the ring currently holds.
func (w *SymbolWindow) TradeCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}
