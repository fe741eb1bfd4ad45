package event

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var zeroTime time.Time

// EventPool provides sync.Pool for high-frequency event allocation.
// Use this to reduce GC pressure in the hotpath.
//
// Usage:
//
//	ev := AcquireTradeEvent()
//	ev.Symbol = "BTC"
//	// ... hand to sink ...
//	ReleaseTradeEvent(ev)  // Return to pool after the sink call returns
var tradePool = sync.Pool{
	New: func() interface{} {
		return &TradeEvent{}
	},
}

// AcquireTradeEvent gets a TradeEvent from the pool.
// The returned event has zero values and must be initialized.
func AcquireTradeEvent() *TradeEvent {
	return tradePool.Get().(*TradeEvent)
}

// ReleaseTradeEvent returns a TradeEvent to the pool.
// The event is reset to zero values before being pooled. Callers must not
// release before every sink that saw the event has returned.
func ReleaseTradeEvent(ev *TradeEvent) {
	if ev == nil {
		return
	}
	// Reset all fields to zero values
	ev.Symbol = ""
	ev.Side = ""
	ev.Price = decimal.Decimal{}
	ev.Size = decimal.Decimal{}
	ev.Time = zeroTime

	tradePool.Put(ev)
}

// ContextEvent pool
var contextPool = sync.Pool{
	New: func() interface{} {
		return &ContextEvent{}
	},
}

// AcquireContextEvent gets a ContextEvent from the pool.
func AcquireContextEvent() *ContextEvent {
	return contextPool.Get().(*ContextEvent)
}

// ReleaseContextEvent returns a ContextEvent to the pool.
func ReleaseContextEvent(ev *ContextEvent) {
	if ev == nil {
		return
	}
	ev.Symbol = ""
	ev.OpenInterest = decimal.Decimal{}
	ev.FundingRate = decimal.Decimal{}
	ev.OraclePrice = decimal.Decimal{}
	ev.MarkPrice = decimal.Decimal{}
	ev.Time = zeroTime

	contextPool.Put(ev)
}

// Warmup pre-allocates event objects to reduce GC pressure at startup.
// It acquires and releases a batch of events.
func Warmup() {
	const batchSize = 1000

	// Warmup Trade Events
	tradeEvs := make([]*TradeEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		tradeEvs = append(tradeEvs, AcquireTradeEvent())
	}
	for _, ev := range tradeEvs {
		ReleaseTradeEvent(ev)
	}

	// Warmup Context Events
	ctxEvs := make([]*ContextEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		ctxEvs = append(ctxEvs, AcquireContextEvent())
	}
	for _, ev := range ctxEvs {
		ReleaseContextEvent(ev)
	}
}
