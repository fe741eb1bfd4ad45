package event

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeEvent is one normalized trade print from the feed. Side is the
// aggressor side ("BUY" or "SELL"); Time is the exchange timestamp.
type TradeEvent struct {
	Symbol string
	Side   string
	Price  decimal.Decimal
	Size   decimal.Decimal
	Time   time.Time
}

// ContextEvent is one normalized per-symbol asset-context snapshot: open
// interest, funding rate and the oracle/mark price pair.
type ContextEvent struct {
	Symbol       string
	OpenInterest decimal.Decimal
	FundingRate  decimal.Decimal
	OraclePrice  decimal.Decimal
	MarkPrice    decimal.Decimal
	Time         time.Time
}

// Sink consumes normalized feed events. Calls happen on the feed read
// goroutine; implementations must copy what they keep and return quickly.
// Events may be pooled: they are only valid for the duration of the call.
type Sink interface {
	ApplyTrade(ev *TradeEvent)
	ApplyContext(ev *ContextEvent)
}
