package hyper

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"sentinel_go/internal/domain"
	"sentinel_go/internal/event"
)

const (
	maxRetries   = 10
	pingInterval = 25 * time.Second
	readTimeout  = 35 * time.Second

	channelTrades   = "trades"
	channelAssetCtx = "activeAssetCtx"
	channelPong     = "pong"
	channelSubResp  = "subscriptionResponse"
	channelError    = "error"

	// Aggressor side tags on the wire
	sideBid = "B"
	sideAsk = "A"
)

// subscribeRequest is one subscription frame; the feed wants one frame per
// (channel, coin) pair.
type subscribeRequest struct {
	Method       string       `json:"method"`
	Subscription subscription `json:"subscription"`
}

type subscription struct {
	Type string `json:"type"`
	Coin string `json:"coin"`
}

// pingRequest keeps the connection alive; the feed answers on the pong channel.
type pingRequest struct {
	Method string `json:"method"`
}

// wsMessage is the envelope of every server frame.
type wsMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// wireTrade is one trade print as delivered on the trades channel.
type wireTrade struct {
	Coin  string     `json:"coin"`
	Side  string     `json:"side"` // "B" aggressor buy, "A" aggressor sell
	Px    string     `json:"px"`
	Sz    string     `json:"sz"`
	Time  int64      `json:"time"` // ms
	Hash  string     `json:"hash"`
	Tid   int64      `json:"tid"`
	Users [2]*string `json:"users,omitempty"`
}

// wireAssetCtx is the per-coin context payload on the activeAssetCtx channel.
type wireAssetCtx struct {
	Coin string `json:"coin"`
	Ctx  struct {
		Funding      string          `json:"funding"`
		OpenInterest string          `json:"openInterest"`
		OraclePx     string          `json:"oraclePx"`
		MarkPx       string          `json:"markPx"`
		MidPx        string          `json:"midPx"`
		Premium      string          `json:"premium"`
		PrevDayPx    string          `json:"prevDayPx"`
		DayNtlVlm    string          `json:"dayNtlVlm"`
		ImpactPxs    json.RawMessage `json:"impactPxs"`
	} `json:"ctx"`
}

// normalizeTrade converts a wire trade into a pooled TradeEvent. Any field
// that does not parse makes the whole print malformed; the caller drops it
// and moves on to the next one.
func normalizeTrade(t *wireTrade) (*event.TradeEvent, error) {
	if t.Coin == "" {
		return nil, fmt.Errorf("trade without coin")
	}

	var side string
	switch t.Side {
	case sideBid:
		side = domain.SideBuy
	case sideAsk:
		side = domain.SideSell
	default:
		return nil, fmt.Errorf("unknown trade side %q", t.Side)
	}

	price, err := decimal.NewFromString(t.Px)
	if err != nil {
		return nil, fmt.Errorf("trade price %q: %w", t.Px, err)
	}
	size, err := decimal.NewFromString(t.Sz)
	if err != nil {
		return nil, fmt.Errorf("trade size %q: %w", t.Sz, err)
	}
	if price.Sign() < 0 || size.Sign() <= 0 {
		return nil, fmt.Errorf("trade out of range: px=%s sz=%s", t.Px, t.Sz)
	}

	ev := event.AcquireTradeEvent()
	ev.Symbol = t.Coin
	ev.Side = side
	ev.Price = price
	ev.Size = size
	ev.Time = time.UnixMilli(t.Time)
	return ev, nil
}

// normalizeAssetCtx converts a wire context payload into a pooled
// ContextEvent. The feed omits a timestamp on this channel, so receipt time
// stands in for it.
func normalizeAssetCtx(c *wireAssetCtx, now time.Time) (*event.ContextEvent, error) {
	if c.Coin == "" {
		return nil, fmt.Errorf("asset ctx without coin")
	}

	funding, err := decimal.NewFromString(c.Ctx.Funding)
	if err != nil {
		return nil, fmt.Errorf("funding %q: %w", c.Ctx.Funding, err)
	}
	oi, err := decimal.NewFromString(c.Ctx.OpenInterest)
	if err != nil {
		return nil, fmt.Errorf("open interest %q: %w", c.Ctx.OpenInterest, err)
	}
	oracle, err := decimal.NewFromString(c.Ctx.OraclePx)
	if err != nil {
		return nil, fmt.Errorf("oracle px %q: %w", c.Ctx.OraclePx, err)
	}
	mark, err := decimal.NewFromString(c.Ctx.MarkPx)
	if err != nil {
		return nil, fmt.Errorf("mark px %q: %w", c.Ctx.MarkPx, err)
	}

	ev := event.AcquireContextEvent()
	ev.Symbol = c.Coin
	ev.OpenInterest = oi
	ev.FundingRate = funding
	ev.OraclePrice = oracle
	ev.MarkPrice = mark
	ev.Time = now
	return ev, nil
}
