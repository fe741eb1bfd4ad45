package hyper

import (
	"testing"
	"time"

	"sentinel_go/internal/domain"
	"sentinel_go/internal/event"
	"sentinel_go/internal/infra"
)

// recordingSink copies applied events; the worker releases them back to the
// pool right after the call, so holding pointers would be a use-after-release.
type recordingSink struct {
	trades []event.TradeEvent
	ctxs   []event.ContextEvent
}

func (s *recordingSink) ApplyTrade(ev *event.TradeEvent) {
	s.trades = append(s.trades, *ev)
}

func (s *recordingSink) ApplyContext(ev *event.ContextEvent) {
	s.ctxs = append(s.ctxs, *ev)
}

func newTestWorker(sink event.Sink) (*Worker, *infra.Metrics) {
	m := &infra.Metrics{}
	return NewWorker("wss://example.invalid/ws", []string{"BTC"}, sink, m), m
}

func TestNormalizeTrade(t *testing.T) {
	tests := []struct {
		name    string
		trade   wireTrade
		wantErr bool
	}{
		{"aggressor buy", wireTrade{Coin: "BTC", Side: "B", Px: "65000.5", Sz: "0.25", Time: 1700000000000}, false},
		{"aggressor sell", wireTrade{Coin: "ETH", Side: "A", Px: "3200", Sz: "1.5", Time: 1700000000000}, false},
		{"unknown side", wireTrade{Coin: "BTC", Side: "X", Px: "65000", Sz: "1"}, true},
		{"bad price", wireTrade{Coin: "BTC", Side: "B", Px: "sixty-five", Sz: "1"}, true},
		{"bad size", wireTrade{Coin: "BTC", Side: "B", Px: "65000", Sz: ""}, true},
		{"zero size", wireTrade{Coin: "BTC", Side: "B", Px: "65000", Sz: "0"}, true},
		{"missing coin", wireTrade{Side: "B", Px: "65000", Sz: "1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := normalizeTrade(&tt.trade)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("normalizeTrade: %v", err)
			}
			defer event.ReleaseTradeEvent(ev)

			if ev.Symbol != tt.trade.Coin {
				t.Errorf("symbol = %q, want %q", ev.Symbol, tt.trade.Coin)
			}
			wantSide := domain.SideBuy
			if tt.trade.Side == "A" {
				wantSide = domain.SideSell
			}
			if ev.Side != wantSide {
				t.Errorf("side = %q, want %q", ev.Side, wantSide)
			}
			if ev.Time.UnixMilli() != tt.trade.Time {
				t.Errorf("time = %d, want %d", ev.Time.UnixMilli(), tt.trade.Time)
			}
		})
	}
}

func TestHandleMessage_MalformedIsolation(t *testing.T) {
	sink := &recordingSink{}
	w, m := newTestWorker(sink)

	// One frame carrying a malformed print between two valid ones
	frame := []byte(`{"channel":"trades","data":[` +
		`{"coin":"BTC","side":"B","px":"65000","sz":"0.5","time":1700000000000},` +
		`{"coin":"BTC","side":"?","px":"65001","sz":"0.5","time":1700000000001},` +
		`{"coin":"BTC","side":"A","px":"65002","sz":"0.25","time":1700000000002}]}`)

	w.handleMessage(frame)

	if len(sink.trades) != 2 {
		t.Fatalf("Expected 2 applied trades, got %d", len(sink.trades))
	}
	if sink.trades[0].Side != domain.SideBuy || sink.trades[1].Side != domain.SideSell {
		t.Error("valid prints around the malformed one must both be applied in order")
	}

	snap := m.Snapshot()
	if snap.MessagesDropped != 1 {
		t.Errorf("MessagesDropped = %d, want 1", snap.MessagesDropped)
	}
	if snap.TradesApplied != 2 {
		t.Errorf("TradesApplied = %d, want 2", snap.TradesApplied)
	}
}

func TestHandleMessage_AssetCtx(t *testing.T) {
	sink := &recordingSink{}
	w, m := newTestWorker(sink)

	frame := []byte(`{"channel":"activeAssetCtx","data":{"coin":"BTC","ctx":{` +
		`"funding":"0.0000125","openInterest":"8190.5","oraclePx":"65000","markPx":"65010",` +
		`"midPx":"65005","premium":"0.00015","prevDayPx":"64000","dayNtlVlm":"120000000"}}}`)

	before := time.Now()
	w.handleMessage(frame)

	if len(sink.ctxs) != 1 {
		t.Fatalf("Expected 1 applied context, got %d", len(sink.ctxs))
	}
	ctx := sink.ctxs[0]
	if ctx.Symbol != "BTC" {
		t.Errorf("symbol = %q", ctx.Symbol)
	}
	if !ctx.MarkPrice.GreaterThan(ctx.OraclePrice) {
		t.Error("mark/oracle decimals lost in normalization")
	}
	if ctx.Time.Before(before) {
		t.Error("context event should carry receipt time")
	}
	if m.Snapshot().ContextsApplied != 1 {
		t.Error("context apply not counted")
	}

	t.Run("Malformed Ctx Dropped", func(t *testing.T) {
		w.handleMessage([]byte(`{"channel":"activeAssetCtx","data":{"coin":"BTC","ctx":{"funding":"??"}}}`))
		if len(sink.ctxs) != 1 {
			t.Error("malformed context must not reach the sink")
		}
		if m.Snapshot().MessagesDropped != 1 {
			t.Error("malformed context must be counted")
		}
	})
}

func TestHandleMessage_ControlFrames(t *testing.T) {
	sink := &recordingSink{}
	w, m := newTestWorker(sink)

	w.handleMessage([]byte(`{"channel":"pong"}`))
	w.handleMessage([]byte(`{"channel":"subscriptionResponse","data":{"method":"subscribe"}}`))

	if len(sink.trades)+len(sink.ctxs) != 0 {
		t.Error("control frames must not produce events")
	}
	if m.Snapshot().MessagesDropped != 0 {
		t.Error("control frames are not drops")
	}

	t.Run("Unparseable Frame Counted", func(t *testing.T) {
		w.handleMessage([]byte(`{not json`))
		if m.Snapshot().MessagesDropped != 1 {
			t.Error("unparseable frame must be counted as dropped")
		}
	})
}
