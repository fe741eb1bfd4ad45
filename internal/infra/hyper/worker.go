package hyper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sentinel_go/internal/event"
	"sentinel_go/internal/infra"
)

// Worker handles the market-data WebSocket connection. It subscribes to the
// trades and activeAssetCtx channels for every configured symbol, normalizes
// each frame at the boundary and applies it synchronously to the sink. One
// malformed message never takes down the read loop.
type Worker struct {
	url     string
	symbols []string
	sink    event.Sink
	metrics *infra.Metrics

	conn      *websocket.Conn
	mu        sync.RWMutex
	writeMu   sync.Mutex
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewWorker creates a new feed worker.
func NewWorker(url string, symbols []string, sink event.Sink, metrics *infra.Metrics) *Worker {
	return &Worker{
		url:     url,
		symbols: symbols,
		sink:    sink,
		metrics: metrics,
	}
}

// Connect starts the WebSocket connection loop.
func (w *Worker) Connect(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.connectionLoop(ctx)
	return nil
}

// connectionLoop reconnects forever with capped exponential backoff. Every
// successful connect resubscribes the full symbol set before reads resume.
func (w *Worker) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			slog.Warn("Feed connection failed", slog.Any("error", err), slog.Int("retry", retryCount))
			w.metrics.RecordReconnect()
			delay := infra.CalculateBackoff(retryCount)
			retryCount++
			if retryCount > maxRetries {
				retryCount = 0
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		} else {
			retryCount = 0
			w.readLoop(ctx)
		}
	}
}

func (w *Worker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.mu.Unlock()
	w.metrics.IncrementConnections()

	if err := w.subscribe(); err != nil {
		w.closeConnection()
		return err
	}

	go w.pingLoop(ctx)
	slog.Info("Feed Connected", slog.Int("symbols", len(w.symbols)))
	return nil
}

// subscribe sends one frame per (channel, symbol) pair.
func (w *Worker) subscribe() error {
	for _, sym := range w.symbols {
		for _, ch := range []string{channelTrades, channelAssetCtx} {
			req := subscribeRequest{
				Method:       "subscribe",
				Subscription: subscription{Type: ch, Coin: sym},
			}
			b, _ := json.Marshal(req)
			if err := w.threadSafeWrite(websocket.TextMessage, b); err != nil {
				return fmt.Errorf("subscribe %s/%s: %w", ch, sym, err)
			}
		}
	}
	return nil
}

func (w *Worker) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	ping, _ := json.Marshal(pingRequest{Method: "ping"})
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !w.IsConnected() {
				return
			}
			w.threadSafeWrite(websocket.TextMessage, ping)
		}
	}
}

func (w *Worker) threadSafeWrite(msgType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.conn == nil {
		return fmt.Errorf("no conn")
	}
	return w.conn.WriteMessage(msgType, data)
}

func (w *Worker) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.mu.RLock()
		if w.conn == nil {
			w.mu.RUnlock()
			return
		}
		w.conn.SetReadDeadline(time.Now().Add(readTimeout))
		w.mu.RUnlock()

		_, msg, err := w.conn.ReadMessage()
		if err != nil {
			slog.Warn("Feed read failed, reconnecting", slog.Any("error", err))
			w.closeConnection()
			return
		}
		w.handleMessage(msg)
	}
}

// handleMessage routes one server frame. Parse failures are counted and
// dropped; the loop keeps reading.
func (w *Worker) handleMessage(msg []byte) {
	var env wsMessage
	if err := json.Unmarshal(msg, &env); err != nil {
		w.metrics.RecordDropped()
		slog.Warn("Unparseable feed frame", slog.Any("error", err))
		return
	}

	switch env.Channel {
	case channelTrades:
		w.handleTrades(env.Data)
	case channelAssetCtx:
		w.handleAssetCtx(env.Data)
	case channelPong, channelSubResp:
		// keep-alive and subscription acks
	case channelError:
		w.metrics.RecordError()
		slog.Warn("Feed error frame", slog.String("data", string(env.Data)))
	default:
		w.metrics.RecordDropped()
	}
}

func (w *Worker) handleTrades(data json.RawMessage) {
	var trades []wireTrade
	if err := json.Unmarshal(data, &trades); err != nil {
		w.metrics.RecordDropped()
		slog.Warn("Malformed trades payload", slog.Any("error", err))
		return
	}

	for i := range trades {
		ev, err := normalizeTrade(&trades[i])
		if err != nil {
			// One bad print must not stall its neighbors
			w.metrics.RecordDropped()
			slog.Warn("Trade dropped", slog.String("coin", trades[i].Coin), slog.Any("error", err))
			continue
		}
		start := time.Now()
		w.sink.ApplyTrade(ev)
		w.metrics.RecordTradeApplied(time.Since(start).Nanoseconds())
		event.ReleaseTradeEvent(ev)
	}
}

func (w *Worker) handleAssetCtx(data json.RawMessage) {
	var ctx wireAssetCtx
	if err := json.Unmarshal(data, &ctx); err != nil {
		w.metrics.RecordDropped()
		slog.Warn("Malformed asset ctx payload", slog.Any("error", err))
		return
	}

	ev, err := normalizeAssetCtx(&ctx, time.Now())
	if err != nil {
		w.metrics.RecordDropped()
		slog.Warn("Asset ctx dropped", slog.String("coin", ctx.Coin), slog.Any("error", err))
		return
	}
	w.sink.ApplyContext(ev)
	w.metrics.RecordContextApplied()
	event.ReleaseContextEvent(ev)
}

func (w *Worker) closeConnection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	if w.connected {
		w.connected = false
		w.metrics.DecrementConnections()
	}
}

// IsConnected reports whether a live connection is held.
func (w *Worker) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

// Disconnect stops the loops and closes the connection.
func (w *Worker) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConnection()
	w.wg.Wait()
}
