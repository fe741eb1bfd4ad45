package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sentinel_go/internal/domain"
	"sentinel_go/internal/infra"
	"sentinel_go/internal/rules"
)

const maxPlaceAttempts = 2

var (
	decOne = decimal.NewFromInt(1)
	decBps = decimal.NewFromInt(10000)
)

// Bridge receives every fired trigger after its protective order settled,
// successfully or not. Submit must return without waiting.
type Bridge interface {
	Submit(trigger *domain.TriggerEvent, side string, size decimal.Decimal, ack *domain.OrderAck)
}

// Dispatcher turns fired triggers into protective orders. One trigger ID is
// acted on at most once for the process lifetime, and each dispatch runs on
// its own goroutine so a slow venue never stalls evaluation.
type Dispatcher struct {
	executor domain.ExecutionClient
	bridge   Bridge
	journal  domain.TriggerJournal
	metrics  *infra.Metrics

	accountSize  decimal.Decimal
	sizeFraction decimal.Decimal
	orderTimeout time.Duration

	mu   sync.Mutex
	seen map[string]struct{}

	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewDispatcher(cfg *infra.Config, executor domain.ExecutionClient, bridge Bridge, journal domain.TriggerJournal, metrics *infra.Metrics) *Dispatcher {
	return &Dispatcher{
		executor:     executor,
		bridge:       bridge,
		journal:      journal,
		metrics:      metrics,
		accountSize:  cfg.Execution.AccountSizeUSD,
		sizeFraction: cfg.Execution.SizeFraction,
		orderTimeout: cfg.OrderTimeout(),
		seen:         make(map[string]struct{}),
		logger:       slog.Default().With("module", "dispatcher"),
	}
}

// Dispatch hands a trigger over and returns immediately. A trigger ID that
// was already dispatched is dropped.
func (d *Dispatcher) Dispatch(trigger *domain.TriggerEvent, action rules.Action) {
	if !d.markSeen(trigger.ID) {
		d.logger.Warn("Duplicate trigger dropped", "trigger", trigger.ID, "error", domain.ErrDuplicateTrigger)
		d.metrics.RecordError()
		return
	}
	d.wg.Add(1)
	go d.process(trigger, action)
}

// Wait blocks until all in-flight dispatches have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) markSeen(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, dup := d.seen[id]; dup {
		return false
	}
	d.seen[id] = struct{}{}
	return true
}

func (d *Dispatcher) process(trigger *domain.TriggerEvent, action rules.Action) {
	defer d.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Panic in dispatch", "trigger", trigger.ID, "panic", r)
			d.metrics.RecordError()
		}
	}()

	order, err := d.buildOrder(trigger, action)
	if err != nil {
		d.logger.Error("Cannot size protective order", "trigger", trigger.ID, "error", err)
		d.metrics.RecordOrderFailed()
		d.saveOrder(trigger.ID, domain.OrderRequest{Symbol: trigger.Symbol, Side: action.Side, Type: action.OrderType}, nil, 0, err)
		if action.Analyze {
			d.bridge.Submit(trigger, action.Side, decimal.Zero, nil)
		}
		return
	}

	ack, attempts, err := d.placeWithRetry(order)
	if err != nil {
		d.metrics.RecordOrderFailed()
		d.logger.Error("Protective order failed",
			"trigger", trigger.ID, "symbol", order.Symbol, "attempts", attempts, "error", err)
	} else {
		d.metrics.RecordOrderPlaced()
		d.logger.Info("Protective Order Placed",
			"trigger", trigger.ID, "symbol", order.Symbol, "side", order.Side,
			"size", order.Size.String(), "order_id", ack.OrderID, "attempts", attempts)
	}

	d.saveOrder(trigger.ID, order, ack, attempts, err)

	if action.Analyze {
		d.bridge.Submit(trigger, order.Side, order.Size, ack)
	}
}

// buildOrder sizes the order off the trigger snapshot: a fixed fraction of
// the reference account converted to base units at the trigger price.
func (d *Dispatcher) buildOrder(trigger *domain.TriggerEvent, action rules.Action) (domain.OrderRequest, error) {
	price := trigger.Features.LastPrice
	if !price.OK || price.Value <= 0 {
		return domain.OrderRequest{}, fmt.Errorf("sizing %s: no trigger price: %w", trigger.Symbol, domain.ErrInsufficientData)
	}
	refPrice := decimal.NewFromFloat(price.Value)

	fraction := action.SizeFraction
	if !fraction.IsPositive() {
		fraction = d.sizeFraction
	}

	size := d.accountSize.Mul(fraction).Div(refPrice).Round(6)
	if !size.IsPositive() {
		return domain.OrderRequest{}, fmt.Errorf("sizing %s: computed size %s rounds away", trigger.Symbol, size)
	}

	order := domain.OrderRequest{
		ClientOrderID: trigger.ID,
		Symbol:        trigger.Symbol,
		Side:          action.Side,
		Type:          action.OrderType,
		Size:          size,
	}
	if action.OrderType == domain.OrderTypeLimit {
		offset := decOne.Add(action.LimitOffsetBps.Div(decBps))
		order.Price = refPrice.Mul(offset)
	}
	return order, nil
}

// placeWithRetry makes at most two attempts, retrying only errors the venue
// might answer differently on the second try. Each attempt gets the full
// order timeout.
func (d *Dispatcher) placeWithRetry(order domain.OrderRequest) (*domain.OrderAck, int, error) {
	var lastErr error
	for attempt := 1; attempt <= maxPlaceAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), d.orderTimeout)
		ack, err := d.executor.PlaceOrder(ctx, order)
		cancel()

		if err == nil {
			return ack, attempt, nil
		}
		lastErr = err
		if !domain.IsRetriable(err) {
			return nil, attempt, err
		}
		if attempt < maxPlaceAttempts {
			d.logger.Warn("Order placement failed, retrying",
				"trigger", order.ClientOrderID, "attempt", attempt, "error", err)
		}
	}
	return nil, maxPlaceAttempts, lastErr
}

func (d *Dispatcher) saveOrder(triggerID string, order domain.OrderRequest, ack *domain.OrderAck, attempts int, placeErr error) {
	record := &domain.OrderRecord{
		TriggerID: triggerID,
		Symbol:    order.Symbol,
		Side:      order.Side,
		Type:      order.Type,
		Size:      order.Size.String(),
		Attempts:  attempts,
	}
	if !order.Price.IsZero() {
		record.Price = order.Price.String()
	}
	if ack != nil {
		record.OrderID = ack.OrderID
		record.Status = ack.Status
	}
	if placeErr != nil {
		record.Error = placeErr.Error()
	}
	if err := d.journal.SaveOrder(record); err != nil {
		d.logger.Error("Failed to journal order", "trigger", triggerID, "error", err)
	}
}
