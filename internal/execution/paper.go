package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"sentinel_go/internal/domain"
	"sentinel_go/internal/event"
)

// Fill is one simulated execution.
type Fill struct {
	OrderID string
	Symbol  string
	Side    string
	Size    decimal.Decimal
	Price   decimal.Decimal
	At      time.Time
}

// OpenOrder is a simulated order resting at the paper venue.
type OpenOrder struct {
	OrderID string
	Symbol  string
	Side    string
	Type    string
	Size    decimal.Decimal
	Price   decimal.Decimal
}

// PaperVenue simulates the execution venue in-process for dry runs. Market
// orders fill immediately at the venue's last seen price; limit orders rest
// until canceled or reduced. It tracks orders and fills only, no balances
// or positions.
//
// PaperVenue also implements event.Sink so it can learn reference prices
// straight from the live feed.
type PaperVenue struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
	open   map[string]OpenOrder
	fills  []Fill
	logger *slog.Logger
}

func NewPaperVenue() *PaperVenue {
	return &PaperVenue{
		prices: make(map[string]decimal.Decimal),
		open:   make(map[string]OpenOrder),
		logger: slog.Default().With("module", "paper_venue"),
	}
}

// UpdatePrice sets the reference price market orders fill at.
func (p *PaperVenue) UpdatePrice(symbol string, price decimal.Decimal) {
	if !price.IsPositive() {
		return
	}
	p.mu.Lock()
	p.prices[symbol] = price
	p.mu.Unlock()
}

// ApplyTrade implements event.Sink.
func (p *PaperVenue) ApplyTrade(e *event.TradeEvent) {
	p.UpdatePrice(e.Symbol, e.Price)
}

// ApplyContext implements event.Sink. Mark price stands in for a trade
// print on symbols that have not traded yet.
func (p *PaperVenue) ApplyContext(e *event.ContextEvent) {
	p.mu.Lock()
	if _, ok := p.prices[e.Symbol]; !ok && e.MarkPrice.IsPositive() {
		p.prices[e.Symbol] = e.MarkPrice
	}
	p.mu.Unlock()
}

// PlaceOrder fills market orders at the reference price and rests limit
// orders. The ack mirrors what a real venue would return.
func (p *PaperVenue) PlaceOrder(ctx context.Context, order domain.OrderRequest) (*domain.OrderAck, error) {
	if !order.Size.IsPositive() {
		return nil, fmt.Errorf("order size must be positive, got %s: %w", order.Size, domain.ErrOrderRejected)
	}

	orderID := uuid.NewString()

	p.mu.Lock()
	defer p.mu.Unlock()

	switch order.Type {
	case domain.OrderTypeMarket:
		price, ok := p.prices[order.Symbol]
		if !ok {
			return nil, fmt.Errorf("no reference price for %s: %w", order.Symbol, domain.ErrOrderRejected)
		}
		p.fills = append(p.fills, Fill{
			OrderID: orderID,
			Symbol:  order.Symbol,
			Side:    order.Side,
			Size:    order.Size,
			Price:   price,
			At:      time.Now(),
		})
		p.logger.Info("Paper Fill",
			"order_id", orderID, "symbol", order.Symbol, "side", order.Side,
			"size", order.Size.String(), "price", price.String())
		return &domain.OrderAck{
			OrderID:    orderID,
			Status:     domain.OrderStatusFilled,
			FilledSize: order.Size,
			AvgPrice:   price,
		}, nil

	case domain.OrderTypeLimit:
		if !order.Price.IsPositive() {
			return nil, fmt.Errorf("limit order needs a positive price: %w", domain.ErrOrderRejected)
		}
		p.open[orderID] = OpenOrder{
			OrderID: orderID,
			Symbol:  order.Symbol,
			Side:    order.Side,
			Type:    order.Type,
			Size:    order.Size,
			Price:   order.Price,
		}
		p.logger.Info("Paper Order Resting",
			"order_id", orderID, "symbol", order.Symbol, "side", order.Side,
			"size", order.Size.String(), "price", order.Price.String())
		return &domain.OrderAck{
			OrderID: orderID,
			Status:  domain.OrderStatusNew,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported order type %q: %w", order.Type, domain.ErrOrderRejected)
	}
}

// CancelOrAdjust removes a resting order or shrinks it to the new size.
func (p *PaperVenue) CancelOrAdjust(ctx context.Context, symbol, orderID string, adj domain.Adjustment) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.open[orderID]
	if !ok {
		return fmt.Errorf("order %s is not resting: %w", orderID, domain.ErrOrderRejected)
	}

	if adj.Cancel {
		delete(p.open, orderID)
		p.logger.Info("Paper Order Canceled", "order_id", orderID, "symbol", symbol)
		return nil
	}

	if !adj.NewSize.IsPositive() || adj.NewSize.GreaterThanOrEqual(order.Size) {
		return fmt.Errorf("adjustment size %s must be positive and below %s: %w",
			adj.NewSize, order.Size, domain.ErrOrderRejected)
	}
	order.Size = adj.NewSize
	p.open[orderID] = order
	p.logger.Info("Paper Order Reduced", "order_id", orderID, "symbol", symbol, "size", adj.NewSize.String())
	return nil
}

// GetFills returns all simulated executions so far.
func (p *PaperVenue) GetFills() []Fill {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Fill(nil), p.fills...)
}

// GetOpenOrder looks up a resting order by venue ID.
func (p *PaperVenue) GetOpenOrder(orderID string) (OpenOrder, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	order, ok := p.open[orderID]
	return order, ok
}

// OpenOrderCount returns the number of resting orders.
func (p *PaperVenue) OpenOrderCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.open)
}
