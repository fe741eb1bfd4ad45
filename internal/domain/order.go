package domain

import "github.com/shopspring/decimal"

const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	OrderTypeLimit  = "LIMIT"
	OrderTypeMarket = "MARKET"

	OrderStatusNew      = "NEW"
	OrderStatusFilled   = "FILLED"
	OrderStatusCanceled = "CANCELED"
	OrderStatusRejected = "REJECTED"
)

// OrderRequest describes one protective order to place at the execution venue.
type OrderRequest struct {
	ClientOrderID string          `json:"client_order_id"` // trigger ID, venue-side dedup key
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"`  // SideBuy or SideSell
	Type          string          `json:"type"`  // OrderTypeMarket or OrderTypeLimit
	Size          decimal.Decimal `json:"size"`  // base units
	Price         decimal.Decimal `json:"price"` // limit price, zero for market orders
	ReduceOnly    bool            `json:"reduce_only"`
}

// OrderAck is the venue's acknowledgement of a placed order.
type OrderAck struct {
	OrderID    string          `json:"order_id"`
	Status     string          `json:"status"`
	FilledSize decimal.Decimal `json:"filled_size"`
	AvgPrice   decimal.Decimal `json:"avg_price"`
}

// Open checks if the acknowledged order is still resting at the venue.
func (a *OrderAck) Open() bool {
	return a.Status == OrderStatusNew
}

// Adjustment tells the execution venue what to do with a protective order
// after an analysis verdict: cancel it outright, or reduce it to NewSize.
type Adjustment struct {
	Cancel  bool            `json:"cancel"`
	NewSize decimal.Decimal `json:"new_size"`
}

// Opposite returns the opposing side, used when flattening a filled
// protective order.
func Opposite(side string) string {
	if side == SideBuy {
		return SideSell
	}
	return SideBuy
}
