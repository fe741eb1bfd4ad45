package domain

import (
	"context"
)

// StreamWorker defines the interface for market-data websocket connectors
type StreamWorker interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
}

// FeatureSource defines read access to the rolling feature state. The
// evaluator depends on this, not on the cache implementation.
type FeatureSource interface {
	Features(symbol string) (FeatureVector, error)
	Symbols() []string
}

// ExecutionClient places and amends protective orders at the execution venue
type ExecutionClient interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderAck, error)
	CancelOrAdjust(ctx context.Context, symbol, orderID string, adj Adjustment) error
}

// AnalysisClient submits a fired trigger for out-of-band review
type AnalysisClient interface {
	Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error)
}

// TriggerJournal persists fired triggers and their outcomes for audit
type TriggerJournal interface {
	SaveTrigger(rec *TriggerRecord) error
	SaveOrder(rec *OrderRecord) error
	SaveVerdict(rec *VerdictRecord) error
}
