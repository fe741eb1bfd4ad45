package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	tradesApplied    atomic.Uint64
	contextsApplied  atomic.Uint64
	messagesDropped  atomic.Uint64
	triggersFired    atomic.Uint64
	ordersPlaced     atomic.Uint64
	ordersFailed     atomic.Uint64
	analysisConfirms atomic.Uint64
	analysisRejects  atomic.Uint64
	analysisTimeouts atomic.Uint64
	reconnects       atomic.Uint64
	errorsTotal      atomic.Uint64

	// Apply-path latency tracking
	applyLatencySumNs atomic.Int64
	applyLatencyCount atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordTradeApplied records one trade event applied, with apply latency.
func (m *Metrics) RecordTradeApplied(latencyNs int64) {
	m.tradesApplied.Add(1)
	m.applyLatencySumNs.Add(latencyNs)
	m.applyLatencyCount.Add(1)
}

// RecordContextApplied records one context snapshot applied.
func (m *Metrics) RecordContextApplied() {
	m.contextsApplied.Add(1)
}

// RecordDropped records a malformed or unroutable feed message.
func (m *Metrics) RecordDropped() {
	m.messagesDropped.Add(1)
}

// RecordTrigger records a rule fire.
func (m *Metrics) RecordTrigger() {
	m.triggersFired.Add(1)
}

// RecordOrderPlaced records an accepted protective order.
func (m *Metrics) RecordOrderPlaced() {
	m.ordersPlaced.Add(1)
}

// RecordOrderFailed records a protective order that exhausted its attempts.
func (m *Metrics) RecordOrderFailed() {
	m.ordersFailed.Add(1)
}

// RecordAnalysis records an analysis outcome by verdict.
func (m *Metrics) RecordAnalysis(verdict string) {
	switch verdict {
	case "confirm":
		m.analysisConfirms.Add(1)
	case "reject":
		m.analysisRejects.Add(1)
	default:
		m.analysisTimeouts.Add(1)
	}
}

// RecordReconnect records a feed reconnect attempt.
func (m *Metrics) RecordReconnect() {
	m.reconnects.Add(1)
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	TradesApplied     uint64
	ContextsApplied   uint64
	MessagesDropped   uint64
	TriggersFired     uint64
	OrdersPlaced      uint64
	OrdersFailed      uint64
	AnalysisConfirms  uint64
	AnalysisRejects   uint64
	AnalysisTimeouts  uint64
	Reconnects        uint64
	ErrorsTotal       uint64
	AvgApplyLatencyNs int64
	ActiveConnections int32
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.applyLatencyCount.Load()
	if count > 0 {
		avgLatency = m.applyLatencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		TradesApplied:     m.tradesApplied.Load(),
		ContextsApplied:   m.contextsApplied.Load(),
		MessagesDropped:   m.messagesDropped.Load(),
		TriggersFired:     m.triggersFired.Load(),
		OrdersPlaced:      m.ordersPlaced.Load(),
		OrdersFailed:      m.ordersFailed.Load(),
		AnalysisConfirms:  m.analysisConfirms.Load(),
		AnalysisRejects:   m.analysisRejects.Load(),
		AnalysisTimeouts:  m.analysisTimeouts.Load(),
		Reconnects:        m.reconnects.Load(),
		ErrorsTotal:       m.errorsTotal.Load(),
		AvgApplyLatencyNs: avgLatency,
		ActiveConnections: m.activeConnections.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.tradesApplied.Store(0)
	m.contextsApplied.Store(0)
	m.messagesDropped.Store(0)
	m.triggersFired.Store(0)
	m.ordersPlaced.Store(0)
	m.ordersFailed.Store(0)
	m.analysisConfirms.Store(0)
	m.analysisRejects.Store(0)
	m.analysisTimeouts.Store(0)
	m.reconnects.Store(0)
	m.errorsTotal.Store(0)
	m.applyLatencySumNs.Store(0)
	m.applyLatencyCount.Store(0)
	m.activeConnections.Store(0)
}
