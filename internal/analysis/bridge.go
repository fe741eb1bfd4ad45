package analysis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sentinel_go/internal/domain"
	"sentinel_go/internal/infra"
)

// Bridge forwards fired triggers to the analysis service and applies the
// verdict to the resting protective order. Submission returns immediately;
// each trigger runs on its own goroutine under a hard deadline, and exactly
// one protective action is taken per trigger regardless of outcome.
type Bridge struct {
	client        domain.AnalysisClient
	executor      domain.ExecutionClient
	journal       domain.TriggerJournal
	metrics       *infra.Metrics
	timeout       time.Duration
	actionTimeout time.Duration
	onTimeout     string
	logger        *slog.Logger
	wg            sync.WaitGroup
}

func NewBridge(cfg *infra.Config, client domain.AnalysisClient, executor domain.ExecutionClient, journal domain.TriggerJournal, metrics *infra.Metrics) *Bridge {
	return &Bridge{
		client:        client,
		executor:      executor,
		journal:       journal,
		metrics:       metrics,
		timeout:       cfg.AnalysisTimeout(),
		actionTimeout: cfg.OrderTimeout(),
		onTimeout:     cfg.Analysis.OnTimeout,
		logger:        slog.Default().With("module", "analysis_bridge"),
	}
}

// Submit hands a fired trigger to the bridge and returns without waiting.
// ack is the venue acknowledgement of the protective order, nil when
// placement failed; nil still gets analyzed, there is just no order to act on.
func (b *Bridge) Submit(trigger *domain.TriggerEvent, side string, size decimal.Decimal, ack *domain.OrderAck) {
	b.wg.Add(1)
	go b.process(trigger, side, size, ack)
}

// Wait blocks until every in-flight verdict has been applied.
func (b *Bridge) Wait() {
	b.wg.Wait()
}

func (b *Bridge) process(trigger *domain.TriggerEvent, side string, size decimal.Decimal, ack *domain.OrderAck) {
	defer b.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Panic in analysis bridge", "trigger", trigger.ID, "panic", r)
			b.metrics.RecordError()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	req := domain.AnalysisRequest{
		TriggerID: trigger.ID,
		Rule:      trigger.Rule,
		Symbol:    trigger.Symbol,
		FiredAtMs: trigger.At.UnixMilli(),
		Side:      side,
		OrderSize: size,
		Features:  trigger.Features,
	}

	result, err := b.client.Analyze(ctx, req)

	var verdict, action string
	var actionErr error
	switch {
	case err == nil && result.Confirmed():
		verdict = domain.VerdictConfirm
		action = domain.VerdictActionStand
	case err == nil:
		verdict = domain.VerdictReject
		action, actionErr = b.applyReject(trigger.Symbol, ack, result.AdjustedSize)
	default:
		verdict = domain.VerdictTimeout
		b.logger.Warn("Analysis unavailable, applying fallback",
			"trigger", trigger.ID, "fallback", b.onTimeout, "error", err)
		action, actionErr = b.applyFallback(trigger.Symbol, ack)
	}

	b.metrics.RecordAnalysis(verdict)

	record := &domain.VerdictRecord{
		TriggerID: trigger.ID,
		Verdict:   verdict,
		Action:    action,
	}
	if actionErr != nil {
		record.Error = actionErr.Error()
		b.logger.Error("Verdict action failed",
			"trigger", trigger.ID, "action", action, "error", actionErr)
		b.metrics.RecordError()
	}
	if err := b.journal.SaveVerdict(record); err != nil {
		b.logger.Error("Failed to journal verdict", "trigger", trigger.ID, "error", err)
	}

	b.logger.Info("Verdict Applied",
		"trigger", trigger.ID,
		"rule", trigger.Rule,
		"symbol", trigger.Symbol,
		"verdict", verdict,
		"action", action)
}

// applyReject cancels the resting order, or reduces it when the service
// asked for a smaller size instead.
func (b *Bridge) applyReject(symbol string, ack *domain.OrderAck, adjusted *decimal.Decimal) (string, error) {
	if ack == nil || !ack.Open() {
		return domain.VerdictActionStand, nil
	}
	if adjusted != nil && adjusted.IsPositive() {
		err := b.adjustOrder(symbol, ack.OrderID, domain.Adjustment{NewSize: *adjusted})
		return domain.VerdictActionReduce, err
	}
	err := b.adjustOrder(symbol, ack.OrderID, domain.Adjustment{Cancel: true})
	return domain.VerdictActionCancel, err
}

// applyFallback runs the configured default when no verdict arrived in time.
func (b *Bridge) applyFallback(symbol string, ack *domain.OrderAck) (string, error) {
	if b.onTimeout != domain.OnTimeoutCancel || ack == nil || !ack.Open() {
		return domain.VerdictActionStand, nil
	}
	err := b.adjustOrder(symbol, ack.OrderID, domain.Adjustment{Cancel: true})
	return domain.VerdictActionCancel, err
}

func (b *Bridge) adjustOrder(symbol, orderID string, adj domain.Adjustment) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.actionTimeout)
	defer cancel()
	return b.executor.CancelOrAdjust(ctx, symbol, orderID, adj)
}
