package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"sentinel_go/internal/domain"
	"sentinel_go/internal/infra"
	"sentinel_go/internal/rules"
)

// Dispatcher consumes fired triggers. Dispatch must return quickly; the
// evaluation pass continues as soon as the trigger is handed over.
type Dispatcher interface {
	Dispatch(trigger *domain.TriggerEvent, action rules.Action)
}

// Evaluator walks every (symbol, rule) pair on a fixed cadence, firing
// triggers whose conditions hold and whose cooldown window has passed.
// The cadence is wall-clock driven and does not speed up or slow down
// with trade flow.
type Evaluator struct {
	source     domain.FeatureSource
	rules      []*rules.Rule
	ledger     *CooldownLedger
	dispatcher Dispatcher
	journal    domain.TriggerJournal
	metrics    *infra.Metrics

	interval        time.Duration
	defaultCooldown time.Duration
	logger          *slog.Logger
}

func NewEvaluator(
	cfg *infra.Config,
	source domain.FeatureSource,
	ruleSet []*rules.Rule,
	dispatcher Dispatcher,
	journal domain.TriggerJournal,
	metrics *infra.Metrics,
) *Evaluator {
	return &Evaluator{
		source:          source,
		rules:           ruleSet,
		ledger:          NewCooldownLedger(),
		dispatcher:      dispatcher,
		journal:         journal,
		metrics:         metrics,
		interval:        cfg.EvalInterval(),
		defaultCooldown: cfg.Cooldown(),
		logger:          slog.Default().With("module", "evaluator"),
	}
}

// Run drives the evaluation loop until ctx is canceled. It blocks; run it
// in its own goroutine.
func (e *Evaluator) Run(ctx context.Context) {
	e.logger.Info("Evaluator started", "interval", e.interval.String(), "rules", len(e.rules))

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Evaluator stopping...")
			return
		case <-ticker.C:
			e.evaluateAll(time.Now())
		}
	}
}

// evaluateAll runs one pass over every symbol. A panic in rule code is
// contained to the pass; the loop keeps its cadence.
func (e *Evaluator) evaluateAll(now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Panic during evaluation pass", "panic", r)
			e.metrics.RecordError()
		}
	}()

	for _, symbol := range e.source.Symbols() {
		features, err := e.source.Features(symbol)
		if err != nil {
			e.logger.Warn("Skipping symbol this pass", "symbol", symbol, "error", err)
			continue
		}

		// One snapshot per symbol per pass; every rule sees the same numbers.
		for _, rule := range e.rules {
			if !rule.AppliesTo(symbol) {
				continue
			}
			if !rule.Condition.Eval(&features) {
				continue
			}

			cooldown := rule.Cooldown
			if cooldown <= 0 {
				cooldown = e.defaultCooldown
			}
			if !e.ledger.TryFire(rule.Name, symbol, now, cooldown) {
				continue
			}

			e.fire(rule, symbol, now, features)
		}
	}
}

func (e *Evaluator) fire(rule *rules.Rule, symbol string, now time.Time, features domain.FeatureVector) {
	trigger := domain.NewTriggerEvent(rule.Name, symbol, now, features)
	e.metrics.RecordTrigger()

	e.logger.Info("Trigger Fired",
		"trigger", trigger.ID,
		"rule", rule.Name,
		"symbol", symbol,
		"condition", rule.Condition.String())

	payload, err := json.Marshal(features)
	if err != nil {
		e.logger.Error("Failed to encode feature snapshot", "trigger", trigger.ID, "error", err)
	}
	record := &domain.TriggerRecord{
		ID:       trigger.ID,
		Rule:     rule.Name,
		Symbol:   symbol,
		FiredAt:  now,
		Features: string(payload),
	}
	if err := e.journal.SaveTrigger(record); err != nil {
		e.logger.Error("Failed to journal trigger", "trigger", trigger.ID, "error", err)
	}

	e.dispatcher.Dispatch(trigger, rule.Action)
}
