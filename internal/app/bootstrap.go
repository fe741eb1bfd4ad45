package app

import (
	"context"
	"log/slog"
	"time"

	"sentinel_go/internal/domain"
	"sentinel_go/internal/event"
	"sentinel_go/internal/execution"
	"sentinel_go/internal/feature"
	"sentinel_go/internal/infra"
	"sentinel_go/internal/infra/exchange"
	"sentinel_go/internal/infra/storage"
	"sentinel_go/internal/rules"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config  *infra.Config
	Rules   []*rules.Rule
	Journal *storage.Journal
	Cache   *feature.Cache

	Executor   domain.ExecutionClient
	PaperVenue *execution.PaperVenue // set only in dry-run mode
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration and builds every component that must be
// ready before the feed connects. Any error here is fatal; the process
// never runs on a partial setup.
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("🚀 Bootstrapping Sentinel...")

	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Load trigger rules
	ruleSet, err := rules.LoadFile(cfg.Engine.RulesPath)
	if err != nil {
		return err
	}
	b.Rules = ruleSet
	slog.Info("✅ Trigger rules loaded", "count", len(ruleSet))

	// 4. Initialize Journal (DB)
	journal, err := storage.NewJournal(cfg.Journal.Path)
	if err != nil {
		return err
	}
	b.Journal = journal
	slog.Info("✅ Journal database initialized")

	// 5. Feature cache, pre-sized for the configured symbols
	b.Cache = feature.NewCache(cfg.Feed.Symbols, feature.WindowConfig{
		TradeCapacity:    cfg.Engine.TradeWindow,
		ContextCapacity:  cfg.Engine.ContextWindow,
		MomentumLookback: cfg.Engine.MomentumLookback,
		OIDeltaLookback:  cfg.Engine.OIDeltaLookback,
		MinTrades:        cfg.Engine.MinTrades,
	})

	// 6. Execution venue: real client, or the in-process paper venue
	if cfg.Execution.DryRun {
		b.PaperVenue = execution.NewPaperVenue()
		b.Executor = b.PaperVenue
		slog.Info("✅ Dry run: orders route to the paper venue")
	} else {
		b.Executor = exchange.NewClient(cfg)
		slog.Info("✅ Execution client ready")
	}

	// 7. Pre-warm the event pools before the feed starts pushing
	event.Warmup()

	return nil
}

// Sink returns the event sink the feed worker writes into. In dry-run mode
// the paper venue listens alongside the feature cache so it always has a
// reference price to fill at.
func (b *Bootstrap) Sink() event.Sink {
	if b.PaperVenue != nil {
		return &fanoutSink{sinks: []event.Sink{b.Cache, b.PaperVenue}}
	}
	return b.Cache
}

// fanoutSink forwards each event to every sink in order, on the caller's
// goroutine. The cache comes first so evaluation never sees a price the
// paper venue lacks.
type fanoutSink struct {
	sinks []event.Sink
}

func (f *fanoutSink) ApplyTrade(e *event.TradeEvent) {
	for _, s := range f.sinks {
		s.ApplyTrade(e)
	}
}

func (f *fanoutSink) ApplyContext(e *event.ContextEvent) {
	for _, s := range f.sinks {
		s.ApplyContext(e)
	}
}

// ReportMetrics logs a metrics snapshot every interval until ctx ends.
func ReportMetrics(ctx context.Context, m *infra.Metrics, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := m.Snapshot()
			slog.Info("📊 Metrics",
				"trades", snap.TradesApplied,
				"contexts", snap.ContextsApplied,
				"dropped", snap.MessagesDropped,
				"triggers", snap.TriggersFired,
				"orders_placed", snap.OrdersPlaced,
				"orders_failed", snap.OrdersFailed,
				"confirms", snap.AnalysisConfirms,
				"rejects", snap.AnalysisRejects,
				"timeouts", snap.AnalysisTimeouts,
				"reconnects", snap.Reconnects,
				"errors", snap.ErrorsTotal,
				"avg_apply_ns", snap.AvgApplyLatencyNs,
				"connections", snap.ActiveConnections)
		}
	}
}
