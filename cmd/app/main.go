package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentinel_go/internal/analysis"
	"sentinel_go/internal/app"
	"sentinel_go/internal/dispatch"
	"sentinel_go/internal/engine"
	"sentinel_go/internal/infra"
	"sentinel_go/internal/infra/hyper"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Parse()

	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := infra.GlobalMetrics

	// 4. Verdict pipeline: analysis bridge behind the dispatcher
	analysisClient := analysis.NewClient(cfg)
	bridge := analysis.NewBridge(cfg, analysisClient, bootstrap.Executor, bootstrap.Journal, metrics)
	dispatcher := dispatch.NewDispatcher(cfg, bootstrap.Executor, bridge, bootstrap.Journal, metrics)

	// 5. Trigger engine on its fixed cadence
	evaluator := engine.NewEvaluator(cfg, bootstrap.Cache, bootstrap.Rules, dispatcher, bootstrap.Journal, metrics)
	go evaluator.Run(ctx)
	slog.InfoContext(ctx, "✅ Evaluator started", slog.Int("rules", len(bootstrap.Rules)))

	// 6. Market data feed
	worker := hyper.NewWorker(cfg.Feed.WSURL, cfg.Feed.Symbols, bootstrap.Sink(), metrics)
	if err := worker.Connect(ctx); err != nil {
		slog.Error("Failed to connect feed", slog.Any("error", err))
	}
	defer worker.Disconnect()
	slog.InfoContext(ctx, "✅ Feed worker started", slog.Int("symbols", len(cfg.Feed.Symbols)))

	// 7. Periodic metrics report
	go app.ReportMetrics(ctx, metrics, time.Minute)

	slog.InfoContext(ctx, "✨ Sentinel fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	slog.InfoContext(ctx, "👋 Shutting down gracefully...")

	// Drain in-flight dispatches and verdicts before exit.
	dispatcher.Wait()
	bridge.Wait()
}
