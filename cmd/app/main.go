package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"trade_quest/internal/app"
	"trade_quest/internal/engine"
	"trade_quest/internal/event"
	"trade_quest/internal/hub"
	"trade_quest/internal/infra/bitget"
	"trade_quest/internal/server"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// Pprof server, localhost only
	go func() {
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("pprof server failed", slog.Any("error", err))
		}
	}()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize("configs/config.yaml"); err != nil {
		slog.Error("bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Instrument catalog refresh in the background
	go bootstrap.SyncPairs(ctx)

	// Wiring: feed worker -> inbox -> trigger engine -> hub -> ws clients.
	// The registry closes the loop by driving the worker's subscriptions
	// from the engine's working set.
	inbox := make(chan *event.Tick, cfg.Feed.InboxSize)
	notifications := hub.NewHub()
	worker := bitget.NewWorker(cfg, inbox)
	registry := engine.NewSubscriptionRegistry(worker)
	trigger := engine.NewTriggerEngine(bootstrap.Storage, notifications, registry, inbox)

	// The working set and its subscriptions must be in place before the
	// first tick arrives.
	if err := trigger.Recover(); err != nil {
		slog.Error("working set recovery failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Connect(ctx); err != nil {
		slog.Error("failed to start feed worker", slog.Any("error", err))
		os.Exit(1)
	}
	defer worker.Disconnect()

	go trigger.Run(ctx)

	srv := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: server.NewServer(notifications).Handler(),
	}
	go func() {
		slog.Info("notification server listening", slog.String("addr", cfg.Server.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("notification server failed", slog.Any("error", err))
		}
	}()

	slog.InfoContext(ctx, "trade quest streaming core operational")

	<-ctx.Done()
	slog.Info("shutting down gracefully")
	srv.Shutdown(context.Background())
}
