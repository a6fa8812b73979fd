package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"trade_quest/internal/domain"
	"trade_quest/internal/infra"
	"trade_quest/internal/infra/bitget"
	"trade_quest/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config     *infra.Config
	Storage    *storage.Storage
	Client     *bitget.Client
	Downloader *infra.IconDownloader
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logging, DB)
func (b *Bootstrap) Initialize(configPath string) error {
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("database initialized")

	b.Client = bitget.NewClient(cfg)

	if cfg.Sync.Icons {
		downloader, err := infra.NewIconDownloader()
		if err != nil {
			return err
		}
		b.Downloader = downloader
	}

	return nil
}

// SyncPairs refreshes the instrument catalog from the venue and, when
// enabled, downloads missing icons in the background.
func (b *Bootstrap) SyncPairs(ctx context.Context) {
	if !b.Config.Sync.Pairs {
		return
	}
	slog.Info("starting trading pair synchronization")

	pairs, err := b.Client.FetchTradingPairs(ctx)
	if err != nil {
		slog.Error("failed to fetch trading pairs", slog.Any("error", err))
		return
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 5) // Limit concurrent downloads

	for i := range pairs {
		wg.Add(1)
		go func(pair domain.TradingPair) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			// Preserve local-only fields across syncs
			if existing, _ := b.Storage.GetPair(pair.Symbol); existing != nil {
				pair.IconPath = existing.IconPath
				pair.LastSyncedAt = existing.LastSyncedAt
				pair.CreatedAt = existing.CreatedAt
			}

			if err := b.Storage.UpsertPair(&pair); err != nil {
				slog.Error("failed to upsert pair", slog.String("symbol", pair.Symbol), slog.Any("error", err))
				return
			}

			if b.Downloader == nil || pair.IconPath != "" {
				return
			}
			path, err := b.Downloader.DownloadIcon(pair.Symbol)
			if err != nil {
				slog.Warn("failed to download icon", slog.String("symbol", pair.Symbol), slog.Any("error", err))
				return
			}
			pair.IconPath = path
			pair.LastSyncedAt = time.Now()
			if err := b.Storage.UpsertPair(&pair); err != nil {
				slog.Error("failed to update icon path", slog.String("symbol", pair.Symbol), slog.Any("error", err))
			}
		}(pairs[i])
	}

	wg.Wait()
	slog.Info("trading pair synchronization completed", slog.Int("pairs", len(pairs)))
}
