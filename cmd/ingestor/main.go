package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"uni_directory/internal/adapters/observability"
	"uni_directory/internal/app"
	"uni_directory/internal/bootstrap"
	"uni_directory/internal/domain"
	"uni_directory/internal/shared"
)

// The ingestor mirrors the remote record API into the configured local store.
func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.StoreBackend == shared.BackendRemote {
		log.Fatal().Msg("STORE_BACKEND=remote: nothing to mirror into")
	}

	src, err := bootstrap.Remote(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize record API client")
	}
	dst, closeStore, err := bootstrap.Store(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("store init failed")
	}
	defer closeStore()

	log.Info().
		Str("base", cfg.RecordAPIBase).
		Str("backend", cfg.StoreBackend).
		Int("workers", cfg.MirrorWorkers).
		Msg("ingestor starting")

	// Snapshot invalidation only matters when a shared redis is configured.
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		c, closeCache, err := bootstrap.Cache(ctx, cfg)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, snapshots will expire on their own")
		} else {
			defer closeCache()
			cache = c
		}
	}

	ing := app.NewMirrorService(src, dst, cache, cfg.MirrorWorkers)

	st, err := ing.MirrorAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Int64("copied", st.Copied).Msg("mirror failed")
	}
	log.Info().
		Int64("copied", st.Copied).
		Int64("skipped", st.Skipped).
		Int64("failed", st.Failed).
		Msg("ingestion completed")
}
