package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"valuer/internal/adapter/repo"
	"valuer/internal/http/handlers"
	"valuer/internal/http/httpapi"
	"valuer/internal/images"
	"valuer/internal/infra"
	"valuer/internal/storage"
)

func main() {
	// Load .env when present.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx := context.Background()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to connect database")
	}
	defer pool.Close()

	store, cleanup, err := newStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure storage")
	}
	defer cleanup()

	fetcher := images.NewFetcher(images.FetcherConfig{
		BaseURL:            cfg.BaseImageURL,
		AlternateBaseURLs:  cfg.AlternateImageURLs,
		HostHeaderVariants: cfg.HostHeaderVariants,
		Referer:            cfg.ImageReferer,
		EnableDirectIP:     cfg.EnableDirectIP,
	}, logger)

	var fallback images.FallbackFunc
	if cfg.Development() {
		fallback = images.DevelopmentFallback()
	}

	pipeline, err := images.NewPipeline(fetcher, store, fallback, images.PipelineConfig{
		BatchSize:    cfg.ImageBatchSize,
		Optimize:     cfg.OptimizeImages,
		MaxDimension: cfg.MaxImageDimension,
		JPEGQuality:  cfg.JPEGQuality,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure image pipeline")
	}
	logger.Info().Str("pipeline", pipeline.Describe()).Msg("api: image pipeline ready")

	lots := repo.NewLotRepository(pool, logger)
	app := handlers.NewApp(logger, pipeline, lots)
	router := httpapi.NewRouter(app, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: shutdown failed")
	}
	logger.Info().Msg("api: stopped")
}

// newStore selects the storage backend once at startup.
func newStore(ctx context.Context, cfg *infra.Config, logger infra.Logger) (storage.Store, func(), error) {
	if cfg.UseGCS {
		gcsStore, err := storage.NewGCSStore(ctx, cfg.GCSBucketName, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("bucket", cfg.GCSBucketName).Msg("storage: using GCS backend")
		return gcsStore, func() { _ = gcsStore.Close() }, nil
	}

	fileStore, err := storage.NewFileStore(cfg.LocalStoragePath)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Str("path", fileStore.BasePath()).Msg("storage: using local filesystem backend")
	return fileStore, func() {}, nil
}
