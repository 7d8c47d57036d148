package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"valuer/internal/adapter/repo"
	"valuer/internal/domain"
	"valuer/internal/images"
	"valuer/internal/infra"
	"valuer/internal/parser"
	"valuer/internal/storage"
	zippkg "valuer/pkg/zip"
)

func main() {
	var (
		inputPath   = flag.String("file", "", "path to a search-results JSON file (required)")
		limit       = flag.Int("limit", 0, "process only the first N lots (0 = all)")
		skipImages  = flag.Bool("skip-images", false, "skip image processing, only store lot records")
		skipDB      = flag.Bool("skip-db", false, "skip database upsert, only process images")
		archivePath = flag.String("archive", "", "write processed images into a zip archive at this path")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "processor")

	if *inputPath == "" {
		logger.Fatal().Msg("processor: -file is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	payload, err := os.ReadFile(*inputPath)
	if err != nil {
		logger.Fatal().Err(err).Str("file", *inputPath).Msg("processor: failed to read input")
	}
	if err := parser.ValidateSearchResults(payload); err != nil {
		logger.Fatal().Err(err).Msg("processor: invalid search-results structure")
	}
	lots, err := parser.ParseSearchResults(payload, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("processor: failed to parse search results")
	}
	if *limit > 0 && *limit < len(lots) {
		logger.Info().Int("limit", *limit).Msg("processor: limiting run")
		lots = lots[:*limit]
	}
	logger.Info().Int("lots", len(lots)).Msg("processor: parsed input")

	var refs map[string]string
	var fileStore *storage.FileStore
	if !*skipImages {
		refs, fileStore = processImages(ctx, cfg, logger, lots)
	}

	if !*skipDB {
		if cfg.DatabaseURL == "" {
			logger.Warn().Msg("processor: DATABASE_URL not set, skipping upsert")
		} else {
			pool, err := infra.NewDBPool(ctx, cfg)
			if err != nil {
				logger.Fatal().Err(err).Msg("processor: failed to connect database")
			}
			defer pool.Close()

			stored, err := repo.NewLotRepository(pool, logger).UpsertAll(ctx, lots, refs)
			if err != nil {
				logger.Fatal().Err(err).Msg("processor: upsert failed")
			}
			logger.Info().Int("stored", len(stored)).Msg("processor: lots stored")
		}
	}

	if *archivePath != "" {
		writeArchive(logger, fileStore, lots, refs, *archivePath)
	}

	logger.Info().Int("lots", len(lots)).Int("images", len(refs)).Msg("processor: run completed")
}

func processImages(ctx context.Context, cfg *infra.Config, logger infra.Logger, lots []domain.AuctionLot) (map[string]string, *storage.FileStore) {
	var store storage.Store
	var fileStore *storage.FileStore

	if cfg.UseGCS {
		gcsStore, err := storage.NewGCSStore(ctx, cfg.GCSBucketName, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("processor: failed to configure GCS storage")
		}
		defer gcsStore.Close()
		store = gcsStore
	} else {
		fs, err := storage.NewFileStore(cfg.LocalStoragePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("processor: failed to configure local storage")
		}
		fileStore = fs
		store = fs
	}

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
		logger.Fatal().Err(err).Msg("processor: failed to configure image pipeline")
	}

	return pipeline.ProcessAll(ctx, lots), fileStore
}

// writeArchive bundles the run's locally stored images into one zip file.
// Only the filesystem backend supports archiving; object-storage output is
// already addressable by URL.
func writeArchive(logger infra.Logger, fileStore *storage.FileStore, lots []domain.AuctionLot, refs map[string]string, archivePath string) {
	if fileStore == nil {
		logger.Warn().Msg("processor: archive requested but no local storage in use, skipping")
		return
	}

	var entries []zippkg.Entry
	for _, lot := range lots {
		if _, ok := refs[lot.LotRef]; !ok {
			continue
		}
		key := images.ResolvePath(lot.HouseName, lot.LotRef, lot.PhotoPath)
		data, err := os.ReadFile(filepath.Join(fileStore.BasePath(), filepath.FromSlash(key)))
		if err != nil {
			logger.Warn().Err(err).Str("lot_ref", lot.LotRef).Msg("processor: cannot archive image")
			continue
		}
		entries = append(entries, zippkg.Entry{Name: key, Data: data})
	}

	archive, err := zippkg.Archive(entries)
	if err != nil {
		logger.Error().Err(err).Msg("processor: failed to build archive")
		return
	}
	if err := os.WriteFile(archivePath, archive, 0o644); err != nil {
		logger.Error().Err(err).Str("path", archivePath).Msg("processor: failed to write archive")
		return
	}
	logger.Info().Str("path", archivePath).Int("images", len(entries)).Msg("processor: archive written")
}
