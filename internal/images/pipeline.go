package images

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"valuer/internal/domain"
	"valuer/internal/storage"
)

// ImageFetcher is the slice of Fetcher the pipeline depends on.
type ImageFetcher interface {
	Fetch(ctx context.Context, photoPath string) ([]byte, error)
}

// FallbackFunc synthesizes replacement bytes for a lot whose photo could not
// be fetched. Returning nil leaves the lot unprocessed.
type FallbackFunc func(lot domain.AuctionLot) []byte

// PipelineConfig tunes batch processing.
type PipelineConfig struct {
	// BatchSize caps how many lots are in flight at once. Default 10.
	BatchSize int
	// Optimize enables transcoding; when false, fetched bytes are stored
	// untouched.
	Optimize bool
	// MaxDimension bounds the longer side of transcoded images. Default 1200.
	MaxDimension int
	// JPEGQuality is the re-encode quality for JPEG output. Default 85.
	JPEGQuality int
}

// Pipeline drives fetch, transcode and store over collections of auction
// lots. Lots are processed in fixed-size batches; within a batch all lots
// run concurrently, and a batch must finish before the next one starts, so
// peak concurrency equals the batch size regardless of input length.
type Pipeline struct {
	fetcher  ImageFetcher
	store    storage.Store
	fallback FallbackFunc
	cfg      PipelineConfig
	logger   zerolog.Logger
}

// NewPipeline wires the pipeline. fetcher and store are required; fallback
// may be nil.
func NewPipeline(fetcher ImageFetcher, store storage.Store, fallback FallbackFunc, cfg PipelineConfig, logger zerolog.Logger) (*Pipeline, error) {
	if fetcher == nil {
		return nil, errors.New("images: fetcher is required")
	}
	if store == nil {
		return nil, errors.New("images: store is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = 1200
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = 85
	}
	return &Pipeline{fetcher: fetcher, store: store, fallback: fallback, cfg: cfg, logger: logger}, nil
}

// ProcessAll runs the pipeline over all lots and returns a mapping from lot
// ref to storage reference. Lots that failed or carried no photo reference
// are simply absent from the result; one lot's failure never aborts its
// batch or the run.
func (p *Pipeline) ProcessAll(ctx context.Context, lots []domain.AuctionLot) map[string]string {
	results := make(map[string]string, len(lots))
	batches := (len(lots) + p.cfg.BatchSize - 1) / p.cfg.BatchSize

	for start := 0; start < len(lots); start += p.cfg.BatchSize {
		end := start + p.cfg.BatchSize
		if end > len(lots) {
			end = len(lots)
		}
		batch := lots[start:end]
		p.logger.Info().
			Int("batch", start/p.cfg.BatchSize+1).
			Int("batches", batches).
			Int("lots", len(batch)).
			Msg("images: processing batch")

		refs := make([]string, len(batch))
		var g errgroup.Group
		for i, lot := range batch {
			i, lot := i, lot
			g.Go(func() error {
				refs[i] = p.processOne(ctx, lot)
				return nil
			})
		}
		// Tasks never return errors; failures are recorded per lot.
		_ = g.Wait()

		for i, lot := range batch {
			if refs[i] != "" {
				results[lot.LotRef] = refs[i]
			}
		}

		if ctx.Err() != nil {
			break
		}
	}
	return results
}

// processOne walks a single lot through the pipeline and returns its storage
// reference, or "" when the lot could not be processed. All failure modes
// are converted to log entries here; nothing escapes into the batch loop.
func (p *Pipeline) processOne(ctx context.Context, lot domain.AuctionLot) (ref string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Str("lot_ref", lot.LotRef).Interface("panic", r).Msg("images: lot processing panicked")
			ref = ""
		}
	}()

	if strings.TrimSpace(lot.PhotoPath) == "" {
		p.logger.Debug().Str("lot_ref", lot.LotRef).Msg("images: lot has no photo reference, skipping")
		return ""
	}

	key := ResolvePath(lot.HouseName, lot.LotRef, lot.PhotoPath)

	// Idempotent skip: a previous run already stored this image.
	if p.store.Exists(ctx, key) {
		p.logger.Debug().Str("lot_ref", lot.LotRef).Str("key", key).Msg("images: already stored")
		return p.store.PublicURL(key)
	}

	data, err := p.fetcher.Fetch(ctx, lot.PhotoPath)
	if err != nil {
		if p.fallback != nil {
			if data = p.fallback(lot); data != nil {
				p.logger.Warn().Err(err).Str("lot_ref", lot.LotRef).Msg("images: fetch failed, using placeholder")
			}
		}
		if data == nil {
			p.logger.Warn().Err(err).Str("lot_ref", lot.LotRef).Msg("images: fetch failed")
			return ""
		}
	}

	if p.cfg.Optimize {
		optimized, err := Transcode(data, p.cfg.MaxDimension, p.cfg.JPEGQuality)
		if err != nil {
			p.logger.Error().Err(err).Str("lot_ref", lot.LotRef).Msg("images: transcode failed")
			return ""
		}
		data = optimized
	}

	meta := storage.Metadata{OriginalRef: lot.PhotoPath, LotRef: lot.LotRef, HouseName: lot.HouseName}
	if err := p.store.Write(ctx, key, data, meta); err != nil {
		p.logger.Error().Err(err).Str("lot_ref", lot.LotRef).Str("key", key).Msg("images: store write failed")
		return ""
	}

	return p.store.PublicURL(key)
}

// DevelopmentFallback returns a FallbackFunc that substitutes a synthetic
// placeholder image. Production deployments should pass nil instead so
// failed lots stay visibly unprocessed.
func DevelopmentFallback() FallbackFunc {
	return func(lot domain.AuctionLot) []byte {
		return Placeholder(lot.LotRef)
	}
}

// ensure Fetcher satisfies the pipeline contract.
var _ ImageFetcher = (*Fetcher)(nil)

// Describe returns a short human-readable pipeline summary for startup logs.
func (p *Pipeline) Describe() string {
	return fmt.Sprintf("batch_size=%d optimize=%t max_dimension=%d", p.cfg.BatchSize, p.cfg.Optimize, p.cfg.MaxDimension)
}
