package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"valuer/internal/domain"
	"valuer/internal/sqlinline"
)

// LotRepositoryPG persists auction lots in PostgreSQL.
type LotRepositoryPG struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewLotRepository constructs a new lot repository instance.
func NewLotRepository(pool *pgxpool.Pool, logger zerolog.Logger) *LotRepositoryPG {
	return &LotRepositoryPG{pool: pool, logger: logger}
}

// UpsertAll stores every lot, updating records that already exist for the
// same lot_ref. refs maps lot refs to storage references produced by the
// image pipeline; lots without an entry are stored with a null storage path.
// A lot that fails to persist is logged and skipped so the rest of the
// payload still lands.
func (r *LotRepositoryPG) UpsertAll(ctx context.Context, lots []domain.AuctionLot, refs map[string]string) ([]domain.StoredLot, error) {
	stored := make([]domain.StoredLot, 0, len(lots))
	for _, lot := range lots {
		rec, err := r.upsert(ctx, lot, refs[lot.LotRef])
		if err != nil {
			if ctx.Err() != nil {
				return stored, ctx.Err()
			}
			r.logger.Error().Err(err).Str("lot_ref", lot.LotRef).Msg("repo: upsert lot failed")
			continue
		}
		stored = append(stored, rec)
	}
	return stored, nil
}

func (r *LotRepositoryPG) upsert(ctx context.Context, lot domain.AuctionLot, storagePath string) (domain.StoredLot, error) {
	rawData, err := marshalExtras(lot.Extras)
	if err != nil {
		return domain.StoredLot{}, fmt.Errorf("encode raw data: %w", err)
	}

	row := r.pool.QueryRow(ctx, sqlinline.QUpsertLot,
		uuid.NewString(),
		lot.LotNumber,
		lot.LotRef,
		lot.LotTitle,
		lot.Description,
		lot.HouseName,
		lot.SaleType,
		lot.DateTimeLocal,
		lot.DateTimeUTCUnix,
		lot.PriceResult,
		lot.CurrencyCode,
		lot.CurrencySymbol,
		lot.PhotoPath,
		storagePath,
		rawData,
	)
	return scanStoredLot(row)
}

// GetByRef returns the stored lot for a lot_ref, or domain.ErrNotFound.
func (r *LotRepositoryPG) GetByRef(ctx context.Context, lotRef string) (domain.StoredLot, error) {
	row := r.pool.QueryRow(ctx, sqlinline.QSelectLotByRef, lotRef)
	rec, err := scanStoredLot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StoredLot{}, domain.ErrNotFound
	}
	return rec, err
}

// ListRecent returns the most recently processed lots.
func (r *LotRepositoryPG) ListRecent(ctx context.Context, limit int) ([]domain.StoredLot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, sqlinline.QListRecentLots, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lots []domain.StoredLot
	for rows.Next() {
		rec, err := scanStoredLot(rows)
		if err != nil {
			return nil, err
		}
		lots = append(lots, rec)
	}
	return lots, rows.Err()
}

func scanStoredLot(row pgx.Row) (domain.StoredLot, error) {
	var rec domain.StoredLot
	err := row.Scan(
		&rec.ID,
		&rec.LotNumber,
		&rec.LotRef,
		&rec.LotTitle,
		&rec.Description,
		&rec.HouseName,
		&rec.SaleType,
		&rec.DateTimeLocal,
		&rec.DateTimeUTCUnix,
		&rec.PriceResult,
		&rec.CurrencyCode,
		&rec.CurrencySymbol,
		&rec.OriginalPhotoPath,
		&rec.StoragePath,
		&rec.RawData,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&rec.ProcessedAt,
	)
	return rec, err
}

func marshalExtras(extras map[string]json.RawMessage) ([]byte, error) {
	if len(extras) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(extras)
}
