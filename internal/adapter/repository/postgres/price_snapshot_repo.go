package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/investtrack-backend/internal/domain"
)

// priceSnapshotRepository implements domain.PriceSnapshotRepository
type priceSnapshotRepository struct {
	db *DB
}

// NewPriceSnapshotRepository creates a new price snapshot repository
func NewPriceSnapshotRepository(db *DB) domain.PriceSnapshotRepository {
	return &priceSnapshotRepository{db: db}
}

// Add appends a new snapshot
func (r *priceSnapshotRepository) Add(ctx context.Context, snapshot *domain.PriceSnapshot) error {
	query := `
		INSERT INTO price_snapshots (id, asset_id, price, currency, as_of, source)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		snapshot.ID,
		snapshot.AssetID,
		snapshot.Price.String(),
		snapshot.Currency,
		snapshot.AsOf,
		snapshot.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to insert price snapshot: %w", err)
	}

	return nil
}

// GetLatest retrieves the most recent snapshot for an asset
func (r *priceSnapshotRepository) GetLatest(ctx context.Context, assetID uuid.UUID) (*domain.PriceSnapshot, error) {
	query := `
		SELECT id, asset_id, price, currency, as_of, source
		FROM price_snapshots
		WHERE asset_id = $1
		ORDER BY as_of DESC
		LIMIT 1
	`

	snapshot, err := scanSnapshot(r.db.QueryRowContext(ctx, query, assetID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no price snapshot found for asset %s: %w", assetID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest price snapshot: %w", err)
	}
	return snapshot, nil
}

// ListRange retrieves snapshots with from <= as_of < to, oldest first
func (r *priceSnapshotRepository) ListRange(ctx context.Context, assetID uuid.UUID, from, to time.Time) ([]*domain.PriceSnapshot, error) {
	query := `
		SELECT id, asset_id, price, currency, as_of, source
		FROM price_snapshots
		WHERE asset_id = $1 AND as_of >= $2 AND as_of < $3
		ORDER BY as_of ASC
	`

	rows, err := r.db.QueryContext(ctx, query, assetID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query price snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]*domain.PriceSnapshot, 0)
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price snapshot: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price snapshots: %w", err)
	}

	return snapshots, nil
}

func scanSnapshot(row rowScanner) (*domain.PriceSnapshot, error) {
	var snapshot domain.PriceSnapshot
	var priceStr string

	if err := row.Scan(
		&snapshot.ID,
		&snapshot.AssetID,
		&priceStr,
		&snapshot.Currency,
		&snapshot.AsOf,
		&snapshot.Source,
	); err != nil {
		return nil, err
	}

	// Parse price (NUMERIC)
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price: %w", err)
	}
	snapshot.Price = price

	return &snapshot, nil
}
