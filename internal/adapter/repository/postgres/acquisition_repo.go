package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/simaogato/investtrack-backend/internal/domain"
)

// acquisitionRepository implements domain.AcquisitionRepository
type acquisitionRepository struct {
	db *DB
}

// NewAcquisitionRepository creates a new acquisition lot repository
func NewAcquisitionRepository(db *DB) domain.AcquisitionRepository {
	return &acquisitionRepository{db: db}
}

// Create persists a new lot
func (r *acquisitionRepository) Create(ctx context.Context, lot *domain.AcquisitionLot) error {
	query := `
		INSERT INTO acquisition_lots (
			id, user_id, asset_id, quantity, unit_price, currency, fee,
			acquisition_date, notes, tags, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	tags := lot.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := r.db.ExecContext(ctx, query,
		lot.ID,
		lot.UserID,
		lot.AssetID,
		lot.Quantity.String(),
		lot.UnitPrice.String(),
		lot.Currency,
		lot.Fee.String(),
		lot.AcquisitionDate,
		lot.Notes,
		pq.Array(tags),
		lot.CreatedAt,
		lot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert acquisition lot: %w", err)
	}

	return nil
}

// ListByUser retrieves all lots owned by a user, ordered by acquisition date then creation time
func (r *acquisitionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.AcquisitionLot, error) {
	query := `
		SELECT id, user_id, asset_id, quantity, unit_price, currency, fee,
		       acquisition_date, notes, tags, created_at, updated_at
		FROM acquisition_lots
		WHERE user_id = $1
		ORDER BY acquisition_date ASC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query acquisition lots: %w", err)
	}
	defer rows.Close()

	lots := make([]*domain.AcquisitionLot, 0)
	for rows.Next() {
		var lot domain.AcquisitionLot
		var quantityStr, unitPriceStr, feeStr string
		var tags pq.StringArray

		if err := rows.Scan(
			&lot.ID,
			&lot.UserID,
			&lot.AssetID,
			&quantityStr,
			&unitPriceStr,
			&lot.Currency,
			&feeStr,
			&lot.AcquisitionDate,
			&lot.Notes,
			&tags,
			&lot.CreatedAt,
			&lot.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan acquisition lot: %w", err)
		}

		// Parse NUMERIC columns
		if lot.Quantity, err = decimal.NewFromString(quantityStr); err != nil {
			return nil, fmt.Errorf("failed to parse quantity: %w", err)
		}
		if lot.UnitPrice, err = decimal.NewFromString(unitPriceStr); err != nil {
			return nil, fmt.Errorf("failed to parse unit_price: %w", err)
		}
		if lot.Fee, err = decimal.NewFromString(feeStr); err != nil {
			return nil, fmt.Errorf("failed to parse fee: %w", err)
		}
		lot.Tags = []string(tags)

		lots = append(lots, &lot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating acquisition lots: %w", err)
	}

	return lots, nil
}

// DistinctAssetIDs returns the ids of every asset referenced by at least one lot
func (r *acquisitionRepository) DistinctAssetIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT DISTINCT asset_id FROM acquisition_lots`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query held assets: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan asset id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating asset ids: %w", err)
	}

	return ids, nil
}
