package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/simaogato/investtrack-backend/internal/domain"
)

// uniqueViolation is the PostgreSQL error code for a duplicate key
const uniqueViolation = "23505"

// assetRepository implements domain.AssetRepository
type assetRepository struct {
	db *DB
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *DB) domain.AssetRepository {
	return &assetRepository{db: db}
}

const assetColumns = `id, symbol, name, asset_type, currency, description`

// GetByID retrieves an asset by its ID
func (r *assetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1`

	asset, err := scanAsset(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("asset %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get asset by ID: %w", err)
	}
	return asset, nil
}

// GetBySymbol retrieves an asset by its normalized symbol
func (r *assetRepository) GetBySymbol(ctx context.Context, symbol string) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE symbol = $1`

	symbol = domain.NormalizeSymbol(symbol)
	asset, err := scanAsset(r.db.QueryRowContext(ctx, query, symbol))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("asset %s: %w", symbol, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get asset by symbol: %w", err)
	}
	return asset, nil
}

// Create creates a new asset
func (r *assetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	query := `
		INSERT INTO assets (id, symbol, name, asset_type, currency, description)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		asset.ID,
		domain.NormalizeSymbol(asset.Symbol),
		asset.Name,
		string(asset.Type),
		asset.Currency,
		asset.Description,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("asset symbol %s already exists: %w", asset.Symbol, domain.ErrConflict)
		}
		return fmt.Errorf("failed to create asset: %w", err)
	}

	return nil
}

// Search returns assets whose symbol or name contains query, case-insensitively
func (r *assetRepository) Search(ctx context.Context, query string) ([]*domain.Asset, error) {
	stmt := `
		SELECT ` + assetColumns + `
		FROM assets
		WHERE $1 = '' OR symbol ILIKE $2 OR name ILIKE $2
		ORDER BY symbol
	`

	query = strings.TrimSpace(query)
	pattern := "%" + escapeLike(query) + "%"

	rows, err := r.db.QueryContext(ctx, stmt, query, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search assets: %w", err)
	}
	defer rows.Close()

	assets := make([]*domain.Asset, 0)
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return assets, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*domain.Asset, error) {
	var asset domain.Asset
	var assetType string

	if err := row.Scan(
		&asset.ID,
		&asset.Symbol,
		&asset.Name,
		&assetType,
		&asset.Currency,
		&asset.Description,
	); err != nil {
		return nil, err
	}
	asset.Type = domain.AssetType(assetType)

	return &asset, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
