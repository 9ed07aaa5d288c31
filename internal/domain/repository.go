package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AcquisitionRepository defines the interface for acquisition lot persistence operations
type AcquisitionRepository interface {
	// Create persists a new lot
	Create(ctx context.Context, lot *AcquisitionLot) error

	// ListByUser retrieves all lots owned by a user, ordered by acquisition date then creation time
	// Returns an empty slice (not an error) when the user has no lots
	ListByUser(ctx context.Context, userID string) ([]*AcquisitionLot, error)

	// DistinctAssetIDs returns the ids of every asset referenced by at least one lot
	DistinctAssetIDs(ctx context.Context) ([]uuid.UUID, error)
}

// AssetRepository defines the interface for asset persistence operations
type AssetRepository interface {
	// GetByID retrieves an asset by its ID
	// Returns an error wrapping ErrNotFound if it does not exist
	GetByID(ctx context.Context, id uuid.UUID) (*Asset, error)

	// GetBySymbol retrieves an asset by its normalized symbol
	// Returns an error wrapping ErrNotFound if it does not exist
	GetBySymbol(ctx context.Context, symbol string) (*Asset, error)

	// Create creates a new asset
	Create(ctx context.Context, asset *Asset) error

	// Search returns assets whose symbol or name contains query (case-insensitive)
	// An empty query returns all assets
	Search(ctx context.Context, query string) ([]*Asset, error)
}

// PriceSnapshotRepository defines the interface for price history persistence operations
type PriceSnapshotRepository interface {
	// Add appends a new snapshot
	Add(ctx context.Context, snapshot *PriceSnapshot) error

	// GetLatest retrieves the snapshot with the latest AsOf for an asset
	// Returns an error wrapping ErrNotFound if the asset has no snapshots
	GetLatest(ctx context.Context, assetID uuid.UUID) (*PriceSnapshot, error)

	// ListRange retrieves snapshots with from <= AsOf < to, ascending by AsOf
	ListRange(ctx context.Context, assetID uuid.UUID, from, to time.Time) ([]*PriceSnapshot, error)
}

// PriceLookup resolves the latest known unit price of an asset
type PriceLookup interface {
	// CurrentPrice returns the latest unit price of an asset expressed in currency.
	// It never fails: unknown or unavailable prices resolve to a documented default.
	CurrentPrice(ctx context.Context, assetID uuid.UUID, currency string) decimal.Decimal
}

// CurrencyConverter converts amounts between currency codes
type CurrencyConverter interface {
	// Rate returns the exchange rate from -> to, carried to 6 decimal places
	Rate(from, to string) decimal.Decimal

	// Convert converts amount and rounds the result to 2 decimal places
	Convert(amount decimal.Decimal, from, to string) decimal.Decimal
}

// AssetLookup resolves asset details by id
type AssetLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Asset, error)
}
