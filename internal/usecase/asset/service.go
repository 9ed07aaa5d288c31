// Package asset manages the shared asset catalogue.
package asset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/simaogato/investtrack-backend/internal/adapter/cache"
	"github.com/simaogato/investtrack-backend/internal/domain"
)

// ViewAssetDetails is the cache view holding asset records, owned by asset id
const ViewAssetDetails = "asset-details"

// Service handles asset lookup and lazy creation
type Service struct {
	AssetRepo    domain.AssetRepository
	Cache        *cache.Memory
	ReferenceTTL time.Duration

	log zerolog.Logger
}

// NewService creates a new asset Service
func NewService(assetRepo domain.AssetRepository, viewCache *cache.Memory, referenceTTL time.Duration, log zerolog.Logger) *Service {
	return &Service{
		AssetRepo:    assetRepo,
		Cache:        viewCache,
		ReferenceTTL: referenceTTL,
		log:          log.With().Str("service", "asset").Logger(),
	}
}

// FindOrCreate returns the asset with the given symbol, creating it when unknown.
// name defaults to the symbol and currency to USD.
func (s *Service) FindOrCreate(ctx context.Context, symbol, name string, assetType domain.AssetType, currency string) (*domain.Asset, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("asset symbol cannot be empty: %w", domain.ErrInvalidInput)
	}

	existing, err := s.AssetRepo.GetBySymbol(ctx, symbol)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up asset %s: %w", symbol, err)
	}

	if strings.TrimSpace(name) == "" {
		name = symbol
	}
	if currency == "" {
		currency = "USD"
	}

	asset := &domain.Asset{
		ID:       uuid.New(),
		Symbol:   symbol,
		Name:     strings.TrimSpace(name),
		Type:     assetType,
		Currency: strings.ToUpper(currency),
	}
	if err := asset.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrInvalidInput)
	}

	if err := s.AssetRepo.Create(ctx, asset); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("failed to create asset %s: %w", symbol, err)
		}
		// Lost the race to a concurrent first acquisition; use the stored asset
		winner, lookupErr := s.AssetRepo.GetBySymbol(ctx, symbol)
		if lookupErr != nil {
			return nil, fmt.Errorf("failed to look up asset %s after conflict: %w", symbol, lookupErr)
		}
		return winner, nil
	}

	s.log.Info().Str("asset_id", asset.ID.String()).Str("symbol", symbol).Str("type", string(assetType)).Msg("asset created")
	return asset, nil
}

// GetByID returns an asset by id
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	key := cache.Key{View: ViewAssetDetails, Owner: id.String()}
	return cache.GetOrLoad(ctx, s.Cache, key, s.ReferenceTTL, func(ctx context.Context) (*domain.Asset, error) {
		return s.AssetRepo.GetByID(ctx, id)
	})
}

// Search returns assets whose symbol or name contains query.
// assetType and currency are optional exact-match filters; empty means any.
func (s *Service) Search(ctx context.Context, query string, assetType domain.AssetType, currency string) ([]*domain.Asset, error) {
	assets, err := s.AssetRepo.Search(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("failed to search assets: %w", err)
	}

	filtered := make([]*domain.Asset, 0, len(assets))
	for _, a := range assets {
		if assetType != "" && a.Type != assetType {
			continue
		}
		if currency != "" && !strings.EqualFold(a.Currency, currency) {
			continue
		}
		filtered = append(filtered, a)
	}
	return filtered, nil
}
