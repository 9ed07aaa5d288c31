// Package pricing resolves current asset prices and records new price snapshots.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/simaogato/investtrack-backend/internal/adapter/cache"
	"github.com/simaogato/investtrack-backend/internal/domain"
)

// ViewCurrentPrice is the cache view holding resolved current prices, owned by asset id
const ViewCurrentPrice = "current-price"

// RefreshReport summarizes one batch price refresh
type RefreshReport struct {
	Assets  int
	Updated int
	Failed  int
}

// Quote is a price returned by a QuoteSource
type Quote struct {
	Price    decimal.Decimal
	Currency string
}

// QuoteSource fetches the latest market price of an asset from outside the system
type QuoteSource interface {
	Quote(ctx context.Context, asset *domain.Asset) (Quote, error)
}

// Service resolves current prices and records price snapshots
type Service struct {
	PriceRepo domain.PriceSnapshotRepository
	AssetRepo domain.AssetRepository
	LotRepo   domain.AcquisitionRepository
	Converter domain.CurrencyConverter
	Quotes    QuoteSource
	Cache     *cache.Memory

	PriceTTL     time.Duration
	DefaultPrice decimal.Decimal
	Limiter      *rate.Limiter
	Now          func() time.Time

	log zerolog.Logger
}

// NewService creates a new pricing Service.
// requestsPerSecond paces the batch refresh; defaultPrice is the placeholder used for
// assets that have never been priced.
func NewService(
	priceRepo domain.PriceSnapshotRepository,
	assetRepo domain.AssetRepository,
	lotRepo domain.AcquisitionRepository,
	converter domain.CurrencyConverter,
	quotes QuoteSource,
	viewCache *cache.Memory,
	priceTTL time.Duration,
	defaultPrice decimal.Decimal,
	requestsPerSecond int,
	log zerolog.Logger,
) *Service {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}
	return &Service{
		PriceRepo:    priceRepo,
		AssetRepo:    assetRepo,
		LotRepo:      lotRepo,
		Converter:    converter,
		Quotes:       quotes,
		Cache:        viewCache,
		PriceTTL:     priceTTL,
		DefaultPrice: defaultPrice,
		Limiter:      rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		Now:          time.Now,
		log:          log.With().Str("service", "pricing").Logger(),
	}
}

// CurrentPrice returns the latest unit price of an asset expressed in currency.
// An asset without any snapshot gets a DEFAULT snapshot stored at the placeholder price.
// Storage failures degrade to the placeholder price and are never returned.
func (s *Service) CurrentPrice(ctx context.Context, assetID uuid.UUID, currency string) decimal.Decimal {
	currency = strings.ToUpper(currency)
	key := cache.Key{View: ViewCurrentPrice, Owner: assetID.String(), Param: currency}

	price, err := cache.GetOrLoad(ctx, s.Cache, key, s.PriceTTL, func(ctx context.Context) (decimal.Decimal, error) {
		return s.resolvePrice(ctx, assetID, currency)
	})
	if err != nil {
		s.log.Warn().Err(err).Str("asset_id", assetID.String()).Msg("price lookup failed, using default price")
		return s.DefaultPrice
	}
	return price
}

func (s *Service) resolvePrice(ctx context.Context, assetID uuid.UUID, currency string) (decimal.Decimal, error) {
	snapshot, err := s.PriceRepo.GetLatest(ctx, assetID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return decimal.Zero, err
		}

		s.log.Warn().Str("asset_id", assetID.String()).Msg("no price found, storing default price")
		if _, err := s.record(ctx, assetID, s.DefaultPrice, currency, domain.PriceSourceDefault); err != nil {
			s.log.Warn().Err(err).Str("asset_id", assetID.String()).Msg("failed to store default price")
		}
		return s.DefaultPrice, nil
	}

	s.log.Debug().
		Str("asset_id", assetID.String()).
		Str("price", snapshot.Price.String()).
		Str("currency", snapshot.Currency).
		Msg("found price")

	if snapshot.Currency == "" || strings.EqualFold(snapshot.Currency, currency) {
		return snapshot.Price, nil
	}
	return snapshot.Price.Mul(s.Converter.Rate(snapshot.Currency, currency)).Round(6), nil
}

// LatestSnapshot returns the most recent snapshot of an asset
func (s *Service) LatestSnapshot(ctx context.Context, assetID uuid.UUID) (*domain.PriceSnapshot, error) {
	return s.PriceRepo.GetLatest(ctx, assetID)
}

// RecordPrice appends a new snapshot for an existing asset and evicts its cached prices.
// An empty currency defaults to the asset's native currency; an empty source to MANUAL.
func (s *Service) RecordPrice(ctx context.Context, assetID uuid.UUID, price decimal.Decimal, currency, source string) (*domain.PriceSnapshot, error) {
	// 1. Validate input
	if !price.IsPositive() {
		return nil, fmt.Errorf("price must be positive: %w", domain.ErrInvalidInput)
	}

	// 2. Verify asset exists
	asset, err := s.AssetRepo.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}

	if currency == "" {
		currency = asset.Currency
	}
	if source == "" {
		source = domain.PriceSourceManual
	}

	// 3. Persist and evict
	snapshot, err := s.record(ctx, assetID, price, strings.ToUpper(currency), source)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("asset_id", assetID.String()).
		Str("price", price.String()).
		Str("currency", snapshot.Currency).
		Str("source", source).
		Msg("price recorded")

	return snapshot, nil
}

func (s *Service) record(ctx context.Context, assetID uuid.UUID, price decimal.Decimal, currency, source string) (*domain.PriceSnapshot, error) {
	snapshot := &domain.PriceSnapshot{
		ID:       uuid.New(),
		AssetID:  assetID,
		Price:    price,
		Currency: currency,
		AsOf:     s.Now().UTC(),
		Source:   source,
	}

	if err := s.PriceRepo.Add(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to add price snapshot: %w", err)
	}

	s.Cache.Invalidate(cache.Prefix{View: ViewCurrentPrice, Owner: assetID.String()})
	return snapshot, nil
}

// RefreshAll fetches a new quote for every asset held by at least one user.
// Requests are paced by the limiter. A failure on one asset is logged and counted but
// never aborts the batch; only a cancelled context stops it early.
func (s *Service) RefreshAll(ctx context.Context) (RefreshReport, error) {
	var report RefreshReport

	assetIDs, err := s.LotRepo.DistinctAssetIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list held assets: %w", err)
	}

	report.Assets = len(assetIDs)
	if report.Assets == 0 {
		s.log.Info().Msg("no assets found for price updates")
		return report, nil
	}

	s.log.Info().Int("assets", report.Assets).Msg("starting batch price update")

	for _, assetID := range assetIDs {
		if err := s.Limiter.Wait(ctx); err != nil {
			return report, fmt.Errorf("batch price update interrupted: %w", err)
		}

		if err := s.refreshOne(ctx, assetID); err != nil {
			s.log.Error().Err(err).Str("asset_id", assetID.String()).Msg("failed to update price")
			report.Failed++
			continue
		}
		report.Updated++
	}

	s.log.Info().
		Int("updated", report.Updated).
		Int("failed", report.Failed).
		Msg("batch price update completed")

	return report, nil
}

func (s *Service) refreshOne(ctx context.Context, assetID uuid.UUID) error {
	asset, err := s.AssetRepo.GetByID(ctx, assetID)
	if err != nil {
		return err
	}

	quote, err := s.Quotes.Quote(ctx, asset)
	if err != nil {
		return fmt.Errorf("failed to fetch quote for %s: %w", asset.Symbol, err)
	}

	currency := quote.Currency
	if currency == "" {
		currency = asset.Currency
	}

	_, err = s.RecordPrice(ctx, assetID, quote.Price, currency, domain.PriceSourceRealTimeUpdate)
	return err
}
