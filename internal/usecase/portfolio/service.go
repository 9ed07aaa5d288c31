// Package portfolio is the entry point of the valuation engine: it records acquisitions
// and serves cached summary, history, allocation, movers and analytics views per user.
package portfolio

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/simaogato/investtrack-backend/internal/adapter/cache"
	"github.com/simaogato/investtrack-backend/internal/domain"
	"github.com/simaogato/investtrack-backend/internal/usecase/allocator"
	"github.com/simaogato/investtrack-backend/internal/usecase/asset"
	"github.com/simaogato/investtrack-backend/internal/usecase/history"
	"github.com/simaogato/investtrack-backend/internal/usecase/risk"
	"github.com/simaogato/investtrack-backend/internal/usecase/valuation"
)

// Cached views, keyed by user id
const (
	ViewSummary    = "portfolio-summary"
	ViewHistory    = "portfolio-history"
	ViewAllocation = "asset-allocation"
	ViewTopMovers  = "top-movers"
	ViewAnalytics  = "portfolio-analytics"
)

// evictedOnAcquisition lists the views a new lot makes stale.
// History is left to expire on its own.
var evictedOnAcquisition = []string{ViewSummary, ViewAnalytics, ViewAllocation, ViewTopMovers}

// DefaultCurrency is used for lots recorded without a currency
const DefaultCurrency = "USD"

// AcquisitionInput is a request to record one purchase
type AcquisitionInput struct {
	Symbol          string
	Name            string
	AssetType       domain.AssetType
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	Currency        string
	Fee             decimal.Decimal
	AcquisitionDate time.Time
	Notes           string
	Tags            []string
}

// Validate checks the input before anything is written
func (in *AcquisitionInput) Validate() error {
	if domain.NormalizeSymbol(in.Symbol) == "" {
		return fmt.Errorf("asset symbol is required: %w", domain.ErrInvalidInput)
	}
	if !in.AssetType.Valid() {
		return fmt.Errorf("invalid asset type %q: %w", in.AssetType, domain.ErrInvalidInput)
	}
	if !in.Quantity.IsPositive() {
		return fmt.Errorf("quantity must be positive: %w", domain.ErrInvalidInput)
	}
	if !in.UnitPrice.IsPositive() {
		return fmt.Errorf("unit price must be positive: %w", domain.ErrInvalidInput)
	}
	if in.Fee.IsNegative() {
		return fmt.Errorf("fee must not be negative: %w", domain.ErrInvalidInput)
	}
	if in.AcquisitionDate.IsZero() {
		return fmt.Errorf("acquisition date is required: %w", domain.ErrInvalidInput)
	}
	return nil
}

// Service records acquisitions and serves the cached portfolio views
type Service struct {
	Assets    *asset.Service
	LotRepo   domain.AcquisitionRepository
	Valuation *valuation.Engine
	History   *history.Synthesizer
	Allocator *allocator.Service
	Cache     *cache.Memory

	AnalyticsTTL time.Duration
	Now          func() time.Time

	log zerolog.Logger
}

// NewService creates a new portfolio Service
func NewService(
	assets *asset.Service,
	lotRepo domain.AcquisitionRepository,
	valuationEngine *valuation.Engine,
	historySynthesizer *history.Synthesizer,
	allocatorService *allocator.Service,
	viewCache *cache.Memory,
	analyticsTTL time.Duration,
	log zerolog.Logger,
) *Service {
	return &Service{
		Assets:       assets,
		LotRepo:      lotRepo,
		Valuation:    valuationEngine,
		History:      historySynthesizer,
		Allocator:    allocatorService,
		Cache:        viewCache,
		AnalyticsTTL: analyticsTTL,
		Now:          time.Now,
		log:          log.With().Str("service", "portfolio").Logger(),
	}
}

// AddAcquisition records a purchase for userID and makes the user's cached views stale.
// Logic:
//  1. Validate the input (nothing is written on failure)
//  2. Find the asset by symbol, creating it on first use
//  3. Persist the lot with a fresh id and timestamps
//  4. Evict summary, analytics, allocation and top movers for the user
func (s *Service) AddAcquisition(ctx context.Context, userID string, in AcquisitionInput) (*domain.AcquisitionLot, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	// 1. Validate
	if err := in.Validate(); err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}

	// 2. Find or create asset
	a, err := s.Assets.FindOrCreate(ctx, in.Symbol, in.Name, in.AssetType, currency)
	if err != nil {
		return nil, err
	}

	// 3. Persist lot
	now := s.Now().UTC()
	lot := &domain.AcquisitionLot{
		ID:              uuid.New(),
		UserID:          userID,
		AssetID:         a.ID,
		Quantity:        in.Quantity,
		UnitPrice:       in.UnitPrice,
		Currency:        currency,
		Fee:             in.Fee,
		AcquisitionDate: in.AcquisitionDate,
		Notes:           in.Notes,
		Tags:            in.Tags,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := lot.Validate(); err != nil {
		return nil, err
	}
	if err := s.LotRepo.Create(ctx, lot); err != nil {
		return nil, fmt.Errorf("failed to create acquisition: %w", err)
	}

	// 4. Invalidate
	s.invalidate(userID)

	s.log.Info().
		Str("user_id", userID).
		Str("lot_id", lot.ID.String()).
		Str("symbol", a.Symbol).
		Str("quantity", lot.Quantity.String()).
		Msg("acquisition recorded")

	return lot, nil
}

func (s *Service) invalidate(userID string) {
	for _, view := range evictedOnAcquisition {
		s.Cache.Invalidate(cache.Prefix{View: view, Owner: userID})
	}
}

// ListAcquisitions returns the user's lots
func (s *Service) ListAcquisitions(ctx context.Context, userID string) ([]*domain.AcquisitionLot, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	lots, err := s.LotRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list acquisitions: %w", err)
	}
	return lots, nil
}

// GetSummary returns the user's portfolio summary
func (s *Service) GetSummary(ctx context.Context, userID string) (*domain.PortfolioSummary, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	key := cache.Key{View: ViewSummary, Owner: userID}
	return cache.GetOrLoad(ctx, s.Cache, key, s.AnalyticsTTL, func(ctx context.Context) (*domain.PortfolioSummary, error) {
		return s.Valuation.ComputeSummary(ctx, userID)
	})
}

// GetHistory returns the user's daily value series for period
func (s *Service) GetHistory(ctx context.Context, userID string, period domain.Period) ([]domain.HistoryPoint, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	key := cache.Key{View: ViewHistory, Owner: userID, Param: string(period)}
	return cache.GetOrLoad(ctx, s.Cache, key, s.AnalyticsTTL, func(ctx context.Context) ([]domain.HistoryPoint, error) {
		return s.History.ComputeHistory(ctx, userID, period)
	})
}

// GetAllocation returns the user's allocation by asset type
func (s *Service) GetAllocation(ctx context.Context, userID string) ([]domain.AllocationSlice, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	key := cache.Key{View: ViewAllocation, Owner: userID}
	return cache.GetOrLoad(ctx, s.Cache, key, s.AnalyticsTTL, func(ctx context.Context) ([]domain.AllocationSlice, error) {
		return s.Allocator.Allocation(ctx, userID)
	})
}

// GetTopMovers returns up to limit of the user's top movers (limit <= 0 means 5)
func (s *Service) GetTopMovers(ctx context.Context, userID string, limit int) ([]domain.TopMover, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = allocator.DefaultMoversLimit
	}
	key := cache.Key{View: ViewTopMovers, Owner: userID, Param: strconv.Itoa(limit)}
	return cache.GetOrLoad(ctx, s.Cache, key, s.AnalyticsTTL, func(ctx context.Context) ([]domain.TopMover, error) {
		return s.Allocator.TopMovers(ctx, userID, limit)
	})
}

// GetAnalytics returns the analytics bundle for period.
// Its parts are computed fresh rather than read from the other cached views, so a
// bundle is never assembled from a history that outlived an acquisition.
func (s *Service) GetAnalytics(ctx context.Context, userID string, period domain.Period) (*domain.AnalyticsBundle, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	key := cache.Key{View: ViewAnalytics, Owner: userID, Param: string(period)}
	return cache.GetOrLoad(ctx, s.Cache, key, s.AnalyticsTTL, func(ctx context.Context) (*domain.AnalyticsBundle, error) {
		return s.computeAnalytics(ctx, userID, period)
	})
}

func (s *Service) computeAnalytics(ctx context.Context, userID string, period domain.Period) (*domain.AnalyticsBundle, error) {
	points, err := s.History.ComputeHistory(ctx, userID, period)
	if err != nil {
		return nil, err
	}

	holdings, err := s.Allocator.Holdings(ctx, userID)
	if err != nil {
		return nil, err
	}

	metrics := risk.Compute(points)

	return &domain.AnalyticsBundle{
		Period:             period,
		History:            points,
		Allocation:         allocator.CalculateAllocation(holdings),
		TopMovers:          allocator.RankTopMovers(holdings, allocator.DefaultMoversLimit),
		TotalReturn:        metrics.TotalReturn,
		TotalReturnPercent: metrics.TotalReturnPercent,
		Volatility:         metrics.Volatility,
		SharpeRatio:        metrics.SharpeRatio,
		MaxDrawdown:        metrics.MaxDrawdown,
	}, nil
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required: %w", domain.ErrInvalidInput)
	}
	return nil
}
