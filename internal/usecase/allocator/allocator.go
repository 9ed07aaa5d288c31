package allocator

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/simaogato/investtrack-backend/internal/domain"
	"github.com/simaogato/investtrack-backend/internal/usecase/position"
)

// DefaultMoversLimit is used when the caller does not ask for a positive limit
const DefaultMoversLimit = 5

// Palette is the cyclic color sequence assigned to allocation slices
var Palette = []string{"#FF6384", "#36A2EB", "#FFCE56", "#4BC0C0", "#9966FF", "#FF9F40"}

// moverChangeRate approximates an asset's daily move as a fixed share of its value
// until real daily-change data is wired in
var moverChangeRate = decimal.RequireFromString("0.03")

var hundred = decimal.NewFromInt(100)

// Holding is a position priced in the base currency
type Holding struct {
	Asset    *domain.Asset
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Value    decimal.Decimal
}

// CalculateAllocation groups holdings by asset type
// Logic:
//  1. Sum holding values per asset type, remembering the order types first appear in
//  2. Assign palette colors in that order, wrapping around the palette
//  3. Percentage = type value / total value * 100 (0 when the total is not positive)
//  4. Sort by value, largest first
func CalculateAllocation(holdings []Holding) []domain.AllocationSlice {
	byType := make(map[domain.AssetType]*domain.AllocationSlice)
	order := make([]domain.AssetType, 0)
	total := decimal.Zero

	// Step 1: Sum values per type
	for _, h := range holdings {
		slice, ok := byType[h.Asset.Type]
		if !ok {
			slice = &domain.AllocationSlice{
				AssetType: h.Asset.Type,
				Name:      string(h.Asset.Type),
				Value:     decimal.Zero,
			}
			byType[h.Asset.Type] = slice
			order = append(order, h.Asset.Type)
		}
		slice.Value = slice.Value.Add(h.Value)
		total = total.Add(h.Value)
	}

	// Step 2 and 3: Colors and percentages
	slices := make([]domain.AllocationSlice, 0, len(order))
	for i, t := range order {
		slice := byType[t]
		slice.Color = Palette[i%len(Palette)]
		slice.Percentage = decimal.Zero
		if total.IsPositive() {
			slice.Percentage = slice.Value.Mul(hundred).DivRound(total, 2)
		}
		slice.Value = slice.Value.Round(2)
		slices = append(slices, *slice)
	}

	// Step 4: Largest first
	sort.SliceStable(slices, func(i, j int) bool {
		return slices[i].Value.GreaterThan(slices[j].Value)
	})

	return slices
}

// RankTopMovers returns up to limit holdings ordered by absolute change percent,
// larger values first on ties. A limit <= 0 means DefaultMoversLimit.
// The change is a fixed share of the holding value, not an observed price move.
func RankTopMovers(holdings []Holding, limit int) []domain.TopMover {
	if limit <= 0 {
		limit = DefaultMoversLimit
	}

	movers := make([]domain.TopMover, 0, len(holdings))
	for _, h := range holdings {
		change := h.Value.Mul(moverChangeRate)
		changePercent := decimal.Zero
		if h.Value.IsPositive() {
			changePercent = change.Mul(hundred).DivRound(h.Value, 2)
		}

		direction := domain.StatusUp
		if change.IsNegative() {
			direction = domain.StatusDown
		}

		movers = append(movers, domain.TopMover{
			AssetID:       h.Asset.ID,
			Symbol:        h.Asset.Symbol,
			Name:          h.Asset.Name,
			CurrentPrice:  h.Price.Round(2),
			Value:         h.Value.Round(2),
			Change:        change.Round(2),
			ChangePercent: changePercent,
			Direction:     direction,
		})
	}

	sort.SliceStable(movers, func(i, j int) bool {
		ai, aj := movers[i].ChangePercent.Abs(), movers[j].ChangePercent.Abs()
		if !ai.Equal(aj) {
			return ai.GreaterThan(aj)
		}
		return movers[i].Value.GreaterThan(movers[j].Value)
	})

	if len(movers) > limit {
		movers = movers[:limit]
	}
	return movers
}

// Service prices a user's positions for allocation and movers
type Service struct {
	Positions    *position.Aggregator
	Prices       domain.PriceLookup
	Assets       domain.AssetLookup
	BaseCurrency string

	log zerolog.Logger
}

// NewService creates a new allocator Service
func NewService(positions *position.Aggregator, prices domain.PriceLookup, assets domain.AssetLookup, baseCurrency string, log zerolog.Logger) *Service {
	return &Service{
		Positions:    positions,
		Prices:       prices,
		Assets:       assets,
		BaseCurrency: strings.ToUpper(baseCurrency),
		log:          log.With().Str("service", "allocator").Logger(),
	}
}

// Holdings prices every position of userID in the base currency.
// Positions whose asset cannot be resolved are skipped with a warning.
func (s *Service) Holdings(ctx context.Context, userID string) ([]Holding, error) {
	positions, err := s.Positions.Aggregate(ctx, userID)
	if err != nil {
		return nil, err
	}

	holdings := make([]Holding, 0, len(positions))
	for _, p := range positions {
		asset, err := s.Assets.GetByID(ctx, p.AssetID)
		if err != nil {
			s.log.Warn().Err(err).Str("asset_id", p.AssetID.String()).Msg("skipping position with unknown asset")
			continue
		}

		price := s.Prices.CurrentPrice(ctx, p.AssetID, s.BaseCurrency)
		holdings = append(holdings, Holding{
			Asset:    asset,
			Quantity: p.Quantity,
			Price:    price,
			Value:    p.Quantity.Mul(price),
		})
	}
	return holdings, nil
}

// Allocation returns the user's allocation by asset type
func (s *Service) Allocation(ctx context.Context, userID string) ([]domain.AllocationSlice, error) {
	holdings, err := s.Holdings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return CalculateAllocation(holdings), nil
}

// TopMovers returns the user's top movers
func (s *Service) TopMovers(ctx context.Context, userID string, limit int) ([]domain.TopMover, error) {
	holdings, err := s.Holdings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return RankTopMovers(holdings, limit), nil
}
