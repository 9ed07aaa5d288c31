// Package valuation computes the portfolio summary.
package valuation

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/simaogato/investtrack-backend/internal/domain"
	"github.com/simaogato/investtrack-backend/internal/usecase/position"
)

var hundred = decimal.NewFromInt(100)

// fxVolatility is the fraction of a foreign-currency position's value attributed to
// currency movement. These are fixed estimates, not derived from rate history.
var fxVolatility = map[string]decimal.Decimal{
	"USD": decimal.RequireFromString("0.05"),
	"EUR": decimal.RequireFromString("0.04"),
	"GBP": decimal.RequireFromString("0.06"),
}

var defaultFXVolatility = decimal.RequireFromString("0.03")

// Engine computes portfolio summaries in a single base currency
type Engine struct {
	Positions    *position.Aggregator
	Prices       domain.PriceLookup
	Snapshots    domain.PriceSnapshotRepository
	Assets       domain.AssetLookup
	Converter    domain.CurrencyConverter
	BaseCurrency string

	log zerolog.Logger
}

// NewEngine creates a new valuation Engine
func NewEngine(
	positions *position.Aggregator,
	prices domain.PriceLookup,
	snapshots domain.PriceSnapshotRepository,
	assets domain.AssetLookup,
	converter domain.CurrencyConverter,
	baseCurrency string,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		Positions:    positions,
		Prices:       prices,
		Snapshots:    snapshots,
		Assets:       assets,
		Converter:    converter,
		BaseCurrency: strings.ToUpper(baseCurrency),
		log:          log.With().Str("service", "valuation").Logger(),
	}
}

// ComputeSummary values every lot of userID at the current price.
// Missing prices, rates or assets degrade the affected figures instead of failing.
func (e *Engine) ComputeSummary(ctx context.Context, userID string) (*domain.PortfolioSummary, error) {
	positions, err := e.Positions.Aggregate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(positions) == 0 {
		return domain.EmptySummary(e.BaseCurrency), nil
	}

	totalCost := decimal.Zero
	totalValue := decimal.Zero
	totalFees := decimal.Zero
	fxInfluence := decimal.Zero
	todayCurrent := decimal.Zero
	todayPrevious := decimal.Zero

	for _, p := range positions {
		// 1. Cost basis, converted per lot currency
		totalCost = totalCost.Add(p.CostIn(e.Converter, e.BaseCurrency))
		totalFees = totalFees.Add(p.FeesIn(e.Converter, e.BaseCurrency))

		// 2. Current value at one price lookup per asset
		price := e.Prices.CurrentPrice(ctx, p.AssetID, e.BaseCurrency)
		value := p.Quantity.Mul(price)
		totalValue = totalValue.Add(value)

		// 3. Daily change against the previous day's last snapshot
		current, previous := e.dailyValues(ctx, p, value)
		todayCurrent = todayCurrent.Add(current)
		todayPrevious = todayPrevious.Add(previous)

		// 4. FX influence estimate
		fxInfluence = fxInfluence.Add(e.fxInfluence(ctx, p.AssetID, value))
	}

	pl := totalValue.Sub(totalCost)

	summary := &domain.PortfolioSummary{
		Currency:            e.BaseCurrency,
		TotalValue:          totalValue.Round(2),
		CostBasis:           totalCost.Round(2),
		TotalFees:           totalFees.Round(2),
		UnrealizedPL:        pl.Round(2),
		UnrealizedPLPercent: percentOf(pl, totalCost),
		TodayChangePercent:  percentOf(todayCurrent.Sub(todayPrevious), todayPrevious),
		EstimatedProceeds:   totalValue.Sub(totalFees).Round(2),
		FXInfluence:         fxInfluence.Round(2),
		Status:              domain.StatusUp,
	}
	if pl.IsNegative() {
		summary.Status = domain.StatusDown
	}

	e.log.Info().
		Str("user_id", userID).
		Str("total_value", summary.TotalValue.String()).
		Str("unrealized_pl", summary.UnrealizedPL.String()).
		Msg("portfolio summary calculated")

	return summary, nil
}

// dailyValues pairs value, the position valued at the summary's single price lookup,
// with its value at the last snapshot of the calendar day before the latest snapshot.
// The latest snapshot only anchors the day. Without a previous-day snapshot value is
// its own baseline; without any snapshot both are zero.
func (e *Engine) dailyValues(ctx context.Context, p *position.Position, value decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	latest, err := e.Snapshots.GetLatest(ctx, p.AssetID)
	if err != nil {
		e.log.Debug().Err(err).Str("asset_id", p.AssetID.String()).Msg("no latest snapshot for daily change")
		return decimal.Zero, decimal.Zero
	}

	current := value

	dayStart := domain.TruncateDay(latest.AsOf)
	previousDay, err := e.Snapshots.ListRange(ctx, p.AssetID, dayStart.AddDate(0, 0, -1), dayStart)
	if err != nil {
		e.log.Warn().Err(err).Str("asset_id", p.AssetID.String()).Msg("failed to load previous day prices")
		return current, current
	}
	if len(previousDay) == 0 {
		return current, current
	}

	previous := p.Quantity.Mul(e.inBase(previousDay[len(previousDay)-1]))
	return current, previous
}

func (e *Engine) inBase(s *domain.PriceSnapshot) decimal.Decimal {
	if s.Currency == "" || strings.EqualFold(s.Currency, e.BaseCurrency) {
		return s.Price
	}
	return s.Price.Mul(e.Converter.Rate(s.Currency, e.BaseCurrency)).Round(6)
}

func (e *Engine) fxInfluence(ctx context.Context, assetID uuid.UUID, value decimal.Decimal) decimal.Decimal {
	asset, err := e.Assets.GetByID(ctx, assetID)
	if err != nil {
		e.log.Warn().Err(err).Str("asset_id", assetID.String()).Msg("asset not found, skipping fx influence")
		return decimal.Zero
	}

	code := strings.ToUpper(asset.Currency)
	if code == e.BaseCurrency {
		return decimal.Zero
	}

	factor, ok := fxVolatility[code]
	if !ok {
		factor = defaultFXVolatility
	}
	return value.Mul(factor)
}

// percentOf returns part / whole * 100 rounded to 2 places, or 0 when whole is not positive
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(hundred).DivRound(whole, 2)
}
