// Package history produces daily portfolio value series.
//
// Values are approximations: every day is valued at the current price of each asset,
// perturbed by a small deterministic sinusoid keyed on the day number so the series is
// not flat. A true historical valuation can replace Value without changing the output
// contract (one point per day, ascending, no gaps).
package history

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/simaogato/investtrack-backend/internal/domain"
	"github.com/simaogato/investtrack-backend/internal/usecase/position"
)

// perturbation is the amplitude of the synthetic daily variation
const perturbation = 0.05

var hundred = decimal.NewFromInt(100)

// Synthesizer builds history series for a user's lots
type Synthesizer struct {
	Positions    *position.Aggregator
	Prices       domain.PriceLookup
	BaseCurrency string
	Now          func() time.Time

	log zerolog.Logger
}

// NewSynthesizer creates a new Synthesizer
func NewSynthesizer(positions *position.Aggregator, prices domain.PriceLookup, baseCurrency string, log zerolog.Logger) *Synthesizer {
	return &Synthesizer{
		Positions:    positions,
		Prices:       prices,
		BaseCurrency: strings.ToUpper(baseCurrency),
		Now:          time.Now,
		log:          log.With().Str("service", "history").Logger(),
	}
}

// ComputeHistory returns one point per calendar day from the period start to today,
// both inclusive, in ascending date order.
func (s *Synthesizer) ComputeHistory(ctx context.Context, userID string, period domain.Period) ([]domain.HistoryPoint, error) {
	lots, err := s.Positions.Lots(ctx, userID)
	if err != nil {
		return nil, err
	}

	end := domain.TruncateDay(s.Now())
	start := period.Start(end)

	// Each asset is priced once so every day of the series sees the same price
	prices := make(map[uuid.UUID]decimal.Decimal)
	for _, lot := range lots {
		if _, ok := prices[lot.AssetID]; !ok {
			prices[lot.AssetID] = s.Prices.CurrentPrice(ctx, lot.AssetID, s.BaseCurrency)
		}
	}

	points := make([]domain.HistoryPoint, 0, int(end.Sub(start).Hours()/24)+1)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		point := domain.HistoryPoint{
			Date:          day,
			Value:         Value(lots, prices, day).Round(2),
			Change:        decimal.Zero,
			ChangePercent: decimal.Zero,
		}

		if n := len(points); n > 0 {
			prev := points[n-1].Value
			point.Change = point.Value.Sub(prev)
			if prev.IsPositive() {
				point.ChangePercent = point.Change.Mul(hundred).DivRound(prev, 2)
			}
		}

		points = append(points, point)
	}

	s.log.Debug().
		Str("user_id", userID).
		Str("period", string(period)).
		Int("points", len(points)).
		Msg("history computed")

	return points, nil
}

// Value approximates the portfolio value on day: the lots acquired on or before day,
// valued at prices, scaled by the synthetic variation of that day.
func Value(lots []*domain.AcquisitionLot, prices map[uuid.UUID]decimal.Decimal, day time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range lots {
		if lot.AcquiredOnOrBefore(day) {
			total = total.Add(lot.Quantity.Mul(prices[lot.AssetID]))
		}
	}
	return total.Add(total.Mul(Variation(day)))
}

// Variation returns the deterministic relative variation applied to day
func Variation(day time.Time) decimal.Decimal {
	epochDay := domain.TruncateDay(day).Unix() / 86400
	return decimal.NewFromFloat(math.Sin(float64(epochDay)) * perturbation)
}
