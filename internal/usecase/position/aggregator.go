// Package position folds a user's acquisition lots into per-asset positions.
package position

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/investtrack-backend/internal/domain"
)

// Position is the aggregate of every lot a user holds in one asset.
// Costs and fees stay in the currency each lot was recorded in.
type Position struct {
	AssetID        uuid.UUID
	Quantity       decimal.Decimal
	Lots           []*domain.AcquisitionLot
	CostByCurrency map[string]decimal.Decimal
	FeesByCurrency map[string]decimal.Decimal
}

// CostIn returns the position's cost basis converted to currency.
// Rates are applied per lot currency; the result is not rounded.
func (p *Position) CostIn(converter domain.CurrencyConverter, currency string) decimal.Decimal {
	return sumIn(p.CostByCurrency, converter, currency)
}

// FeesIn returns the position's total fees converted to currency, unrounded
func (p *Position) FeesIn(converter domain.CurrencyConverter, currency string) decimal.Decimal {
	return sumIn(p.FeesByCurrency, converter, currency)
}

func sumIn(amounts map[string]decimal.Decimal, converter domain.CurrencyConverter, currency string) decimal.Decimal {
	total := decimal.Zero
	for code, amount := range amounts {
		total = total.Add(amount.Mul(converter.Rate(code, currency)))
	}
	return total
}

// Aggregator loads lots and groups them by asset
type Aggregator struct {
	LotRepo domain.AcquisitionRepository
}

// NewAggregator creates a new Aggregator
func NewAggregator(lotRepo domain.AcquisitionRepository) *Aggregator {
	return &Aggregator{LotRepo: lotRepo}
}

// Lots returns every lot owned by userID
func (a *Aggregator) Lots(ctx context.Context, userID string) ([]*domain.AcquisitionLot, error) {
	lots, err := a.LotRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list acquisitions: %w", err)
	}
	return lots, nil
}

// Aggregate returns the user's positions, one per asset, in order of first appearance.
// A user without lots yields an empty slice.
func (a *Aggregator) Aggregate(ctx context.Context, userID string) ([]*Position, error) {
	lots, err := a.Lots(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromLots(lots), nil
}

// FromLots groups lots by asset, preserving the order in which assets first appear
func FromLots(lots []*domain.AcquisitionLot) []*Position {
	positions := make([]*Position, 0)
	byAsset := make(map[uuid.UUID]*Position)

	for _, lot := range lots {
		p, ok := byAsset[lot.AssetID]
		if !ok {
			p = &Position{
				AssetID:        lot.AssetID,
				Quantity:       decimal.Zero,
				CostByCurrency: make(map[string]decimal.Decimal),
				FeesByCurrency: make(map[string]decimal.Decimal),
			}
			byAsset[lot.AssetID] = p
			positions = append(positions, p)
		}

		p.Quantity = p.Quantity.Add(lot.Quantity)
		p.Lots = append(p.Lots, lot)
		p.CostByCurrency[lot.Currency] = p.CostByCurrency[lot.Currency].Add(lot.Cost())
		p.FeesByCurrency[lot.Currency] = p.FeesByCurrency[lot.Currency].Add(lot.Fee)
	}

	return positions
}
