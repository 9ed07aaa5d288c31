package pricing

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/simaogato/investtrack-backend/internal/domain"
)

type priceRange struct {
	min float64
	max float64
}

// basePrices gives the range a first simulated quote is drawn from, per asset type
var basePrices = map[domain.AssetType]priceRange{
	domain.AssetTypeEquity:        {min: 100, max: 500},
	domain.AssetTypeFX:            {min: 25, max: 35},
	domain.AssetTypePreciousMetal: {min: 2000, max: 3000},
	domain.AssetTypeFund:          {min: 50, max: 150},
}

var defaultRange = priceRange{min: 100, max: 150}

// maxMove is the largest relative move of one simulated quote
const maxMove = 0.02

var minPrice = decimal.RequireFromString("0.01")

// SimulatedSource produces plausible quotes without an external market data provider.
// The first quote of an asset is drawn from its type's range; later quotes move the
// latest stored price by at most two percent.
type SimulatedSource struct {
	PriceRepo domain.PriceSnapshotRepository

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedSource creates a SimulatedSource with a deterministic generator seeded by seed
func NewSimulatedSource(priceRepo domain.PriceSnapshotRepository, seed uint64) *SimulatedSource {
	return &SimulatedSource{
		PriceRepo: priceRepo,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Quote returns a simulated price in the asset's native currency
func (s *SimulatedSource) Quote(ctx context.Context, asset *domain.Asset) (Quote, error) {
	var base decimal.Decimal

	latest, err := s.PriceRepo.GetLatest(ctx, asset.ID)
	switch {
	case err == nil:
		base = latest.Price
	case errors.Is(err, domain.ErrNotFound):
		r, ok := basePrices[asset.Type]
		if !ok {
			r = defaultRange
		}
		base = decimal.NewFromFloat(r.min + s.float()*(r.max-r.min))
	default:
		return Quote{}, fmt.Errorf("failed to read latest price: %w", err)
	}

	move := decimal.NewFromFloat((s.float()*2 - 1) * maxMove)
	price := base.Mul(decimal.NewFromInt(1).Add(move)).Round(2)
	if price.LessThan(minPrice) {
		price = minPrice
	}

	return Quote{Price: price, Currency: asset.Currency}, nil
}

func (s *SimulatedSource) float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
