package allocator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/investtrack-backend/internal/adapter/repository/memory"
	"github.com/simaogato/investtrack-backend/internal/domain"
	"github.com/simaogato/investtrack-backend/internal/usecase/position"
)

func holding(symbol string, t domain.AssetType, value string) Holding {
	v := decimal.RequireFromString(value)
	return Holding{
		Asset:    &domain.Asset{ID: uuid.New(), Symbol: symbol, Name: symbol + " name", Type: t, Currency: "USD"},
		Quantity: decimal.NewFromInt(1),
		Price:    v,
		Value:    v,
	}
}

func TestCalculateAllocation_GroupsAndSorts(t *testing.T) {
	holdings := []Holding{
		holding("VOO", domain.AssetTypeFund, "200"),
		holding("AAPL", domain.AssetTypeEquity, "300"),
		holding("XAU", domain.AssetTypePreciousMetal, "100"),
		holding("MSFT", domain.AssetTypeEquity, "400"),
	}

	slices := CalculateAllocation(holdings)

	require.Len(t, slices, 3)

	assert.Equal(t, domain.AssetTypeEquity, slices[0].AssetType)
	assert.True(t, decimal.NewFromInt(700).Equal(slices[0].Value))
	assert.True(t, decimal.NewFromInt(70).Equal(slices[0].Percentage))
	assert.Equal(t, "EQUITY", slices[0].Name)

	assert.Equal(t, domain.AssetTypeFund, slices[1].AssetType)
	assert.True(t, decimal.NewFromInt(20).Equal(slices[1].Percentage))

	assert.Equal(t, domain.AssetTypePreciousMetal, slices[2].AssetType)
	assert.True(t, decimal.NewFromInt(10).Equal(slices[2].Percentage))

	// Colors follow the order types first appeared in: FUND, EQUITY, PRECIOUS_METAL
	assert.Equal(t, Palette[1], slices[0].Color)
	assert.Equal(t, Palette[0], slices[1].Color)
	assert.Equal(t, Palette[2], slices[2].Color)
}

func TestCalculateAllocation_PercentagesSumToHundred(t *testing.T) {
	holdings := []Holding{
		holding("A", domain.AssetTypeEquity, "1"),
		holding("B", domain.AssetTypeFund, "1"),
		holding("C", domain.AssetTypeFX, "1"),
	}

	sum := decimal.Zero
	for _, s := range CalculateAllocation(holdings) {
		sum = sum.Add(s.Percentage)
	}

	assert.True(t, sum.Sub(decimal.NewFromInt(100)).Abs().LessThanOrEqual(decimal.RequireFromString("0.1")), "sum was %s", sum)
}

func TestCalculateAllocation_ZeroTotal(t *testing.T) {
	slices := CalculateAllocation([]Holding{
		holding("A", domain.AssetTypeEquity, "0"),
		holding("B", domain.AssetTypeFund, "0"),
	})

	require.Len(t, slices, 2)
	for _, s := range slices {
		assert.True(t, s.Percentage.IsZero())
	}
}

func TestCalculateAllocation_PaletteWraps(t *testing.T) {
	holdings := make([]Holding, 0)
	for _, at := range domain.AssetTypes {
		holdings = append(holdings, holding(string(at), at, "10"))
	}

	colors := make(map[domain.AssetType]string)
	for _, s := range CalculateAllocation(holdings) {
		colors[s.AssetType] = s.Color
	}

	for i, at := range domain.AssetTypes {
		assert.Equal(t, Palette[i%len(Palette)], colors[at])
	}
}

func TestCalculateAllocation_Empty(t *testing.T) {
	assert.Empty(t, CalculateAllocation(nil))
}

func TestRankTopMovers_FewerAssetsThanLimit(t *testing.T) {
	holdings := []Holding{
		holding("A", domain.AssetTypeEquity, "100"),
		holding("B", domain.AssetTypeEquity, "300"),
		holding("C", domain.AssetTypeFund, "200"),
	}

	movers := RankTopMovers(holdings, 5)

	require.Len(t, movers, 3)
	// Equal percentages fall back to value order
	assert.Equal(t, "B", movers[0].Symbol)
	assert.Equal(t, "C", movers[1].Symbol)
	assert.Equal(t, "A", movers[2].Symbol)

	assert.True(t, decimal.NewFromInt(9).Equal(movers[0].Change))
	assert.True(t, decimal.NewFromInt(3).Equal(movers[0].ChangePercent))
	assert.Equal(t, domain.StatusUp, movers[0].Direction)
	assert.Equal(t, "B name", movers[0].Name)
}

func TestRankTopMovers_Limit(t *testing.T) {
	holdings := make([]Holding, 0)
	for i := 0; i < 8; i++ {
		holdings = append(holdings, holding("S", domain.AssetTypeEquity, "10"))
	}

	assert.Len(t, RankTopMovers(holdings, 2), 2)
	assert.Len(t, RankTopMovers(holdings, 0), DefaultMoversLimit)
	assert.Len(t, RankTopMovers(holdings, -1), DefaultMoversLimit)
}

func TestRankTopMovers_ZeroValue(t *testing.T) {
	movers := RankTopMovers([]Holding{holding("Z", domain.AssetTypeEquity, "0")}, 5)

	require.Len(t, movers, 1)
	assert.True(t, movers[0].ChangePercent.IsZero())
	assert.Equal(t, domain.StatusUp, movers[0].Direction)
}

// fixedPrices is a PriceLookup returning the same price for every asset
type fixedPrices decimal.Decimal

func (f fixedPrices) CurrentPrice(ctx context.Context, assetID uuid.UUID, currency string) decimal.Decimal {
	return decimal.Decimal(f)
}

func TestService_AllocationAndMovers(t *testing.T) {
	ctx := context.Background()
	lots := memory.NewAcquisitionRepository()
	assets := memory.NewAssetRepository()

	apple := &domain.Asset{ID: uuid.New(), Symbol: "AAPL", Name: "Apple", Type: domain.AssetTypeEquity, Currency: "USD"}
	gold := &domain.Asset{ID: uuid.New(), Symbol: "XAU", Name: "Gold", Type: domain.AssetTypePreciousMetal, Currency: "USD"}
	require.NoError(t, assets.Create(ctx, apple))
	require.NoError(t, assets.Create(ctx, gold))

	add := func(assetID uuid.UUID, qty int64) {
		require.NoError(t, lots.Create(ctx, &domain.AcquisitionLot{
			ID: uuid.New(), UserID: "alice", AssetID: assetID, Quantity: decimal.NewFromInt(qty),
			UnitPrice: decimal.NewFromInt(1), Currency: "USD", AcquisitionDate: time.Now(),
		}))
	}
	add(apple.ID, 3)
	add(gold.ID, 1)
	add(apple.ID, 1)
	add(uuid.New(), 5) // asset missing from the catalogue

	service := NewService(position.NewAggregator(lots), fixedPrices(decimal.NewFromInt(10)), assets, "USD", zerolog.Nop())

	allocation, err := service.Allocation(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, allocation, 2)
	assert.Equal(t, domain.AssetTypeEquity, allocation[0].AssetType)
	assert.True(t, decimal.NewFromInt(40).Equal(allocation[0].Value))
	assert.True(t, decimal.NewFromInt(80).Equal(allocation[0].Percentage))

	movers, err := service.TopMovers(ctx, "alice", 5)
	require.NoError(t, err)
	require.Len(t, movers, 2)
	assert.Equal(t, "AAPL", movers[0].Symbol)
	assert.True(t, decimal.NewFromInt(10).Equal(movers[0].CurrentPrice))
}
