package valuation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/investtrack-backend/internal/adapter/repository/memory"
	"github.com/simaogato/investtrack-backend/internal/domain"
	"github.com/simaogato/investtrack-backend/internal/usecase/currency"
	"github.com/simaogato/investtrack-backend/internal/usecase/position"
)

// stubPrices is a fixed PriceLookup keyed by asset id; unknown assets price at zero
type stubPrices map[uuid.UUID]decimal.Decimal

func (s stubPrices) CurrentPrice(ctx context.Context, assetID uuid.UUID, currency string) decimal.Decimal {
	return s[assetID]
}

type failingLots struct{}

func (failingLots) Create(ctx context.Context, lot *domain.AcquisitionLot) error { return nil }
func (failingLots) ListByUser(ctx context.Context, userID string) ([]*domain.AcquisitionLot, error) {
	return nil, errors.New("db down")
}
func (failingLots) DistinctAssetIDs(ctx context.Context) ([]uuid.UUID, error) { return nil, nil }

type fixture struct {
	engine    *Engine
	lots      *memory.AcquisitionRepository
	assets    *memory.AssetRepository
	snapshots *memory.PriceSnapshotRepository
	prices    stubPrices
}

func newFixture(base string) *fixture {
	f := &fixture{
		lots:      memory.NewAcquisitionRepository(),
		assets:    memory.NewAssetRepository(),
		snapshots: memory.NewPriceSnapshotRepository(),
		prices:    stubPrices{},
	}
	f.engine = NewEngine(
		position.NewAggregator(f.lots),
		f.prices,
		f.snapshots,
		f.assets,
		currency.NewConverter(zerolog.Nop()),
		base,
		zerolog.Nop(),
	)
	return f
}

func (f *fixture) addAsset(t *testing.T, symbol, cur string) uuid.UUID {
	t.Helper()
	a := &domain.Asset{ID: uuid.New(), Symbol: symbol, Name: symbol, Type: domain.AssetTypeEquity, Currency: cur}
	require.NoError(t, f.assets.Create(context.Background(), a))
	return a.ID
}

func (f *fixture) addLot(t *testing.T, user string, assetID uuid.UUID, qty, unit, fee, cur string) {
	t.Helper()
	require.NoError(t, f.lots.Create(context.Background(), &domain.AcquisitionLot{
		ID:              uuid.New(),
		UserID:          user,
		AssetID:         assetID,
		Quantity:        decimal.RequireFromString(qty),
		UnitPrice:       decimal.RequireFromString(unit),
		Fee:             decimal.RequireFromString(fee),
		Currency:        cur,
		AcquisitionDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}))
}

func (f *fixture) addSnapshot(t *testing.T, assetID uuid.UUID, price string, asOf time.Time) {
	t.Helper()
	require.NoError(t, f.snapshots.Add(context.Background(), &domain.PriceSnapshot{
		ID: uuid.New(), AssetID: assetID, Price: decimal.RequireFromString(price), Currency: "USD", AsOf: asOf,
	}))
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "%s: expected %s, got %s", field, want, got)
}

func TestComputeSummary_SingleLot(t *testing.T) {
	ctx := context.Background()
	f := newFixture("USD")
	apple := f.addAsset(t, "AAPL", "USD")
	f.addLot(t, "alice", apple, "10", "100", "5", "USD")
	f.prices[apple] = decimal.NewFromInt(110)

	summary, err := f.engine.ComputeSummary(ctx, "alice")

	require.NoError(t, err)
	assertDecimal(t, "1005", summary.CostBasis, "cost basis")
	assertDecimal(t, "1100", summary.TotalValue, "total value")
	assertDecimal(t, "95", summary.UnrealizedPL, "unrealized pl")
	assertDecimal(t, "9.45", summary.UnrealizedPLPercent, "unrealized pl percent")
	assertDecimal(t, "5", summary.TotalFees, "fees")
	assertDecimal(t, "1095", summary.EstimatedProceeds, "estimated proceeds")
	assertDecimal(t, "0", summary.FXInfluence, "fx influence")
	assert.Equal(t, domain.StatusUp, summary.Status)
	assert.Equal(t, "USD", summary.Currency)
}

func TestComputeSummary_EmptyPortfolioIsNeutral(t *testing.T) {
	ctx := context.Background()
	f := newFixture("TRY")
	other := f.addAsset(t, "AAPL", "USD")
	f.addLot(t, "bob", other, "1", "1", "0", "USD")
	f.prices[other] = decimal.NewFromInt(999)

	summary, err := f.engine.ComputeSummary(ctx, "alice")

	require.NoError(t, err)
	assert.Equal(t, domain.EmptySummary("TRY"), summary)
}

func TestComputeSummary_LossIsDown(t *testing.T) {
	ctx := context.Background()
	f := newFixture("USD")
	apple := f.addAsset(t, "AAPL", "USD")
	f.addLot(t, "alice", apple, "2", "100", "0", "USD")
	f.prices[apple] = decimal.NewFromInt(90)

	summary, err := f.engine.ComputeSummary(ctx, "alice")

	require.NoError(t, err)
	assertDecimal(t, "-20", summary.UnrealizedPL, "unrealized pl")
	assertDecimal(t, "-10", summary.UnrealizedPLPercent, "unrealized pl percent")
	assert.Equal(t, domain.StatusDown, summary.Status)
}

func TestComputeSummary_ConvertsCostAndEstimatesFXInfluence(t *testing.T) {
	ctx := context.Background()
	f := newFixture("TRY")
	apple := f.addAsset(t, "AAPL", "USD")
	local := f.addAsset(t, "THYAO", "TRY")
	f.addLot(t, "alice", apple, "10", "100", "5", "USD")
	f.addLot(t, "alice", local, "100", "250", "0", "TRY")
	f.prices[apple] = decimal.NewFromInt(3150)
	f.prices[local] = decimal.NewFromInt(300)

	summary, err := f.engine.ComputeSummary(ctx, "alice")

	require.NoError(t, err)
	// 1005 USD * 31.5 + 25000 TRY
	assertDecimal(t, "56657.5", summary.CostBasis, "cost basis")
	// 10 * 3150 + 100 * 300
	assertDecimal(t, "61500", summary.TotalValue, "total value")
	// Only the USD asset contributes: 31500 * 0.05
	assertDecimal(t, "1575", summary.FXInfluence, "fx influence")
	assertDecimal(t, "157.5", summary.TotalFees, "fees")
	assert.Equal(t, domain.StatusUp, summary.Status)
}

func TestComputeSummary_TodayChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture("USD")
	apple := f.addAsset(t, "AAPL", "USD")
	gold := f.addAsset(t, "XAU", "USD")
	f.addLot(t, "alice", apple, "10", "100", "0", "USD")
	f.addLot(t, "alice", gold, "1", "2000", "0", "USD")
	f.prices[apple] = decimal.NewFromInt(110)
	f.prices[gold] = decimal.NewFromInt(2000)

	// AAPL moved 100 -> 110 since yesterday
	f.addSnapshot(t, apple, "90", time.Date(2024, 3, 13, 15, 0, 0, 0, time.UTC))
	f.addSnapshot(t, apple, "100", time.Date(2024, 3, 14, 17, 0, 0, 0, time.UTC))
	f.addSnapshot(t, apple, "110", time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	// XAU has no previous-day snapshot and is its own baseline
	f.addSnapshot(t, gold, "2000", time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))

	summary, err := f.engine.ComputeSummary(ctx, "alice")

	require.NoError(t, err)
	// (1100 + 2000) vs (1000 + 2000)
	assertDecimal(t, "3.33", summary.TodayChangePercent, "today change percent")
}

func TestComputeSummary_TodayChangeUsesValuedPrice(t *testing.T) {
	ctx := context.Background()
	f := newFixture("USD")
	apple := f.addAsset(t, "AAPL", "USD")
	f.addLot(t, "alice", apple, "10", "100", "0", "USD")
	f.prices[apple] = decimal.NewFromInt(110)

	f.addSnapshot(t, apple, "100", time.Date(2024, 3, 14, 17, 0, 0, 0, time.UTC))
	// Written after the price lookup was cached; must not leak into the daily change
	f.addSnapshot(t, apple, "150", time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))

	summary, err := f.engine.ComputeSummary(ctx, "alice")

	require.NoError(t, err)
	assertDecimal(t, "1100", summary.TotalValue, "total value")
	// 1100 vs 1000
	assertDecimal(t, "10", summary.TodayChangePercent, "today change percent")
}

func TestComputeSummary_NoSnapshotsMeansNoDailyChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture("USD")
	apple := f.addAsset(t, "AAPL", "USD")
	f.addLot(t, "alice", apple, "1", "100", "0", "USD")
	f.prices[apple] = decimal.NewFromInt(100)

	summary, err := f.engine.ComputeSummary(ctx, "alice")

	require.NoError(t, err)
	assert.True(t, summary.TodayChangePercent.IsZero())
}

func TestComputeSummary_MissingAssetSkipsFX(t *testing.T) {
	ctx := context.Background()
	f := newFixture("TRY")
	ghost := uuid.New()
	f.addLot(t, "alice", ghost, "1", "100", "0", "USD")
	f.prices[ghost] = decimal.NewFromInt(3150)

	summary, err := f.engine.ComputeSummary(ctx, "alice")

	require.NoError(t, err)
	assert.True(t, summary.FXInfluence.IsZero())
	assertDecimal(t, "3150", summary.TotalValue, "total value")
}

func TestComputeSummary_RepositoryError(t *testing.T) {
	engine := NewEngine(position.NewAggregator(failingLots{}), stubPrices{}, memory.NewPriceSnapshotRepository(),
		memory.NewAssetRepository(), currency.NewConverter(zerolog.Nop()), "USD", zerolog.Nop())

	_, err := engine.ComputeSummary(context.Background(), "alice")

	assert.Error(t, err)
}
