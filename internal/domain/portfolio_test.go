package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		input   string
		want    Period
		wantErr bool
	}{
		{input: "7D", want: Period7D},
		{input: "30d", want: Period30D},
		{input: " 90D ", want: Period90D},
		{input: "1y", want: Period1Y},
		{input: "all", want: PeriodAll},
		{input: "", want: DefaultPeriod},
		{input: "2W", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePeriod(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPeriod_Start(t *testing.T) {
	end := time.Date(2024, 6, 15, 17, 45, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC), Period7D.Start(end))
	assert.Equal(t, time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC), Period30D.Start(end))
	assert.Equal(t, time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC), Period1Y.Start(end))
	assert.Equal(t, time.Date(2019, 6, 15, 0, 0, 0, 0, time.UTC), PeriodAll.Start(end))
}

func TestEmptySummary(t *testing.T) {
	s := EmptySummary("TRY")

	assert.Equal(t, StatusNeutral, s.Status)
	assert.Equal(t, "TRY", s.Currency)
	assert.True(t, s.TotalValue.IsZero())
	assert.True(t, s.CostBasis.IsZero())
	assert.True(t, s.FXInfluence.IsZero())
}

func TestAsset_Validate(t *testing.T) {
	asset := Asset{Symbol: "AAPL", Type: AssetTypeEquity, Currency: "USD"}
	assert.NoError(t, asset.Validate())

	asset.Type = "CRYPTO"
	assert.Error(t, asset.Validate())

	_, err := ParseAssetType("precious_metal")
	assert.NoError(t, err)
	_, err = ParseAssetType("crypto")
	assert.True(t, errors.Is(err, ErrInvalidInput))

	assert.Equal(t, "THYAO", NormalizeSymbol("  thyao "))
}
