// Package risk derives return and risk metrics from a portfolio value series.
package risk

import (
	"math"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/simaogato/investtrack-backend/internal/domain"
)

// TradingDaysPerYear annualizes daily volatility
const TradingDaysPerYear = 252

// RiskFreeRatePercent is the fixed annual risk-free rate used by the Sharpe ratio
var RiskFreeRatePercent = decimal.NewFromInt(2)

var hundred = decimal.NewFromInt(100)

// Metrics holds the risk figures of one series. Percentages are in percent units.
type Metrics struct {
	TotalReturn        decimal.Decimal
	TotalReturnPercent decimal.Decimal
	Volatility         decimal.Decimal
	SharpeRatio        decimal.Decimal
	MaxDrawdown        decimal.Decimal
}

// Compute returns every metric of an ascending series.
// Degenerate series (fewer than two points, zero values) yield zeros, never errors.
func Compute(points []domain.HistoryPoint) Metrics {
	total, totalPercent := TotalReturn(points)
	vol := Volatility(points)
	return Metrics{
		TotalReturn:        total,
		TotalReturnPercent: totalPercent,
		Volatility:         vol,
		SharpeRatio:        SharpeRatio(totalPercent, vol),
		MaxDrawdown:        MaxDrawdown(points),
	}
}

// TotalReturn returns last - first and that delta as a percent of first (0 when first is 0)
func TotalReturn(points []domain.HistoryPoint) (decimal.Decimal, decimal.Decimal) {
	if len(points) < 2 {
		return decimal.Zero, decimal.Zero
	}

	first := points[0].Value
	delta := points[len(points)-1].Value.Sub(first)
	if !first.IsPositive() {
		return delta.Round(2), decimal.Zero
	}
	return delta.Round(2), delta.Mul(hundred).DivRound(first, 2)
}

// DailyReturns returns the day-over-day percentage returns, skipping days whose previous
// value is not positive
func DailyReturns(points []domain.HistoryPoint) []float64 {
	returns := make([]float64, 0, len(points))
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Value
		if !prev.IsPositive() {
			continue
		}
		r, _ := points[i].Value.Sub(prev).Mul(hundred).Div(prev).Float64()
		returns = append(returns, r)
	}
	return returns
}

// Volatility is the sample standard deviation of daily percentage returns, annualized
// with the square root of TradingDaysPerYear. It is 0 with fewer than two returns.
func Volatility(points []domain.HistoryPoint) decimal.Decimal {
	returns := DailyReturns(points)
	if len(returns) < 2 {
		return decimal.Zero
	}

	sd := stat.StdDev(returns, nil)
	if math.IsNaN(sd) || sd <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(sd * math.Sqrt(TradingDaysPerYear)).Round(2)
}

// SharpeRatio is (totalReturnPercent - RiskFreeRatePercent) / volatility, or 0 when
// volatility is 0
func SharpeRatio(totalReturnPercent, volatility decimal.Decimal) decimal.Decimal {
	if volatility.IsZero() {
		return decimal.Zero
	}
	return totalReturnPercent.Sub(RiskFreeRatePercent).DivRound(volatility, 2)
}

// MaxDrawdown is the largest decline from a running peak, in percent of that peak,
// bounded to [0, 100]
func MaxDrawdown(points []domain.HistoryPoint) decimal.Decimal {
	peak := decimal.Zero
	worst := decimal.Zero

	for _, p := range points {
		if p.Value.GreaterThan(peak) {
			peak = p.Value
			continue
		}
		if !peak.IsPositive() {
			continue
		}
		dd := peak.Sub(p.Value).Div(peak)
		if dd.GreaterThan(worst) {
			worst = dd
		}
	}

	if worst.GreaterThan(decimal.NewFromInt(1)) {
		worst = decimal.NewFromInt(1)
	}
	return worst.Mul(hundred).Round(2)
}
