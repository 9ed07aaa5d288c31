package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status values of a portfolio summary and mover direction
const (
	StatusUp      = "UP"
	StatusDown    = "DOWN"
	StatusNeutral = "NEUTRAL"
)

// PortfolioSummary is the valuation of all of a user's lots in the base currency.
// It is a pure projection and never persisted.
type PortfolioSummary struct {
	Currency            string
	TotalValue          decimal.Decimal
	CostBasis           decimal.Decimal
	TotalFees           decimal.Decimal
	UnrealizedPL        decimal.Decimal
	UnrealizedPLPercent decimal.Decimal
	TodayChangePercent  decimal.Decimal
	EstimatedProceeds   decimal.Decimal // TotalValue - TotalFees
	// FXInfluence is an order-of-magnitude estimate from fixed per-currency
	// volatility constants, not a rate-delta computation.
	FXInfluence decimal.Decimal
	Status      string
}

// EmptySummary returns the NEUTRAL all-zero summary of a portfolio without lots
func EmptySummary(currency string) *PortfolioSummary {
	return &PortfolioSummary{
		Currency:            currency,
		TotalValue:          decimal.Zero,
		CostBasis:           decimal.Zero,
		TotalFees:           decimal.Zero,
		UnrealizedPL:        decimal.Zero,
		UnrealizedPLPercent: decimal.Zero,
		TodayChangePercent:  decimal.Zero,
		EstimatedProceeds:   decimal.Zero,
		FXInfluence:         decimal.Zero,
		Status:              StatusNeutral,
	}
}

// HistoryPoint is one day of a portfolio value series
type HistoryPoint struct {
	Date          time.Time
	Value         decimal.Decimal
	Change        decimal.Decimal
	ChangePercent decimal.Decimal
}

// AllocationSlice is the share of portfolio value held in one asset type
type AllocationSlice struct {
	AssetType  AssetType
	Name       string
	Value      decimal.Decimal
	Percentage decimal.Decimal
	Color      string
}

// TopMover ranks a held asset by its value movement.
// Change is currently a fixed fraction of the position value, pending real daily-change data.
type TopMover struct {
	AssetID       uuid.UUID
	Symbol        string
	Name          string
	CurrentPrice  decimal.Decimal
	Value         decimal.Decimal
	Change        decimal.Decimal
	ChangePercent decimal.Decimal
	Direction     string
}

// AnalyticsBundle groups the history-derived risk metrics with the other portfolio views
type AnalyticsBundle struct {
	Period             Period
	History            []HistoryPoint
	Allocation         []AllocationSlice
	TopMovers          []TopMover
	TotalReturn        decimal.Decimal
	TotalReturnPercent decimal.Decimal
	Volatility         decimal.Decimal
	SharpeRatio        decimal.Decimal
	MaxDrawdown        decimal.Decimal
}

// Period is a history lookback window
type Period string

const (
	Period7D  Period = "7D"
	Period30D Period = "30D"
	Period90D Period = "90D"
	Period1Y  Period = "1Y"
	PeriodAll Period = "ALL"
)

// DefaultPeriod is used when the caller does not specify one
const DefaultPeriod = Period30D

// periodStarts maps each period to its start date relative to an end date
var periodStarts = map[Period]func(end time.Time) time.Time{
	Period7D:  func(end time.Time) time.Time { return end.AddDate(0, 0, -7) },
	Period30D: func(end time.Time) time.Time { return end.AddDate(0, 0, -30) },
	Period90D: func(end time.Time) time.Time { return end.AddDate(0, 0, -90) },
	Period1Y:  func(end time.Time) time.Time { return end.AddDate(-1, 0, 0) },
	PeriodAll: func(end time.Time) time.Time { return end.AddDate(-5, 0, 0) },
}

// ParsePeriod parses a case-insensitive period name. An empty string yields DefaultPeriod.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DefaultPeriod, nil
	}
	p := Period(s)
	if _, ok := periodStarts[p]; !ok {
		return "", fmt.Errorf("unknown period %q: %w", s, ErrInvalidInput)
	}
	return p, nil
}

// Start returns the first day of the window ending on end (inclusive on both sides)
func (p Period) Start(end time.Time) time.Time {
	start, ok := periodStarts[p]
	if !ok {
		start = periodStarts[DefaultPeriod]
	}
	return start(TruncateDay(end))
}
