package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AcquisitionLot represents one purchase event of an asset by a user.
// Lots are immutable once created and owned exclusively by the user who created them.
type AcquisitionLot struct {
	ID              uuid.UUID
	UserID          string
	AssetID         uuid.UUID
	Quantity        decimal.Decimal // > 0
	UnitPrice       decimal.Decimal // > 0, in Currency
	Currency        string
	Fee             decimal.Decimal // >= 0, in Currency
	AcquisitionDate time.Time
	Notes           string
	Tags            []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate ensures the lot adheres to domain rules.
// Every failure wraps ErrInvalidInput.
func (l *AcquisitionLot) Validate() error {
	if l.UserID == "" {
		return fmt.Errorf("lot must have an owning user: %w", ErrInvalidInput)
	}
	if l.AssetID == uuid.Nil {
		return fmt.Errorf("lot must reference an asset: %w", ErrInvalidInput)
	}
	if !l.Quantity.IsPositive() {
		return fmt.Errorf("quantity must be positive: %w", ErrInvalidInput)
	}
	if !l.UnitPrice.IsPositive() {
		return fmt.Errorf("unit price must be positive: %w", ErrInvalidInput)
	}
	if l.Fee.IsNegative() {
		return fmt.Errorf("fee must not be negative: %w", ErrInvalidInput)
	}
	if l.Currency == "" {
		return fmt.Errorf("lot currency cannot be empty: %w", ErrInvalidInput)
	}
	if l.AcquisitionDate.IsZero() {
		return fmt.Errorf("acquisition date is required: %w", ErrInvalidInput)
	}
	return nil
}

// Cost returns quantity * unit price + fee, expressed in the lot's own currency
func (l *AcquisitionLot) Cost() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice).Add(l.Fee)
}

// AcquiredOnOrBefore reports whether the lot was acquired on or before the calendar day of t
func (l *AcquisitionLot) AcquiredOnOrBefore(t time.Time) bool {
	return !TruncateDay(l.AcquisitionDate).After(TruncateDay(t))
}

// TruncateDay returns midnight UTC of t's calendar day
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
