package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Price snapshot sources
const (
	PriceSourceDefault        = "DEFAULT"
	PriceSourceRealTimeUpdate = "REAL_TIME_UPDATE"
	PriceSourceManual         = "MANUAL"
)

// PriceSnapshot is an append-only price observation for an asset.
// The current price of an asset is the snapshot with the latest AsOf.
type PriceSnapshot struct {
	ID       uuid.UUID
	AssetID  uuid.UUID
	Price    decimal.Decimal
	Currency string
	AsOf     time.Time
	Source   string
}
