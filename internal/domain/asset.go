package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AssetType represents the category of an asset
type AssetType string

const (
	AssetTypeEquity        AssetType = "EQUITY"
	AssetTypeFX            AssetType = "FX"
	AssetTypePreciousMetal AssetType = "PRECIOUS_METAL"
	AssetTypeFund          AssetType = "FUND"
)

// AssetTypes lists every supported asset type in display order
var AssetTypes = []AssetType{
	AssetTypeEquity,
	AssetTypeFX,
	AssetTypePreciousMetal,
	AssetTypeFund,
}

// Valid reports whether t is one of the supported asset types
func (t AssetType) Valid() bool {
	for _, known := range AssetTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseAssetType parses a case-insensitive asset type name
func ParseAssetType(s string) (AssetType, error) {
	t := AssetType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown asset type %q: %w", s, ErrInvalidInput)
	}
	return t, nil
}

// Asset represents a tradable instrument shared by all users.
// Assets are created lazily the first time an acquisition references an unknown symbol.
type Asset struct {
	ID          uuid.UUID
	Symbol      string // unique, stored normalized (see NormalizeSymbol)
	Name        string
	Type        AssetType
	Currency    string // native quote currency
	Description string
}

// NormalizeSymbol returns the canonical form of a symbol used for storage and lookup
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Validate ensures the asset adheres to domain rules
func (a *Asset) Validate() error {
	if a.Symbol == "" {
		return errors.New("asset symbol cannot be empty")
	}
	if !a.Type.Valid() {
		return fmt.Errorf("invalid asset type %q", a.Type)
	}
	if a.Currency == "" {
		return errors.New("asset currency cannot be empty")
	}
	return nil
}
