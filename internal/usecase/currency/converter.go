// Package currency converts amounts between currencies using an in-memory rate table.
package currency

import (
	"strings"
	"sync"

	"github.com/Rhymond/go-money"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RatePrecision is the number of decimal places carried by derived rates
const RatePrecision = 6

// PivotCurrency is the currency every seeded rate is quoted against
const PivotCurrency = "TRY"

type pair struct {
	from string
	to   string
}

// seedRates are the rates known at startup, quoted against the pivot currency
var seedRates = map[string]string{
	"USD": "31.5",
	"EUR": "34.2",
	"GBP": "39.8",
	"JPY": "0.21",
}

// Converter holds the rate table and performs conversions.
// It is safe for concurrent use.
type Converter struct {
	mu    sync.RWMutex
	rates map[pair]decimal.Decimal
	// derived memoizes inverse and cross rates; cleared on every update
	derived map[pair]decimal.Decimal
	log     zerolog.Logger
}

// NewConverter creates a Converter seeded with the default pivot rates and their inverses
func NewConverter(log zerolog.Logger) *Converter {
	c := &Converter{
		rates:   make(map[pair]decimal.Decimal),
		derived: make(map[pair]decimal.Decimal),
		log:     log.With().Str("service", "currency").Logger(),
	}
	c.rates[pair{PivotCurrency, PivotCurrency}] = decimal.NewFromInt(1)
	for code, rate := range seedRates {
		c.store(code, PivotCurrency, decimal.RequireFromString(rate))
	}
	return c
}

// Rate returns the exchange rate from -> to.
// Lookup order: identity, direct entry, inverse of the reverse entry, cross rate via the
// pivot currency. Derived rates are remembered until the next UpdateRate.
// An unknown pair resolves to 1 with a warning.
func (c *Converter) Rate(from, to string) decimal.Decimal {
	from, to = normalize(from), normalize(to)
	if from == to {
		return decimal.NewFromInt(1)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if rate, ok := c.rates[pair{from, to}]; ok {
		return rate
	}
	if rate, ok := c.derived[pair{from, to}]; ok {
		return rate
	}

	if inverse, ok := c.rates[pair{to, from}]; ok && !inverse.IsZero() {
		rate := decimal.NewFromInt(1).DivRound(inverse, RatePrecision)
		c.derived[pair{from, to}] = rate
		c.log.Debug().Str("from", from).Str("to", to).Str("rate", rate.String()).Msg("derived rate from inverse")
		return rate
	}

	if from != PivotCurrency && to != PivotCurrency {
		toPivot, okFrom := c.rates[pair{from, PivotCurrency}]
		fromPivot, okTo := c.rates[pair{PivotCurrency, to}]
		if okFrom && okTo {
			rate := toPivot.Mul(fromPivot).Round(RatePrecision)
			c.derived[pair{from, to}] = rate
			c.log.Debug().Str("from", from).Str("to", to).Str("rate", rate.String()).Msg("derived cross rate via pivot")
			return rate
		}
	}

	c.log.Warn().Str("from", from).Str("to", to).Msg("exchange rate not found, using 1")
	return decimal.NewFromInt(1)
}

// Convert converts amount and rounds the result to 2 decimal places.
// A zero amount converts to zero without consulting the rate table.
func (c *Converter) Convert(amount decimal.Decimal, from, to string) decimal.Decimal {
	if amount.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(c.Rate(from, to)).Round(2)
}

// UpdateRate stores a rate for from -> to together with its inverse and
// forgets every derived rate. Non-positive rates are ignored.
func (c *Converter) UpdateRate(from, to string, rate decimal.Decimal) {
	from, to = normalize(from), normalize(to)
	if !rate.IsPositive() || from == to {
		c.log.Warn().Str("from", from).Str("to", to).Str("rate", rate.String()).Msg("ignoring invalid rate update")
		return
	}

	c.mu.Lock()
	c.store(from, to, rate)
	clear(c.derived)
	c.mu.Unlock()

	c.log.Info().Str("from", from).Str("to", to).Str("rate", rate.String()).Msg("exchange rate updated")
}

// Refresh reloads rates from an external provider.
// No provider is configured yet, so the current table is kept.
func (c *Converter) Refresh() {
	c.log.Info().Msg("exchange rate refresh requested, no external provider configured")
}

// IsSupported reports whether code can be converted to or from the pivot currency
func (c *Converter) IsSupported(code string) bool {
	code = normalize(code)
	if code == PivotCurrency {
		return true
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	_, direct := c.rates[pair{code, PivotCurrency}]
	_, inverse := c.rates[pair{PivotCurrency, code}]
	return direct || inverse
}

// Format renders amount for display in the given currency, e.g. "$1,234.50".
// Codes unknown to the money library fall back to "<CODE> 1234.50".
func Format(amount decimal.Decimal, code string) string {
	code = normalize(code)
	cur := money.GetCurrency(code)
	if cur == nil {
		return code + " " + amount.StringFixed(2)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, code).Display()
}

// store must be called with mu held
func (c *Converter) store(from, to string, rate decimal.Decimal) {
	c.rates[pair{from, to}] = rate
	c.rates[pair{to, from}] = decimal.NewFromInt(1).DivRound(rate, RatePrecision)
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
