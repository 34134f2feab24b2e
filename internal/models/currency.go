package models

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is an ISO code from the closed set of quote currencies the
// market-data API is asked for.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
	CHF Currency = "CHF"
	CAD Currency = "CAD"
	AUD Currency = "AUD"
)

var supportedCurrencies = []Currency{USD, EUR, GBP, JPY, CHF, CAD, AUD}

// SupportedCurrencies returns the supported currencies in display order.
func SupportedCurrencies() []Currency {
	out := make([]Currency, len(supportedCurrencies))
	copy(out, supportedCurrencies)
	return out
}

// ParseCurrency normalises s (case-insensitive, trimmed) and checks it
// against the supported set.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("invalid currency: %s", s)
	}
	return c, nil
}

// Valid reports whether c is in the supported set.
func (c Currency) Valid() bool {
	for _, s := range supportedCurrencies {
		if c == s {
			return true
		}
	}
	return false
}

// Lower returns the lower-case code used as a price-map key.
func (c Currency) Lower() string {
	return strings.ToLower(string(c))
}

func (c Currency) String() string { return string(c) }

// Info returns the ISO display metadata (grapheme, minor units) for c.
func (c Currency) Info() *money.Currency {
	return money.GetCurrency(string(c))
}

// Format renders amount in c's display template, rounded to its minor unit.
func (c Currency) Format(amount decimal.Decimal) string {
	cur := c.Info()
	if cur == nil {
		return amount.StringFixed(2) + " " + string(c)
	}
	places := int32(cur.Fraction)
	minor := amount.Round(places).Shift(places)
	return money.New(minor.IntPart(), cur.Code).Display()
}
