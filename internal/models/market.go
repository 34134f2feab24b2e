package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoints maps asset key -> lower-case currency code -> price.
// It is partial: absent pairs could not be resolved.
type PricePoints map[string]map[string]decimal.Decimal

// Get returns the price for an asset in a currency. Both keys are normalised.
func (p PricePoints) Get(asset, currency string) (decimal.Decimal, bool) {
	byCurrency, ok := p[AssetKey(asset)]
	if !ok {
		return decimal.Zero, false
	}
	price, ok := byCurrency[AssetKey(currency)]
	return price, ok
}

// Set stores a price, creating the asset entry when needed.
func (p PricePoints) Set(asset, currency string, price decimal.Decimal) {
	key := AssetKey(asset)
	byCurrency, ok := p[key]
	if !ok {
		byCurrency = make(map[string]decimal.Decimal)
		p[key] = byCurrency
	}
	byCurrency[AssetKey(currency)] = price
}

// Coin is a search hit from the market-data API.
type Coin struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Thumb  string `json:"thumb,omitempty"`
}

// CoinMarket is an asset's identity plus its live market figures in one currency.
type CoinMarket struct {
	ID                       string          `json:"id"`
	Symbol                   string          `json:"symbol"`
	Name                     string          `json:"name"`
	Image                    string          `json:"image,omitempty"`
	CurrentPrice             decimal.Decimal `json:"current_price"`
	MarketCap                decimal.Decimal `json:"market_cap"`
	MarketCapRank            int             `json:"market_cap_rank,omitempty"`
	PriceChangePercentage24h decimal.Decimal `json:"price_change_percentage_24h"`
	LastUpdated              time.Time       `json:"last_updated"`
}
