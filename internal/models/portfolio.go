package models

import (
	"github.com/shopspring/decimal"
)

// Profit is the gain or loss of a position, absolute and as a percentage of
// the invested amount.
type Profit struct {
	Absolute   decimal.Decimal `json:"absolute"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Position is the valuation of one investment record.
type Position struct {
	InvestmentID   string          `json:"investment_id"`
	AssetSymbol    string          `json:"asset_symbol"`
	Currency       Currency        `json:"currency"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	PriceAvailable bool            `json:"price_available"` // false when the buy price stood in
	Invested       decimal.Decimal `json:"invested"`
	CurrentValue   decimal.Decimal `json:"current_value"`
	Profit         Profit          `json:"profit"`
}

// Portfolio is the derived valuation of a set of investment records.
// Totals are raw sums across currencies; MixedCurrencies flags that the
// figures mix units and no FX conversion was applied.
type Portfolio struct {
	TotalInvested         decimal.Decimal    `json:"total_invested"`
	TotalValue            decimal.Decimal    `json:"total_value"`
	TotalProfit           decimal.Decimal    `json:"total_profit"`
	TotalProfitPercentage decimal.Decimal    `json:"total_profit_percentage"`
	UniqueAssets          int                `json:"unique_assets"`
	Currencies            []Currency         `json:"currencies"`
	MixedCurrencies       bool               `json:"mixed_currencies"`
	Positions             []Position         `json:"positions"`
	Investments           []InvestmentRecord `json:"investments"`
}
