package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/coinfolio/internal/models"
)

// MoneyPlaces is the precision of every reported money and percentage figure.
// decimal.Round rounds half away from zero.
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// ComputeProfit returns the gain of quantity units bought at buyPrice and now
// worth currentPrice. The percentage is derived from the unrounded absolute
// figure; both are rounded once on the way out.
func ComputeProfit(buyPrice, currentPrice, quantity decimal.Decimal) models.Profit {
	invested := buyPrice.Mul(quantity)
	absolute := currentPrice.Sub(buyPrice).Mul(quantity)

	percentage := decimal.Zero
	if invested.IsPositive() {
		percentage = absolute.Div(invested).Mul(hundred)
	}

	return models.Profit{
		Absolute:   absolute.Round(MoneyPlaces),
		Percentage: percentage.Round(MoneyPlaces),
	}
}

// ComputePortfolio values records against prices.
//
// A record whose asset/currency pair is missing from prices is valued at its
// own buy price. Totals are raw sums across currencies with no FX conversion,
// accumulated unrounded and rounded once at the end.
func ComputePortfolio(records []models.InvestmentRecord, prices models.PricePoints) *models.Portfolio {
	if records == nil {
		records = []models.InvestmentRecord{}
	}

	p := &models.Portfolio{
		Investments: records,
		Positions:   make([]models.Position, 0, len(records)),
		Currencies:  []models.Currency{},
	}

	totalInvested := decimal.Zero
	totalValue := decimal.Zero
	seenCurrency := make(map[models.Currency]bool)

	for i := range records {
		r := &records[i]

		price, ok := prices.Get(r.AssetSymbol, r.Currency.Lower())
		ok = ok && price.IsPositive()
		if !ok {
			price = r.BuyPrice
		}

		invested := r.BuyPrice.Mul(r.Quantity)
		value := price.Mul(r.Quantity)
		totalInvested = totalInvested.Add(invested)
		totalValue = totalValue.Add(value)

		if !seenCurrency[r.Currency] {
			seenCurrency[r.Currency] = true
			p.Currencies = append(p.Currencies, r.Currency)
		}

		p.Positions = append(p.Positions, models.Position{
			InvestmentID:   r.ID,
			AssetSymbol:    r.AssetKey(),
			Currency:       r.Currency,
			CurrentPrice:   price,
			PriceAvailable: ok,
			Invested:       invested.Round(MoneyPlaces),
			CurrentValue:   value.Round(MoneyPlaces),
			Profit:         ComputeProfit(r.BuyPrice, price, r.Quantity),
		})
	}

	totalProfit := totalValue.Sub(totalInvested)
	percentage := decimal.Zero
	if totalInvested.IsPositive() {
		percentage = totalProfit.Div(totalInvested).Mul(hundred)
	}

	p.TotalInvested = totalInvested.Round(MoneyPlaces)
	p.TotalValue = totalValue.Round(MoneyPlaces)
	p.TotalProfit = totalProfit.Round(MoneyPlaces)
	p.TotalProfitPercentage = percentage.Round(MoneyPlaces)
	p.UniqueAssets = UniqueAssets(records)
	p.MixedCurrencies = len(p.Currencies) > 1

	return p
}

// UniqueAssets counts distinct asset keys; separate lots of one asset count once.
func UniqueAssets(records []models.InvestmentRecord) int {
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		seen[records[i].AssetKey()] = struct{}{}
	}
	return len(seen)
}

// pricingRequest returns the distinct asset keys and lower-case currency codes
// needed to value records, both in first-seen order.
func pricingRequest(records []models.InvestmentRecord) (symbols, currencies []string) {
	seenSymbol := make(map[string]bool)
	seenCurrency := make(map[string]bool)
	for i := range records {
		key := records[i].AssetKey()
		if !seenSymbol[key] {
			seenSymbol[key] = true
			symbols = append(symbols, key)
		}
		code := records[i].Currency.Lower()
		if !seenCurrency[code] {
			seenCurrency[code] = true
			currencies = append(currencies, code)
		}
	}
	return symbols, currencies
}
