// Package interfaces defines service contracts for coinfolio
package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/coinfolio/internal/models"
)

// MarketDataClient provides access to the crypto market-data API.
// Each method issues exactly one outbound request.
type MarketDataClient interface {
	// Search returns coins matching a free-text query
	Search(ctx context.Context, query string) ([]models.Coin, error)

	// SimplePrice returns prices keyed by coin id then lower-case currency code
	SimplePrice(ctx context.Context, ids, currencies []string) (map[string]map[string]decimal.Decimal, error)

	// Markets returns market detail for a single coin id quoted in currency
	Markets(ctx context.Context, currency, id string) ([]models.CoinMarket, error)
}
