// Package price resolves live asset prices through a freshness cache
package price

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/interfaces"
	"github.com/bobmcallan/coinfolio/internal/models"
)

// MaxSearchResults caps the matches Search returns.
const MaxSearchResults = 10

// minSearchLength is the shortest query sent upstream.
const minSearchLength = 2

// cacheCurrency is the only currency the cache tracks.
const cacheCurrency = "usd"

// Service implements PriceService over a MarketDataClient and a Cache.
type Service struct {
	client interfaces.MarketDataClient
	cache  *Cache
	logger *common.Logger
}

var _ interfaces.PriceService = (*Service)(nil)

// NewService creates a new price service. cache may be shared with other
// services; a nil cache gets a private one with the default window.
func NewService(client interfaces.MarketDataClient, cache *Cache, logger *common.Logger) *Service {
	if cache == nil {
		cache = NewCache(common.FreshnessPrice)
	}
	return &Service{
		client: client,
		cache:  cache,
		logger: logger,
	}
}

// Cache exposes the underlying cache.
func (s *Service) Cache() *Cache {
	return s.cache
}

// ClearCache drops every cached price.
func (s *Service) ClearCache() {
	s.cache.Clear()
	s.logger.Info().Msg("Price cache cleared")
}

// ResolvePrices resolves every (symbol, currency) pair it can.
//
// A USD-only request is served from the cache where fresh; everything else
// goes out in a single batched request. Upstream failures never surface: the
// result then holds only what the cache supplied.
func (s *Service) ResolvePrices(ctx context.Context, symbols, currencies []string) (models.PricePoints, error) {
	keys, err := normaliseSymbols(symbols)
	if err != nil {
		return nil, err
	}
	codes, err := normaliseCurrencies(currencies)
	if err != nil {
		return nil, err
	}

	result := models.PricePoints{}
	pending := keys
	if len(codes) == 1 && codes[0] == cacheCurrency {
		pending = make([]string, 0, len(keys))
		for _, key := range keys {
			if price, ok := s.cache.Get(key); ok {
				result.Set(key, cacheCurrency, price)
				continue
			}
			pending = append(pending, key)
		}
	}

	if len(pending) == 0 {
		return result, nil
	}

	fetched, err := s.client.SimplePrice(ctx, pending, codes)
	if err != nil {
		s.logFetchFailure(err, pending)
		return result, nil
	}

	for _, key := range pending {
		byCurrency, ok := fetched[key]
		if !ok {
			continue
		}
		for _, code := range codes {
			if price, ok := byCurrency[code]; ok && price.IsPositive() {
				result.Set(key, code, price)
			}
		}
		if usd, ok := byCurrency[cacheCurrency]; ok && usd.IsPositive() {
			s.cache.Put(key, usd)
		}
	}

	return result, nil
}

// ResolvePrice returns the USD price of one asset. ok is false when the price
// could not be resolved for any reason; err is set only for an empty symbol.
func (s *Service) ResolvePrice(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	key := models.AssetKey(symbol)
	if key == "" {
		return decimal.Zero, false, common.InvalidArgument("symbol is required")
	}

	if price, ok := s.cache.Get(key); ok {
		return price, true, nil
	}

	fetched, err := s.client.SimplePrice(ctx, []string{key}, []string{cacheCurrency})
	if err != nil {
		s.logFetchFailure(err, []string{key})
		return decimal.Zero, false, nil
	}

	price, ok := fetched[key][cacheCurrency]
	if !ok || !price.IsPositive() {
		return decimal.Zero, false, nil
	}
	s.cache.Put(key, price)
	return price, true, nil
}

// AssetDetail returns an asset's identity and live figures in currency
// (USD when empty). A nil result means it could not be resolved, whether the
// asset is unknown or the upstream call failed.
func (s *Service) AssetDetail(ctx context.Context, id, currency string) (*models.CoinMarket, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, common.InvalidArgument("asset id is required")
	}
	if strings.TrimSpace(currency) == "" {
		currency = string(models.USD)
	}
	c, err := models.ParseCurrency(currency)
	if err != nil {
		return nil, common.InvalidArgument("invalid currency: %s", currency)
	}

	markets, err := s.client.Markets(ctx, c.Lower(), id)
	if err != nil {
		s.logger.Warn().Err(err).Str("id", id).Str("currency", c.String()).Msg("Failed to fetch asset detail")
		return nil, nil
	}
	if len(markets) == 0 {
		return nil, nil
	}

	detail := markets[0]
	if c == models.USD && detail.CurrentPrice.IsPositive() {
		s.cache.Put(detail.ID, detail.CurrentPrice)
	}
	return &detail, nil
}

// Search returns up to MaxSearchResults coins matching query. Queries shorter
// than two characters return nothing without a request. Rate limiting is an
// error; any other upstream failure yields an empty list.
func (s *Service) Search(ctx context.Context, query string) ([]models.Coin, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minSearchLength {
		return []models.Coin{}, nil
	}

	coins, err := s.client.Search(ctx, query)
	if err != nil {
		if errors.Is(err, common.ErrRateLimited) {
			return nil, fmt.Errorf("API rate limit exceeded: %w", common.ErrRateLimited)
		}
		s.logger.Warn().Err(err).Str("query", query).Msg("Search failed")
		return []models.Coin{}, nil
	}

	if len(coins) > MaxSearchResults {
		coins = coins[:MaxSearchResults]
	}
	if coins == nil {
		coins = []models.Coin{}
	}
	return coins, nil
}

func (s *Service) logFetchFailure(err error, symbols []string) {
	if errors.Is(err, common.ErrRateLimited) {
		s.logger.Warn().Strs("symbols", symbols).Msg("Rate limited, serving cached prices")
		return
	}
	s.logger.Warn().Err(err).Strs("symbols", symbols).Msg("Price fetch failed, serving cached prices")
}

// normaliseSymbols lower-cases and de-duplicates symbols, keeping first-seen order.
func normaliseSymbols(symbols []string) ([]string, error) {
	if len(symbols) == 0 {
		return nil, common.InvalidArgument("symbols must not be empty")
	}
	seen := make(map[string]bool, len(symbols))
	keys := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		key := models.AssetKey(sym)
		if key == "" {
			return nil, common.InvalidArgument("symbols must be non-empty strings")
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys, nil
}

// normaliseCurrencies validates every code against the supported set and
// returns them lower-cased. All offending codes are named in the error.
func normaliseCurrencies(currencies []string) ([]string, error) {
	if len(currencies) == 0 {
		return nil, common.InvalidArgument("currencies must not be empty")
	}
	var invalid []string
	seen := make(map[string]bool, len(currencies))
	codes := make([]string, 0, len(currencies))
	for _, raw := range currencies {
		c, err := models.ParseCurrency(raw)
		if err != nil {
			invalid = append(invalid, raw)
			continue
		}
		if seen[c.Lower()] {
			continue
		}
		seen[c.Lower()] = true
		codes = append(codes, c.Lower())
	}
	if len(invalid) > 0 {
		return nil, common.InvalidArgument("invalid currencies: %s", strings.Join(invalid, ", "))
	}
	return codes, nil
}
