package price

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/models"
)

// --- Mocks ---

type priceCall struct {
	ids        []string
	currencies []string
}

type mockMarketClient struct {
	mu         sync.Mutex
	prices     map[string]map[string]decimal.Decimal
	priceErr   error
	priceCalls []priceCall

	coins     []models.Coin
	searchErr error
	searches  int

	markets    []models.CoinMarket
	marketsErr error
	marketArgs []string
}

func (m *mockMarketClient) Search(_ context.Context, _ string) ([]models.Coin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches++
	return m.coins, m.searchErr
}

func (m *mockMarketClient) SimplePrice(_ context.Context, ids, currencies []string) (map[string]map[string]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priceCalls = append(m.priceCalls, priceCall{
		ids:        append([]string(nil), ids...),
		currencies: append([]string(nil), currencies...),
	})
	if m.priceErr != nil {
		return nil, m.priceErr
	}
	return m.prices, nil
}

func (m *mockMarketClient) Markets(_ context.Context, currency, id string) ([]models.CoinMarket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marketArgs = append(m.marketArgs, currency+":"+id)
	return m.markets, m.marketsErr
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(client *mockMarketClient) (*Service, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewCache(30 * time.Second)
	cache.now = clock.now
	return NewService(client, cache, common.NewSilentLogger()), clock
}

var errRateLimited = fmt.Errorf("status 429: %w", common.ErrRateLimited)
var errUnavailable = fmt.Errorf("connection refused: %w", common.ErrUnavailable)

// --- ResolvePrices ---

func TestResolvePrices_OneCallForManyMisses(t *testing.T) {
	client := &mockMarketClient{prices: map[string]map[string]decimal.Decimal{
		"bitcoin":  {"usd": d("60000")},
		"ethereum": {"usd": d("3500")},
		"solana":   {"usd": d("150")},
	}}
	svc, _ := newTestService(client)

	got, err := svc.ResolvePrices(context.Background(), []string{"Bitcoin", "ethereum", "SOLANA", "bitcoin"}, []string{"USD"})
	require.NoError(t, err)

	require.Len(t, client.priceCalls, 1)
	assert.Equal(t, []string{"bitcoin", "ethereum", "solana"}, client.priceCalls[0].ids)
	assert.Equal(t, []string{"usd"}, client.priceCalls[0].currencies)
	for _, sym := range []string{"bitcoin", "ethereum", "solana"} {
		_, ok := got.Get(sym, "usd")
		assert.True(t, ok, sym)
	}
	assert.Equal(t, 3, svc.Cache().Len())
}

func TestResolvePrices_CacheHitSkipsNetwork(t *testing.T) {
	client := &mockMarketClient{prices: map[string]map[string]decimal.Decimal{
		"bitcoin": {"usd": d("60000")},
	}}
	svc, clock := newTestService(client)
	ctx := context.Background()

	_, err := svc.ResolvePrices(ctx, []string{"bitcoin"}, []string{"usd"})
	require.NoError(t, err)
	clock.advance(10 * time.Second)

	got, err := svc.ResolvePrices(ctx, []string{"bitcoin"}, []string{"usd"})
	require.NoError(t, err)
	assert.Len(t, client.priceCalls, 1, "second call should be served from cache")
	price, ok := got.Get("bitcoin", "usd")
	require.True(t, ok)
	assert.True(t, price.Equal(d("60000")))
}

func TestResolvePrices_StaleEntryTriggersFetch(t *testing.T) {
	client := &mockMarketClient{prices: map[string]map[string]decimal.Decimal{
		"bitcoin": {"usd": d("60000")},
	}}
	svc, clock := newTestService(client)
	ctx := context.Background()

	_, err := svc.ResolvePrices(ctx, []string{"bitcoin"}, []string{"usd"})
	require.NoError(t, err)
	clock.advance(31 * time.Second)

	_, err = svc.ResolvePrices(ctx, []string{"bitcoin"}, []string{"usd"})
	require.NoError(t, err)
	assert.Len(t, client.priceCalls, 2)
}

func TestResolvePrices_OnlyMissesAreBatched(t *testing.T) {
	client := &mockMarketClient{prices: map[string]map[string]decimal.Decimal{
		"ethereum": {"usd": d("3500")},
	}}
	svc, _ := newTestService(client)
	svc.Cache().Put("bitcoin", d("60000"))

	got, err := svc.ResolvePrices(context.Background(), []string{"bitcoin", "ethereum"}, []string{"usd"})
	require.NoError(t, err)

	require.Len(t, client.priceCalls, 1)
	assert.Equal(t, []string{"ethereum"}, client.priceCalls[0].ids)
	assert.Len(t, got, 2)
}

func TestResolvePrices_RateLimitedServesCache(t *testing.T) {
	client := &mockMarketClient{priceErr: errRateLimited}
	svc, _ := newTestService(client)
	svc.Cache().Put("bitcoin", d("60000"))

	got, err := svc.ResolvePrices(context.Background(), []string{"bitcoin", "ethereum"}, []string{"usd"})
	require.NoError(t, err)

	price, ok := got.Get("bitcoin", "usd")
	require.True(t, ok)
	assert.True(t, price.Equal(d("60000")))
	_, ok = got.Get("ethereum", "usd")
	assert.False(t, ok, "ethereum required the network and must be omitted")
}

func TestResolvePrices_UnavailableDegradesSilently(t *testing.T) {
	client := &mockMarketClient{priceErr: errUnavailable}
	svc, _ := newTestService(client)

	got, err := svc.ResolvePrices(context.Background(), []string{"bitcoin"}, []string{"usd"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolvePrices_MultiCurrencyBypassesCache(t *testing.T) {
	client := &mockMarketClient{prices: map[string]map[string]decimal.Decimal{
		"bitcoin": {"usd": d("60000"), "eur": d("55000")},
	}}
	svc, _ := newTestService(client)
	svc.Cache().Put("bitcoin", d("59000"))

	got, err := svc.ResolvePrices(context.Background(), []string{"bitcoin"}, []string{"usd", "EUR"})
	require.NoError(t, err)

	require.Len(t, client.priceCalls, 1)
	assert.Equal(t, []string{"usd", "eur"}, client.priceCalls[0].currencies)
	usd, _ := got.Get("bitcoin", "usd")
	eur, _ := got.Get("bitcoin", "eur")
	assert.True(t, usd.Equal(d("60000")))
	assert.True(t, eur.Equal(d("55000")))

	cached, ok := svc.Cache().Get("bitcoin")
	require.True(t, ok)
	assert.True(t, cached.Equal(d("60000")), "USD price in a multi-currency response refreshes the cache")
}

func TestResolvePrices_NonUSDResponseDoesNotTouchCache(t *testing.T) {
	client := &mockMarketClient{prices: map[string]map[string]decimal.Decimal{
		"bitcoin": {"eur": d("55000")},
	}}
	svc, _ := newTestService(client)

	got, err := svc.ResolvePrices(context.Background(), []string{"bitcoin"}, []string{"eur"})
	require.NoError(t, err)
	_, ok := got.Get("bitcoin", "eur")
	assert.True(t, ok)
	assert.Equal(t, 0, svc.Cache().Len())
}

func TestResolvePrices_PartialResponse(t *testing.T) {
	client := &mockMarketClient{prices: map[string]map[string]decimal.Decimal{
		"bitcoin": {"usd": d("60000")},
	}}
	svc, _ := newTestService(client)

	got, err := svc.ResolvePrices(context.Background(), []string{"bitcoin", "not-a-coin"}, []string{"usd"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	_, ok := got.Get("not-a-coin", "usd")
	assert.False(t, ok)
}

func TestResolvePrices_InvalidInput(t *testing.T) {
	client := &mockMarketClient{}
	svc, _ := newTestService(client)
	ctx := context.Background()

	_, err := svc.ResolvePrices(ctx, []string{"bitcoin"}, []string{"usd", "xyz"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidArgument))
	assert.Contains(t, err.Error(), "xyz")

	_, err = svc.ResolvePrices(ctx, []string{"bitcoin"}, []string{})
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	_, err = svc.ResolvePrices(ctx, nil, []string{"usd"})
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	_, err = svc.ResolvePrices(ctx, []string{"bitcoin", "  "}, []string{"usd"})
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	assert.Empty(t, client.priceCalls, "validation happens before any request")
}

func TestResolvePrices_NamesEveryInvalidCurrency(t *testing.T) {
	svc, _ := newTestService(&mockMarketClient{})
	_, err := svc.ResolvePrices(context.Background(), []string{"bitcoin"}, []string{"abc", "usd", "xyz"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "abc, xyz")
}

// --- ResolvePrice ---

func TestResolvePrice_FetchAndCache(t *testing.T) {
	client := &mockMarketClient{prices: map[string]map[string]decimal.Decimal{
		"bitcoin": {"usd": d("60000")},
	}}
	svc, _ := newTestService(client)
	ctx := context.Background()

	price, ok, err := svc.ResolvePrice(ctx, "BITCOIN")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, price.Equal(d("60000")))

	_, ok, err = svc.ResolvePrice(ctx, "bitcoin")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, client.priceCalls, 1)
}

func TestResolvePrice_AbsentOnFailureOrMissing(t *testing.T) {
	svc, _ := newTestService(&mockMarketClient{priceErr: errRateLimited})
	_, ok, err := svc.ResolvePrice(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.False(t, ok)

	svc, _ = newTestService(&mockMarketClient{prices: map[string]map[string]decimal.Decimal{}})
	_, ok, err = svc.ResolvePrice(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolvePrice_EmptySymbol(t *testing.T) {
	svc, _ := newTestService(&mockMarketClient{})
	_, _, err := svc.ResolvePrice(context.Background(), " ")
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

// --- AssetDetail ---

func TestAssetDetail_DefaultsToUSDAndWarmsCache(t *testing.T) {
	client := &mockMarketClient{markets: []models.CoinMarket{
		{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", CurrentPrice: d("60000")},
	}}
	svc, _ := newTestService(client)

	detail, err := svc.AssetDetail(context.Background(), "bitcoin", "")
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, "Bitcoin", detail.Name)
	assert.Equal(t, []string{"usd:bitcoin"}, client.marketArgs)

	cached, ok := svc.Cache().Get("bitcoin")
	require.True(t, ok)
	assert.True(t, cached.Equal(d("60000")))
}

func TestAssetDetail_AbsentCases(t *testing.T) {
	svc, _ := newTestService(&mockMarketClient{markets: []models.CoinMarket{}})
	detail, err := svc.AssetDetail(context.Background(), "nope", "eur")
	require.NoError(t, err)
	assert.Nil(t, detail)

	svc, _ = newTestService(&mockMarketClient{marketsErr: errUnavailable})
	detail, err = svc.AssetDetail(context.Background(), "bitcoin", "usd")
	require.NoError(t, err)
	assert.Nil(t, detail)

	svc, _ = newTestService(&mockMarketClient{marketsErr: errRateLimited})
	detail, err = svc.AssetDetail(context.Background(), "bitcoin", "usd")
	require.NoError(t, err)
	assert.Nil(t, detail)
}

func TestAssetDetail_InvalidInput(t *testing.T) {
	client := &mockMarketClient{}
	svc, _ := newTestService(client)

	_, err := svc.AssetDetail(context.Background(), "bitcoin", "xyz")
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
	_, err = svc.AssetDetail(context.Background(), "", "usd")
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
	assert.Empty(t, client.marketArgs)
}

// --- Search ---

func TestSearch_ShortQueryMakesNoCall(t *testing.T) {
	client := &mockMarketClient{}
	svc, _ := newTestService(client)

	coins, err := svc.Search(context.Background(), "b")
	require.NoError(t, err)
	assert.Empty(t, coins)
	assert.NotNil(t, coins)
	assert.Equal(t, 0, client.searches)
}

func TestSearch_CapsResults(t *testing.T) {
	coins := make([]models.Coin, 15)
	for i := range coins {
		coins[i] = models.Coin{ID: fmt.Sprintf("coin-%d", i)}
	}
	svc, _ := newTestService(&mockMarketClient{coins: coins})

	got, err := svc.Search(context.Background(), "coin")
	require.NoError(t, err)
	assert.Len(t, got, MaxSearchResults)
	assert.Equal(t, "coin-0", got[0].ID)
}

func TestSearch_RateLimitedIsAnError(t *testing.T) {
	svc, _ := newTestService(&mockMarketClient{searchErr: errRateLimited})
	_, err := svc.Search(context.Background(), "bitcoin")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrRateLimited)
	assert.Contains(t, err.Error(), "API rate limit exceeded")
}

func TestSearch_OtherFailuresAreEmpty(t *testing.T) {
	svc, _ := newTestService(&mockMarketClient{searchErr: errUnavailable})
	got, err := svc.Search(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearch_BlankQueryIsEmpty(t *testing.T) {
	client := &mockMarketClient{coins: []models.Coin{{ID: "bitcoin"}}}
	svc, _ := newTestService(client)

	for _, q := range []string{"", "   "} {
		got, err := svc.Search(context.Background(), q)
		require.NoError(t, err, "query %q", q)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
	assert.Equal(t, 0, client.searches)
}

func TestClearCache(t *testing.T) {
	svc, _ := newTestService(&mockMarketClient{})
	svc.Cache().Put("bitcoin", d("1"))
	svc.ClearCache()
	assert.Equal(t, 0, svc.Cache().Len())
}
