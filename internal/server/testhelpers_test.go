package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/coinfolio/internal/app"
	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/models"
	"github.com/bobmcallan/coinfolio/internal/storage/memory"
)

// fakeMarket is an in-memory MarketDataClient.
type fakeMarket struct {
	mu         sync.Mutex
	prices     map[string]map[string]decimal.Decimal
	coins      []models.Coin
	markets    map[string]models.CoinMarket
	searchErr  error
	priceCalls int
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		prices: map[string]map[string]decimal.Decimal{
			"bitcoin":  {"usd": decimal.NewFromInt(60000), "eur": decimal.NewFromInt(55000)},
			"ethereum": {"usd": decimal.NewFromInt(3000)},
		},
		markets: map[string]models.CoinMarket{},
	}
}

func (f *fakeMarket) Search(_ context.Context, _ string) ([]models.Coin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.coins, nil
}

func (f *fakeMarket) SimplePrice(_ context.Context, ids, currencies []string) (map[string]map[string]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceCalls++
	out := make(map[string]map[string]decimal.Decimal)
	for _, id := range ids {
		known, ok := f.prices[id]
		if !ok {
			continue
		}
		out[id] = make(map[string]decimal.Decimal)
		for _, c := range currencies {
			if p, ok := known[c]; ok {
				out[id][c] = p
			}
		}
	}
	return out, nil
}

func (f *fakeMarket) Markets(_ context.Context, _ string, id string) ([]models.CoinMarket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.markets[id]; ok {
		return []models.CoinMarket{m}, nil
	}
	return []models.CoinMarket{}, nil
}

func (f *fakeMarket) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.priceCalls
}

// newTestServer builds a Server over memory storage and the fake market.
func newTestServer(t *testing.T, market *fakeMarket, configure ...func(*common.Config)) (*Server, *app.App) {
	t.Helper()
	cfg := common.NewDefaultConfig()
	for _, fn := range configure {
		fn(cfg)
	}
	logger := common.NewSilentLogger()
	a := app.NewAppWithDeps(cfg, logger, memory.NewManager(logger), market)
	t.Cleanup(a.Close)
	return NewServer(a), a
}

// do sends a request through the full middleware stack. userID, when set,
// is sent as X-User-ID.
func do(t *testing.T, s *Server, method, path, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), "body: %s", rec.Body.String())
}

// createInvestment posts a record for owner and returns it.
func createInvestment(t *testing.T, s *Server, owner, symbol, buyPrice, amount string) models.InvestmentRecord {
	t.Helper()
	body := fmt.Sprintf(`{"user_name":%q,"asset_name":%q,"asset_symbol":%q,"buy_price":%q,"investment_amount":%q}`,
		owner, symbol, symbol, buyPrice, amount)
	rec := do(t, s, http.MethodPost, "/api/investments", body, owner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var r models.InvestmentRecord
	decodeBody(t, rec, &r)
	return r
}

// ensureProfile creates the user's profile and returns it.
func ensureProfile(t *testing.T, s *Server, userID, displayName string) models.User {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/users/me", fmt.Sprintf(`{"display_name":%q}`, displayName), userID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var u models.User
	decodeBody(t, rec, &u)
	return u
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
