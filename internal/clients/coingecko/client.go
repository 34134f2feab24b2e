// Package coingecko provides a client for the CoinGecko market-data API
package coingecko

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/interfaces"
	"github.com/bobmcallan/coinfolio/internal/models"
)

const (
	DefaultBaseURL   = "https://api.coingecko.com/api/v3"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 5 // requests per second

	apiKeyHeader  = "x-cg-demo-api-key"
	changeSuffix  = "_24h_change"
	maxErrMessage = 512
)

// Client implements the MarketDataClient interface
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

var _ interfaces.MarketDataClient = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithAPIKey sets the demo API key sent on every request
func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new CoinGecko client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a non-2xx response
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("CoinGecko API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Unwrap classifies the error: 429 is ErrRateLimited, anything else ErrUnavailable.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests {
		return common.ErrRateLimited
	}
	return common.ErrUnavailable
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("CoinGecko API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %v: %w", err, common.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrMessage))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %v: %w", err, common.ErrUnavailable)
	}

	return nil
}

type searchResponse struct {
	Coins []models.Coin `json:"coins"`
}

// Search returns coins matching query
func (c *Client) Search(ctx context.Context, query string) ([]models.Coin, error) {
	params := url.Values{}
	params.Set("query", query)

	var resp searchResponse
	if err := c.get(ctx, "/search", params, &resp); err != nil {
		return nil, err
	}
	return resp.Coins, nil
}

// SimplePrice returns prices for every id in every currency. The 24h change
// fields the endpoint is asked for are dropped; null prices are skipped.
func (c *Client) SimplePrice(ctx context.Context, ids, currencies []string) (map[string]map[string]decimal.Decimal, error) {
	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", strings.ToLower(strings.Join(currencies, ",")))
	params.Set("include_24hr_change", "true")

	var raw map[string]map[string]json.RawMessage
	if err := c.get(ctx, "/simple/price", params, &raw); err != nil {
		return nil, err
	}

	prices := make(map[string]map[string]decimal.Decimal, len(raw))
	for id, fields := range raw {
		byCurrency := make(map[string]decimal.Decimal, len(fields))
		for key, value := range fields {
			if strings.HasSuffix(key, changeSuffix) {
				continue
			}
			price, ok := parseNumber(value)
			if !ok {
				continue
			}
			byCurrency[strings.ToLower(key)] = price
		}
		prices[strings.ToLower(id)] = byCurrency
	}
	return prices, nil
}

type marketResponse struct {
	ID                       string          `json:"id"`
	Symbol                   string          `json:"symbol"`
	Name                     string          `json:"name"`
	Image                    string          `json:"image"`
	CurrentPrice             json.RawMessage `json:"current_price"`
	MarketCap                json.RawMessage `json:"market_cap"`
	MarketCapRank            *int            `json:"market_cap_rank"`
	PriceChangePercentage24h json.RawMessage `json:"price_change_percentage_24h"`
	LastUpdated              string          `json:"last_updated"`
}

// Markets returns market detail for id quoted in currency
func (c *Client) Markets(ctx context.Context, currency, id string) ([]models.CoinMarket, error) {
	params := url.Values{}
	params.Set("vs_currency", strings.ToLower(currency))
	params.Set("ids", id)
	params.Set("order", "market_cap_desc")
	params.Set("per_page", "1")
	params.Set("page", "1")

	var raw []marketResponse
	if err := c.get(ctx, "/coins/markets", params, &raw); err != nil {
		return nil, err
	}

	markets := make([]models.CoinMarket, 0, len(raw))
	for _, m := range raw {
		cm := models.CoinMarket{
			ID:     m.ID,
			Symbol: m.Symbol,
			Name:   m.Name,
			Image:  m.Image,
		}
		cm.CurrentPrice, _ = parseNumber(m.CurrentPrice)
		cm.MarketCap, _ = parseNumber(m.MarketCap)
		cm.PriceChangePercentage24h, _ = parseNumber(m.PriceChangePercentage24h)
		if m.MarketCapRank != nil {
			cm.MarketCapRank = *m.MarketCapRank
		}
		if t, err := time.Parse(time.RFC3339, m.LastUpdated); err == nil {
			cm.LastUpdated = t
		}
		markets = append(markets, cm)
	}
	return markets, nil
}

// parseNumber reads a JSON number without going through float64.
func parseNumber(raw json.RawMessage) (decimal.Decimal, bool) {
	s := string(bytes.TrimSpace(raw))
	if s == "" || s == "null" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.Trim(s, `"`))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
