package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/bobmcallan/coinfolio/internal/app"
	"github.com/bobmcallan/coinfolio/internal/clients/coingecko"
	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/interfaces"
	"github.com/bobmcallan/coinfolio/internal/services/portfolio"
	"github.com/bobmcallan/coinfolio/internal/services/price"
)

var configPath = flag.String("config", "", "path to coinfolio.toml (default: COINFOLIO_CONFIG, then next to the binary)")

// env is what every command needs: the price and portfolio services plus
// where to print. Tests build it directly over a fake market client.
type env struct {
	prices     interfaces.PriceService
	portfolios interfaces.PortfolioService
	out        io.Writer
}

// loadEnv builds the services from configuration. The CLI never opens the
// record store.
func loadEnv() (*env, error) {
	config, err := common.LoadConfig(app.ResolveConfigPath(*configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := common.NewLogger("warn")

	cg := config.Clients.CoinGecko
	client := coingecko.NewClient(
		coingecko.WithBaseURL(cg.BaseURL),
		coingecko.WithAPIKey(cg.APIKey),
		coingecko.WithRateLimit(cg.RateLimit),
		coingecko.WithTimeout(cg.GetTimeout()),
		coingecko.WithLogger(logger),
	)
	return newEnv(client, logger, os.Stdout), nil
}

func newEnv(client interfaces.MarketDataClient, logger *common.Logger, out io.Writer) *env {
	prices := price.NewService(client, nil, logger)
	return &env{
		prices:     prices,
		portfolios: portfolio.NewService(prices, logger),
		out:        out,
	}
}

// resolveEnv returns the injected env, loading one from configuration when
// none was set.
func resolveEnv(injected *env) (*env, error) {
	if injected != nil {
		return injected, nil
	}
	return loadEnv()
}
