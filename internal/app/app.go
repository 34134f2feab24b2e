package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/coinfolio/internal/clients/coingecko"
	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/interfaces"
	"github.com/bobmcallan/coinfolio/internal/services/investment"
	"github.com/bobmcallan/coinfolio/internal/services/portfolio"
	"github.com/bobmcallan/coinfolio/internal/services/price"
	"github.com/bobmcallan/coinfolio/internal/services/user"
	"github.com/bobmcallan/coinfolio/internal/storage"
)

// App holds all initialized services, clients and storage.
// It is the shared core used by cmd/coinfolio-server and cmd/coinfolio.
type App struct {
	Config            *common.Config
	Logger            *common.Logger
	Storage           interfaces.StorageManager
	MarketClient      interfaces.MarketDataClient
	PriceService      interfaces.PriceService
	PortfolioService  interfaces.PortfolioService
	InvestmentService interfaces.InvestmentService
	UserService       interfaces.UserService
	StartupTime       time.Time

	scheduler *cron.Cron
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath picks the config file: explicit path, COINFOLIO_CONFIG,
// coinfolio.toml next to the binary, then config/coinfolio.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("COINFOLIO_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "coinfolio.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/coinfolio.toml"
		}
	}
	return configPath
}

// NewApp loads configuration and initializes storage, the market-data client
// and all services. configPath may be empty.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	common.LoadVersionFromFile()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	cg := config.Clients.CoinGecko
	if cg.APIKey == "" {
		logger.Warn().Msg("CoinGecko API key not configured - using the public rate-limited tier")
	}
	client := coingecko.NewClient(
		coingecko.WithBaseURL(cg.BaseURL),
		coingecko.WithAPIKey(cg.APIKey),
		coingecko.WithRateLimit(cg.RateLimit),
		coingecko.WithTimeout(cg.GetTimeout()),
		coingecko.WithLogger(logger),
	)

	a := NewAppWithDeps(config, logger, storageManager, client)
	a.StartupTime = startupStart

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// NewAppWithDeps wires the services over an already constructed store and
// market-data client.
func NewAppWithDeps(config *common.Config, logger *common.Logger, sm interfaces.StorageManager, client interfaces.MarketDataClient) *App {
	priceService := price.NewService(client, price.NewCache(config.Prices.GetCacheWindow()), logger)

	return &App{
		Config:            config,
		Logger:            logger,
		Storage:           sm,
		MarketClient:      client,
		PriceService:      priceService,
		PortfolioService:  portfolio.NewService(priceService, logger),
		InvestmentService: investment.NewService(sm, logger),
		UserService:       user.NewService(sm, logger),
		StartupTime:       time.Now(),
	}
}

// Close releases all resources held by the App.
// Shutdown order: stop the price warmer, close storage.
func (a *App) Close() {
	if a.scheduler != nil {
		<-a.scheduler.Stop().Done()
		a.scheduler = nil
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
		a.Storage = nil
	}
}

// StartPriceWarmer registers the cron job that keeps USD prices for every
// stored asset in the cache. An empty schedule disables it.
func (a *App) StartPriceWarmer() error {
	spec := a.Config.Prices.RefreshSchedule
	if spec == "" {
		a.Logger.Info().Msg("Price warmer: disabled")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		warmPrices(ctx, a.InvestmentService, a.PriceService, a.Logger)
	}); err != nil {
		return fmt.Errorf("invalid prices.refresh_schedule %q: %w", spec, err)
	}
	c.Start()
	a.scheduler = c

	a.Logger.Info().Str("schedule", spec).Msg("Price warmer: started")
	return nil
}
