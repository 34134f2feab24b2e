// Package common provides shared utilities for coinfolio
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for coinfolio
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Clients     ClientsConfig `toml:"clients"`
	Prices      PricesConfig  `toml:"prices"`
	Auth        AuthConfig    `toml:"auth"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects the record store backend and its connection settings.
type StorageConfig struct {
	Backend      string `toml:"backend"` // "memory" or "surrealdb"
	Address      string `toml:"address"`
	Namespace    string `toml:"namespace"`
	Database     string `toml:"database"`
	Username     string `toml:"username"`
	Password     string `toml:"password"`
	PollInterval string `toml:"poll_interval"` // surrealdb watch polling
}

// GetPollInterval parses and returns the watch polling interval
func (c *StorageConfig) GetPollInterval() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	CoinGecko CoinGeckoConfig `toml:"coingecko"`
}

// CoinGeckoConfig holds market-data API configuration
type CoinGeckoConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *CoinGeckoConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// PricesConfig controls price caching and refresh cadence.
type PricesConfig struct {
	CacheWindow     string `toml:"cache_window"`
	RefreshSchedule string `toml:"refresh_schedule"` // cron spec for the warmer, empty disables it
	StreamInterval  string `toml:"stream_interval"`  // re-valuation tick for live streams
}

// GetCacheWindow returns the freshness window for cached prices.
func (c *PricesConfig) GetCacheWindow() time.Duration {
	d, err := time.ParseDuration(c.CacheWindow)
	if err != nil || d <= 0 {
		return FreshnessPrice
	}
	return d
}

// GetStreamInterval returns the live stream re-valuation interval.
func (c *PricesConfig) GetStreamInterval() time.Duration {
	d, err := time.ParseDuration(c.StreamInterval)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// AuthConfig holds the shared secret used to verify tokens issued by the auth backend.
// When empty, identity is taken from the X-User-ID header (development only).
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend:      "memory",
			Address:      "ws://localhost:8000/rpc",
			Namespace:    "coinfolio",
			Database:     "coinfolio",
			Username:     "root",
			Password:     "root",
			PollInterval: "5s",
		},
		Clients: ClientsConfig{
			CoinGecko: CoinGeckoConfig{
				BaseURL:   "https://api.coingecko.com/api/v3",
				RateLimit: 5,
				Timeout:   "15s",
			},
		},
		Prices: PricesConfig{
			CacheWindow:     "30s",
			RefreshSchedule: "@every 60s",
			StreamInterval:  "60s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// .env is optional; real environment variables still win
	_ = godotenv.Load()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("COINFOLIO_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("COINFOLIO_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("COINFOLIO_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("COINFOLIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if backend := os.Getenv("COINFOLIO_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = strings.ToLower(backend)
	}
	if addr := os.Getenv("COINFOLIO_STORAGE_ADDRESS"); addr != "" {
		config.Storage.Address = addr
	}

	if v := os.Getenv("COINFOLIO_COINGECKO_BASE_URL"); v != "" {
		config.Clients.CoinGecko.BaseURL = v
	}
	if v := os.Getenv("COINFOLIO_COINGECKO_API_KEY"); v != "" {
		config.Clients.CoinGecko.APIKey = v
	}

	if v := os.Getenv("COINFOLIO_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
