package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_DefaultPort(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port default = %d, want %d", cfg.Server.Port, 8080)
	}
}

func TestConfig_PortEnvOverride(t *testing.T) {
	t.Setenv("COINFOLIO_PORT", "9090")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d after env override, want %d", cfg.Server.Port, 9090)
	}
}

func TestConfig_InvalidPortEnvIgnored(t *testing.T) {
	t.Setenv("COINFOLIO_PORT", "not-a-port")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
}

func TestConfig_StorageEnvOverrides(t *testing.T) {
	t.Setenv("COINFOLIO_STORAGE_BACKEND", "SurrealDB")
	t.Setenv("COINFOLIO_STORAGE_ADDRESS", "ws://db:8000/rpc")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Storage.Backend != "surrealdb" {
		t.Errorf("Storage.Backend = %q, want surrealdb", cfg.Storage.Backend)
	}
	if cfg.Storage.Address != "ws://db:8000/rpc" {
		t.Errorf("Storage.Address = %q", cfg.Storage.Address)
	}
}

func TestConfig_CoinGeckoEnvOverrides(t *testing.T) {
	t.Setenv("COINFOLIO_COINGECKO_API_KEY", "demo-key")
	t.Setenv("COINFOLIO_COINGECKO_BASE_URL", "http://localhost:9999")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Clients.CoinGecko.APIKey != "demo-key" {
		t.Errorf("CoinGecko.APIKey = %q, want demo-key", cfg.Clients.CoinGecko.APIKey)
	}
	if cfg.Clients.CoinGecko.BaseURL != "http://localhost:9999" {
		t.Errorf("CoinGecko.BaseURL = %q", cfg.Clients.CoinGecko.BaseURL)
	}
}

func TestConfig_LoadFileMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coinfolio.toml")
	content := `
environment = "production"

[server]
port = 7000

[prices]
cache_window = "45s"

[clients.coingecko]
rate_limit = 2
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, default should survive", cfg.Server.Host)
	}
	if !cfg.IsProduction() {
		t.Error("expected production environment")
	}
	if got := cfg.Prices.GetCacheWindow(); got != 45*time.Second {
		t.Errorf("cache window = %v, want 45s", got)
	}
	if cfg.Clients.CoinGecko.RateLimit != 2 {
		t.Errorf("RateLimit = %d, want 2", cfg.Clients.CoinGecko.RateLimit)
	}
	if cfg.Clients.CoinGecko.BaseURL == "" {
		t.Error("BaseURL default lost after merge")
	}
}

func TestConfig_LoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Storage.Backend = %q, want memory", cfg.Storage.Backend)
	}
}

func TestConfig_LoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("server = [broken"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfig_DurationFallbacks(t *testing.T) {
	cfg := &Config{}
	if got := cfg.Prices.GetCacheWindow(); got != FreshnessPrice {
		t.Errorf("empty cache window = %v, want %v", got, FreshnessPrice)
	}
	if got := cfg.Prices.GetStreamInterval(); got != 60*time.Second {
		t.Errorf("empty stream interval = %v, want 60s", got)
	}
	if got := cfg.Storage.GetPollInterval(); got != 5*time.Second {
		t.Errorf("empty poll interval = %v, want 5s", got)
	}
	if got := cfg.Clients.CoinGecko.GetTimeout(); got != 15*time.Second {
		t.Errorf("empty timeout = %v, want 15s", got)
	}
}

func TestIsFresh(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if IsFresh(time.Time{}, now, time.Minute) {
		t.Error("zero timestamp must never be fresh")
	}
	if !IsFresh(now.Add(-29*time.Second), now, FreshnessPrice) {
		t.Error("29s old entry should be fresh")
	}
	if IsFresh(now.Add(-30*time.Second), now, FreshnessPrice) {
		t.Error("entry exactly at the window boundary should be stale")
	}
}
