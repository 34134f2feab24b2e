package price

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/models"
)

type cacheEntry struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// Cache holds the last USD price fetched per asset. Staleness is decided at
// read time; stale entries stay in place until overwritten or cleared.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	window  time.Duration
	now     func() time.Time
}

// NewCache creates a cache whose entries are fresh for window.
// A non-positive window falls back to common.FreshnessPrice.
func NewCache(window time.Duration) *Cache {
	if window <= 0 {
		window = common.FreshnessPrice
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		window:  window,
		now:     time.Now,
	}
}

// Get returns the price for key when it was stored less than window ago.
func (c *Cache) Get(key string) (decimal.Decimal, bool) {
	c.mu.RLock()
	e, ok := c.entries[models.AssetKey(key)]
	c.mu.RUnlock()
	if !ok || !common.IsFresh(e.fetchedAt, c.now(), c.window) {
		return decimal.Zero, false
	}
	return e.price, true
}

// Put overwrites the entry for key and stamps it with the current time.
func (c *Cache) Put(key string, price decimal.Decimal) {
	c.mu.Lock()
	c.entries[models.AssetKey(key)] = cacheEntry{price: price, fetchedAt: c.now()}
	c.mu.Unlock()
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Len counts entries, fresh or stale.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Window returns the freshness window.
func (c *Cache) Window() time.Duration {
	return c.window
}
