// Package common provides shared utilities for coinfolio
package common

import "time"

// FreshnessPrice is the window within which a cached price is reused
// instead of asking the market-data API again.
const FreshnessPrice = 30 * time.Second

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated, now time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return now.Sub(updated) < ttl
}
