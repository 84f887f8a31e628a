package cache

import (
	"time"
)

// Entry represents a single cached record.
type Entry struct {
	// Value is the cached record (opaque to the cache)
	Value any `json:"value"`

	// Timestamp is when the entry was written
	Timestamp time.Time `json:"timestamp"`

	// LastAccessed is when the entry was last read (drives eviction order)
	LastAccessed time.Time `json:"lastAccessed"`

	// TTL is the per-entry time-to-live
	TTL time.Duration `json:"ttl"`
}

// IsExpired reports whether the entry is stale at the given instant.
// Expiry is evaluated per entry against its own TTL.
func (e *Entry) IsExpired(now time.Time) bool {
	return now.Sub(e.Timestamp) > e.TTL
}

// Remaining returns the time until expiration at the given instant.
// Returns 0 if already expired.
func (e *Entry) Remaining(now time.Time) time.Duration {
	remaining := e.TTL - now.Sub(e.Timestamp)
	if remaining < 0 {
		return 0
	}
	return remaining
}
