// Package cache provides an in-memory record cache for expensive scraped
// records, with the following features:
//
// - Per-entry TTL (each entry expires against its own timestamp)
// - Eviction of the least-recently-accessed ~10% of entries at capacity
// - Periodic background sweep of expired entries
// - Optional best-effort snapshot persistence (JSON file or Redis)
// - Prometheus metrics for observability
// - Deterministic key builders for profile and race records
//
// The in-memory map is always authoritative. Persistence failures are
// logged and swallowed; they never affect callers.
//
// # Basic Usage
//
//	c, err := cache.New(cache.Config{
//		MaxSize:    500,
//		DefaultTTL: 10 * time.Minute,
//		Store:      cache.NewFileStore("/var/lib/bot/cache.json"),
//	})
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	key := cache.ProfileKey("H0042")
//	if value, ok := c.Get(key); ok {
//		// cache hit
//		_ = value
//	}
//
//	// cache miss - fetch from the remote source, then write back
//	c.Set(key, record, 0) // 0 = default TTL
//
// # Snapshot Persistence
//
// When a SnapshotStore is configured, every mutating call serializes the
// full entry map as:
//
//	{"entries": [[key, {value, timestamp, lastAccessed, ttl}], ...],
//	 "metadata": {"version": 1, "timestamp": ...}}
//
// On construction the snapshot is loaded and entries that expired while
// persisted are dropped immediately. Values round-trip through JSON, so a
// restored Value holds generic JSON types (map[string]any, float64, ...),
// not the concrete Go type that was stored.
package cache
