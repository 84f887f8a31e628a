package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ballotline/scraper-core/pkg/logging"
)

// Config holds cache configuration.
type Config struct {
	// MaxSize is the maximum number of entries held at once.
	MaxSize int

	// DefaultTTL is applied to entries stored without an explicit TTL.
	DefaultTTL time.Duration

	// SweepInterval is how often the background sweeper removes expired
	// entries. Zero uses the default.
	SweepInterval time.Duration

	// Store persists best-effort snapshots of the entry map.
	// Nil disables persistence.
	Store SnapshotStore
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		MaxSize:       1000,
		DefaultTTL:    5 * time.Minute,
		SweepInterval: 1 * time.Minute,
	}
}

// Stats describes the cache contents at one instant.
type Stats struct {
	// Total is the number of entries currently held, expired or not.
	Total int

	// Active is the number of entries that have not expired yet.
	Active int

	// Expired is the number of held entries whose TTL has elapsed
	// (they will be dropped on read or by the next sweep).
	Expired int

	// HitRate is hits / (hits + misses) since construction.
	HitRate float64
}

// Cache is a mutex-guarded in-memory store with per-entry TTL, eviction of
// the least-recently-accessed tail at capacity, and optional best-effort
// snapshot persistence. The in-memory map is always authoritative;
// persistence failures never affect callers.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry

	cfg    Config
	logger zerolog.Logger

	hits   uint64
	misses uint64

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a cache, loads the persisted snapshot if a store is
// configured, drops entries that expired while on disk, and starts the
// background sweeper.
func New(cfg Config) (*Cache, error) {
	if cfg.MaxSize <= 0 {
		return nil, fmt.Errorf("max_size must be > 0 (got %d)", cfg.MaxSize)
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultConfig().DefaultTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultConfig().SweepInterval
	}

	c := &Cache{
		entries: make(map[string]*Entry),
		cfg:     cfg,
		logger:  logging.NewLogger("cache"),
		done:    make(chan struct{}),
	}

	c.loadSnapshot()

	go c.sweepLoop()

	return c, nil
}

// Get returns the value stored under key. An entry whose TTL has elapsed is
// removed on read and reported as absent.
func (c *Cache) Get(key string) (any, bool) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		CacheMisses.Inc()
		return nil, false
	}

	if entry.IsExpired(now) {
		delete(c.entries, key)
		c.misses++
		CacheMisses.Inc()
		CacheExpirations.Inc()
		CacheEntries.Set(float64(len(c.entries)))
		c.persistLocked()

		c.logger.Debug().Str("key", key).Msg("Entry expired on read")
		return nil, false
	}

	entry.LastAccessed = now
	c.hits++
	CacheHits.Inc()

	return entry.Value, true
}

// Set stores value under key. A ttl <= 0 falls back to the configured
// default. When the cache is at capacity and key is new, the
// least-recently-accessed ~10% of entries are evicted first, so the size
// never exceeds MaxSize after a Set.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.cfg.MaxSize {
		c.evictLocked()
	}

	c.entries[key] = &Entry{
		Value:        value,
		Timestamp:    now,
		LastAccessed: now,
		TTL:          ttl,
	}
	CacheEntries.Set(float64(len(c.entries)))
	c.persistLocked()

	c.logger.Debug().Str("key", key).Dur("ttl", ttl).Msg("Entry stored")
}

// Has reports whether a live (non-expired) entry exists for key.
// Unlike Get it does not refresh the access time.
func (c *Cache) Has(key string) bool {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	return ok && !entry.IsExpired(now)
}

// Delete removes the entry stored under key, if any.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	CacheEntries.Set(float64(len(c.entries)))
	c.persistLocked()
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Entry)
	CacheEntries.Set(0)
	c.persistLocked()
}

// Stats returns a point-in-time view of the cache contents and hit rate.
func (c *Cache) Stats() Stats {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{Total: len(c.entries)}
	for _, entry := range c.entries {
		if entry.IsExpired(now) {
			stats.Expired++
		} else {
			stats.Active++
		}
	}

	if lookups := c.hits + c.misses; lookups > 0 {
		stats.HitRate = float64(c.hits) / float64(lookups)
	}
	return stats
}

// Close stops the background sweeper and writes a final snapshot.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		defer c.mu.Unlock()
		c.persistLocked()
	})
}

// evictLocked removes the least-recently-accessed ~10% of entries.
// Caller must hold c.mu.
func (c *Cache) evictLocked() {
	count := (c.cfg.MaxSize + 9) / 10
	if count < 1 {
		count = 1
	}

	type victim struct {
		key          string
		lastAccessed time.Time
	}
	candidates := make([]victim, 0, len(c.entries))
	for key, entry := range c.entries {
		candidates = append(candidates, victim{key: key, lastAccessed: entry.LastAccessed})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].lastAccessed.Before(candidates[j].lastAccessed)
	})

	if count > len(candidates) {
		count = len(candidates)
	}
	for _, v := range candidates[:count] {
		delete(c.entries, v.key)
	}
	CacheEvictions.Add(float64(count))
	CacheEntries.Set(float64(len(c.entries)))

	c.logger.Debug().Int("evicted", count).Int("remaining", len(c.entries)).
		Msg("Evicted least-recently-accessed entries at capacity")
}

// sweepLoop periodically drops expired entries until Close is called.
func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep removes all entries whose TTL has elapsed.
func (c *Cache) sweep() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if entry.IsExpired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed == 0 {
		return
	}

	CacheExpirations.Add(float64(removed))
	CacheEntries.Set(float64(len(c.entries)))
	c.persistLocked()

	c.logger.Debug().Int("removed", removed).Msg("Sweep removed expired entries")
}

// loadSnapshot restores the entry map from the configured store and
// immediately drops entries that expired while persisted. Load failures are
// logged and swallowed; the cache starts empty.
func (c *Cache) loadSnapshot() {
	if c.cfg.Store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	snapshot, err := c.cfg.Store.Load(ctx)
	if err != nil {
		SnapshotErrors.WithLabelValues("load").Inc()
		c.logger.Warn().Err(err).Msg("Failed to load cache snapshot, starting empty")
		return
	}
	if snapshot == nil {
		return
	}

	now := time.Now()
	dropped := 0
	for _, pair := range snapshot.Entries {
		if pair.Entry == nil || pair.Entry.IsExpired(now) {
			dropped++
			continue
		}
		c.entries[pair.Key] = pair.Entry
	}
	CacheEntries.Set(float64(len(c.entries)))

	c.logger.Info().
		Int("loaded", len(c.entries)).
		Int("dropped_expired", dropped).
		Time("snapshot_time", snapshot.Metadata.Timestamp).
		Msg("Restored cache snapshot")
}

// persistLocked writes a best-effort snapshot of the full entry map.
// Failures are logged and swallowed; the in-memory state stays authoritative.
// Caller must hold c.mu.
func (c *Cache) persistLocked() {
	if c.cfg.Store == nil {
		return
	}

	snapshot := &Snapshot{
		Entries: make([]SnapshotPair, 0, len(c.entries)),
		Metadata: SnapshotMeta{
			Version:   snapshotVersion,
			Timestamp: time.Now(),
		},
	}
	for key, entry := range c.entries {
		snapshot.Entries = append(snapshot.Entries, SnapshotPair{Key: key, Entry: entry})
	}

	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	if err := c.cfg.Store.Save(ctx, snapshot); err != nil {
		SnapshotErrors.WithLabelValues("save").Inc()
		c.logger.Warn().Err(err).Msg("Failed to persist cache snapshot")
	}
}
