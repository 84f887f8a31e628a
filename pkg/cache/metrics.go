package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	// CacheMisses tracks cache misses (absent or expired on read)
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// CacheEvictions tracks entries removed to make room at capacity
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_cache_evictions_total",
			Help: "Total number of entries evicted at capacity",
		},
	)

	// CacheExpirations tracks entries dropped because their TTL elapsed
	CacheExpirations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_cache_expirations_total",
			Help: "Total number of entries dropped after TTL expiry",
		},
	)

	// CacheEntries tracks the current number of entries
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scraper_cache_entries",
			Help: "Current number of cache entries",
		},
	)

	// SnapshotErrors tracks best-effort persistence failures by operation
	SnapshotErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_cache_snapshot_errors_total",
			Help: "Total number of cache snapshot persistence errors",
		},
		[]string{"operation"}, // "load", "save"
	)
)
