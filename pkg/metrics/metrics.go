// Package metrics provides the centralized Prometheus metrics registry for
// the scraper core. All metrics are defined in their respective packages
// (cache, batch, session) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the scraper core.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - scraper_cache_hits_total (Counter): Cache hits
//   - scraper_cache_misses_total (Counter): Cache misses
//   - scraper_cache_evictions_total (Counter): Entries evicted at capacity
//   - scraper_cache_expirations_total (Counter): Entries dropped after TTL expiry
//   - scraper_cache_entries (Gauge): Current number of cache entries
//   - scraper_cache_snapshot_errors_total{operation} (Counter): Snapshot load/save errors
//
// Batch Metrics (pkg/batch):
//   - scraper_batch_items_total{status} (Counter): Processed items by terminal status (ok, failed, aborted)
//   - scraper_batch_retries_total (Counter): Per-item retry attempts
//   - scraper_batch_runs_total (Counter): Executor runs
//   - scraper_batch_run_duration_seconds (Histogram): Wall-clock duration of executor runs
//
// Session Metrics (pkg/session):
//   - scraper_session_logins_total{result} (Counter): Login flows by result (success, failure)
//   - scraper_session_active (Gauge): Live sessions in the pool
//   - scraper_session_navigations_total{status} (Counter): Navigations by status (success, error)
//   - scraper_session_probe_failures_total (Counter): Health probes that found a session unhealthy
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(scraper_cache_hits_total[5m])) /
//   (sum(rate(scraper_cache_hits_total[5m])) + sum(rate(scraper_cache_misses_total[5m])))
//
//   # Batch Failure Rate
//   rate(scraper_batch_items_total{status="failed"}[5m]) /
//   rate(scraper_batch_items_total[5m])
//
//   # Re-Login Frequency
//   rate(scraper_session_logins_total[15m])
//
//   # P95 Run Duration
//   histogram_quantile(0.95, rate(scraper_batch_run_duration_seconds_bucket[5m]))
