package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_batch_items_total",
		Help: "Total processed batch items by terminal status",
	}, []string{"status"}) // "ok", "failed", "aborted"

	batchRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_batch_retries_total",
		Help: "Total number of per-item retry attempts",
	})

	batchRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_batch_runs_total",
		Help: "Total number of executor runs",
	})

	batchRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scraper_batch_run_duration_seconds",
		Help:    "Wall-clock duration of executor runs",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	})
)
