package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_session_logins_total",
		Help: "Total login flows by result",
	}, []string{"result"}) // "ok", "failed"

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scraper_session_active",
		Help: "Current number of live sessions in the pool",
	})

	navigationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_session_navigations_total",
		Help: "Total navigations by status",
	}, []string{"status"}) // "ok", "error"

	probeFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_session_probe_failures_total",
		Help: "Total health probes that found a session unhealthy",
	})
)
