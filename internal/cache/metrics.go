package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Store operation metrics, labeled by backend.
var (
	storeHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searchads_tap_cache_hits_total",
			Help: "Total number of durable cache store hits",
		},
		[]string{"backend"},
	)

	storeMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searchads_tap_cache_misses_total",
			Help: "Total number of durable cache store misses",
		},
		[]string{"backend"},
	)

	storeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searchads_tap_cache_errors_total",
			Help: "Total number of durable cache store operation errors",
		},
		[]string{"backend", "operation"},
	)
)
