package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric result labels.
const (
	metricResultSuccess = "success"
	metricResultError   = "error"
)

// Pipeline metrics.
var (
	signingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searchads_tap_auth_signings_total",
			Help: "Total number of client secret signing operations",
		},
		[]string{"result"},
	)

	exchangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searchads_tap_auth_exchanges_total",
			Help: "Total number of token exchange requests",
		},
		[]string{"result"},
	)

	exchangeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "searchads_tap_auth_exchange_duration_seconds",
			Help:    "Duration of token exchange requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	stageCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searchads_tap_auth_stage_cache_hits_total",
			Help: "Total number of live cache hits per pipeline stage",
		},
		[]string{"stage"},
	)

	stageCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searchads_tap_auth_stage_cache_misses_total",
			Help: "Total number of cache misses per pipeline stage",
		},
		[]string{"stage"},
	)
)
