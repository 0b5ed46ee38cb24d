package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "searchads_tap_api_requests_total",
		Help: "Total data API requests by method and status code.",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "searchads_tap_api_request_duration_seconds",
		Help:    "Data API request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	breakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "searchads_tap_api_breaker_transitions_total",
		Help: "Circuit breaker state transitions.",
	}, []string{"from", "to"})
)
