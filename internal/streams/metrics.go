package streams

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "searchads_tap_stream_records_total",
		Help: "Records emitted per stream.",
	}, []string{"stream"})

	syncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "searchads_tap_stream_sync_duration_seconds",
		Help:    "Per-stream sync duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stream"})

	syncErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "searchads_tap_stream_sync_errors_total",
		Help: "Failed stream syncs.",
	}, []string{"stream"})
)
