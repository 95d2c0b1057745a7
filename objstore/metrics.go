package objstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "git_remote_bucket",
		Name:      "store_request_total",
		Help:      "Total number of object store requests",
	},
		[]string{"backend", "op", "result"})

	storeSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "git_remote_bucket",
		Name:      "store_request_duration_seconds",
		Help:      "The latency distributions of object store requests",
		// lowest bucket start of upper bound 0.005 sec (5ms) with factor 2
		// highest bucket start of 0.005 sec * 2^13 = 40.96 sec
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
	},
		[]string{"backend", "op"})
)
