package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "git_remote_bucket",
		Name:      "fetch_total",
		Help:      "Total number of fetch commands by result",
	},
		[]string{"result"})

	fetchSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "git_remote_bucket",
		Name:      "fetch_duration_seconds",
		Help:      "The latency distributions of single bundle fetches",
		// lowest bucket start of upper bound 0.01 sec (10ms) with factor 2
		// highest bucket start of 0.01 sec * 2^13 = 81.92 sec
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	})

	batchCommands = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "git_remote_bucket",
		Name:      "batch_commands",
		Help:      "The size distributions of fetch batches",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})

	busyWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "git_remote_bucket",
		Name:      "busy_workers",
		Help:      "The number of workers running a fetch",
	})
)
