package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "inventory",
		Subsystem: "scan",
		Name:      "duration_seconds",
		Help:      "Wall time of scan runs by mode and outcome.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"mode", "outcome"})

	scanDatabases = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inventory",
		Subsystem: "scan",
		Name:      "uploads_total",
		Help:      "Uploads seen by full scans, by whether their database was counted.",
	}, []string{"outcome"})

	countCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inventory",
		Subsystem: "scan",
		Name:      "count_cache_lookups_total",
		Help:      "Record count cache lookups by result.",
	}, []string{"result"})

	historyWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "inventory",
		Subsystem: "scan",
		Name:      "history_write_failures_total",
		Help:      "Scan runs whose history row could not be written.",
	})
)
