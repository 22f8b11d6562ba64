package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metadataLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inventory",
		Subsystem: "metadata_cache",
		Name:      "lookups_total",
		Help:      "Metadata cache lookups by entity kind and result (hit or miss).",
	}, []string{"kind", "result"})

	metadataFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inventory",
		Subsystem: "metadata_cache",
		Name:      "fetch_errors_total",
		Help:      "Failed durable store fetches after a metadata cache miss.",
	}, []string{"kind"})

	trackerChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inventory",
		Subsystem: "tracker",
		Name:      "checks_total",
		Help:      "Modification tracker checks by outcome.",
	}, []string{"outcome"})
)
