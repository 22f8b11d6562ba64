package history

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	historyWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inventory",
		Subsystem: "history",
		Name:      "writes_total",
		Help:      "Scan history inserts by scan result and write outcome.",
	}, []string{"scan", "write"})

	historySkippedRows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "inventory",
		Subsystem: "history",
		Name:      "skipped_rows_total",
		Help:      "History rows skipped because they could not be decoded.",
	})
)
