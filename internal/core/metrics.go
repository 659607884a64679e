package core

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the Prometheus collectors updated by runs.
type Metrics struct {
	Runs             *prometheus.CounterVec
	Files            prometheus.Counter
	Rows             prometheus.Counter
	TimestampColumns prometheus.Counter
	Warnings         prometheus.Counter
	RunDuration      prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sheetnorm",
			Name:      "runs_total",
			Help:      "Processing runs by outcome.",
		}, []string{"outcome"}),
		Files: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sheetnorm",
			Name:      "files_processed_total",
			Help:      "Files normalized successfully.",
		}),
		Rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sheetnorm",
			Name:      "rows_processed_total",
			Help:      "Data rows in normalized files.",
		}),
		TimestampColumns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sheetnorm",
			Name:      "timestamp_columns_total",
			Help:      "Columns converted to UTC timestamps.",
		}),
		Warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sheetnorm",
			Name:      "column_warnings_total",
			Help:      "Timestamp columns left as read after a conversion failure.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sheetnorm",
			Name:      "run_duration_seconds",
			Help:      "Wall time of processing runs.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Runs, m.Files, m.Rows, m.TimestampColumns, m.Warnings, m.RunDuration)
	}
	return m
}
