// Package metrics holds the Prometheus collectors for queries and ingestion.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// QueriesTotal counts executed statements by label and outcome.
	QueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "awsapi",
		Subsystem: "query",
		Name:      "executions_total",
		Help:      "Statements executed, by query label and outcome",
	}, []string{"query", "outcome"})

	// QueryDuration observes statement latency including pool checkout.
	QueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "awsapi",
		Subsystem: "query",
		Name:      "duration_seconds",
		Help:      "Statement latency including connection checkout",
		Buckets:   prometheus.DefBuckets,
	}, []string{"query"})

	// RowsReturned observes result sizes.
	RowsReturned = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "awsapi",
		Subsystem: "query",
		Name:      "rows_returned",
		Help:      "Rows returned per statement",
		Buckets:   []float64{1, 10, 100, 1000, 10_000, 100_000},
	})

	// PoolAcquireWait observes time spent waiting for a pooled connection.
	PoolAcquireWait = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "awsapi",
		Subsystem: "pool",
		Name:      "acquire_wait_seconds",
		Help:      "Time spent waiting for a pooled connection",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	})

	// ExportRows counts rows streamed into downloads.
	ExportRows = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "awsapi",
		Subsystem: "export",
		Name:      "rows_total",
		Help:      "Rows written to delimited downloads",
	})

	// IngestRows counts upserted rows by feed.
	IngestRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "awsapi",
		Subsystem: "ingest",
		Name:      "rows_upserted_total",
		Help:      "Rows upserted into the readings store, by feed",
	}, []string{"feed"})

	// IngestFailures counts feed fetches that failed after retries.
	IngestFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "awsapi",
		Subsystem: "ingest",
		Name:      "failures_total",
		Help:      "Feed fetches that failed after retries, by feed",
	}, []string{"feed"})
)

// Register registers every collector with reg, or with the default registerer
// when reg is nil. Only the first call has an effect.
func Register(reg prometheus.Registerer) {
	once.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(
			QueriesTotal,
			QueryDuration,
			RowsReturned,
			PoolAcquireWait,
			ExportRows,
			IngestRows,
			IngestFailures,
		)
	})
}

// ObserveQuery records one statement execution.
func ObserveQuery(label string, started time.Time, rows int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	QueriesTotal.WithLabelValues(label, outcome).Inc()
	QueryDuration.WithLabelValues(label).Observe(time.Since(started).Seconds())
	if err == nil {
		RowsReturned.Observe(float64(rows))
	}
}
