// Package monitoring records Prometheus metrics for query execution and
// describes query plans for explain output.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds the collectors for executor runs and sink writes. A nil
// *Metrics records nothing.
type Metrics struct {
	queries      *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	rowsProduced prometheus.Counter
	sinkBytes    *prometheus.CounterVec
}

// NewMetrics registers the engine collectors on reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		queries: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "polecat_queries_total",
			Help: "Total number of executed query operations.",
		}, []string{"op", "status"}),
		duration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "polecat_query_duration_seconds",
			Help:    "Time taken to execute a query operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		rowsProduced: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "polecat_rows_produced_total",
			Help: "Total number of rows returned by collect and fetch.",
		}),
		sinkBytes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "polecat_sink_bytes_total",
			Help: "Total number of bytes handed to host sinks.",
		}, []string{"target"}),
	}
}

// RecordOperation runs fn and records its outcome, duration and the number
// of rows it reports.
func (m *Metrics) RecordOperation(op string, fn func() (int, error)) error {
	if m == nil {
		_, err := fn()
		return err
	}

	start := time.Now()
	rows, err := fn()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		m.queries.WithLabelValues(op, StatusError).Inc()
		return err
	}
	m.queries.WithLabelValues(op, StatusSuccess).Inc()
	m.rowsProduced.Add(float64(rows))
	return nil
}

// AddSinkBytes counts n bytes written to a sink for target.
func (m *Metrics) AddSinkBytes(target string, n int) {
	if m == nil {
		return
	}
	m.sinkBytes.WithLabelValues(target).Add(float64(n))
}
