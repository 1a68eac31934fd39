package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	evaluations  *prometheus.CounterVec
	resultRows   *prometheus.GaugeVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
	resultsSent  *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		evaluations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_evaluations_total",
				Help: "Per-date screen evaluations, by outcome",
			},
			[]string{"screen", "result"},
		),
		resultRows: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "screener_result_rows",
				Help: "Rows passing the screen in the most recent evaluation",
			},
			[]string{"screen"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "screener_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_cache_lookups_total",
				Help: "Column and result cache lookups, by outcome",
			},
			[]string{"kind", "outcome"},
		),
		resultsSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_results_sent_total",
				Help: "Result rows forwarded to the configured backend",
			},
			[]string{"backend", "screen"},
		),
	}
}

// RecordEvaluation records one per-date screen evaluation.
func (r *Recorder) RecordEvaluation(screen string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	r.evaluations.WithLabelValues(screen, result).Inc()
}

// RecordResultRows records how many assets survived the screen.
func (r *Recorder) RecordResultRows(screen string, rows int) {
	r.resultRows.WithLabelValues(screen).Set(float64(rows))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordCacheLookup records a cache hit or miss.
func (r *Recorder) RecordCacheLookup(kind string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.cacheLookups.WithLabelValues(kind, outcome).Inc()
}

// RecordResultsSent records rows forwarded to a backend.
func (r *Recorder) RecordResultsSent(backend, screen string, rows int) {
	r.resultsSent.WithLabelValues(backend, screen).Add(float64(rows))
}
