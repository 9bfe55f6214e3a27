package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	records     *prometheus.CounterVec
	forecasts   *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a Prometheus metrics recorder registered on reg.
// A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		records: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksense_records_total",
				Help: "Transaction records seen by the normalizer, by outcome",
			},
			[]string{"outcome"},
		),
		forecasts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksense_entity_forecasts_total",
				Help: "Per-entity forecasts, by outcome code",
			},
			[]string{"outcome"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksense_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stocksense_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordRecords adds n records with the given outcome (accepted, filtered, dropped).
func (r *Recorder) RecordRecords(outcome string, n int) {
	if n > 0 {
		r.records.WithLabelValues(outcome).Add(float64(n))
	}
}

// RecordForecast counts one entity forecast outcome.
func (r *Recorder) RecordForecast(outcome string) {
	r.forecasts.WithLabelValues(outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordRecords(string, int) {}
func (Nop) RecordForecast(string) {}
func (Nop) RecordError(string) {}
func (Nop) RecordLatency(string, float64) {}
