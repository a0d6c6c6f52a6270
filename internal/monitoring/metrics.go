// Package monitoring exposes Prometheus metrics and the health
// endpoint for the submission service.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	submissionsTotal   *prometheus.CounterVec
	submissionDuration prometheus.Histogram
	fetchesTotal       *prometheus.CounterVec
	fetchDuration      prometheus.Histogram
	extractionFields   *prometheus.CounterVec
	ledgerAppends      *prometheus.CounterVec
	requestsInFlight   prometheus.Gauge
}

// NewMetrics registers the collectors under the given namespace on the
// default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "runproof"
	}

	return &Metrics{
		submissionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Submissions processed, labeled by reconciliation outcome",
			},
			[]string{"outcome"},
		),
		submissionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "submission_duration_seconds",
				Help:      "End-to-end submission processing time",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
			},
		),
		fetchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "activity_fetches_total",
				Help:      "Activity page fetches, labeled by result class",
			},
			[]string{"result"},
		),
		fetchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "activity_fetch_duration_seconds",
				Help:      "Activity page fetch time including settle delay",
				Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
			},
		),
		extractionFields: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extraction_fields_total",
				Help:      "Field extraction results, labeled by field and presence",
			},
			[]string{"field", "found"},
		),
		ledgerAppends: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_appends_total",
				Help:      "Ledger append attempts, labeled by result",
			},
			[]string{"result"},
		),
		requestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "HTTP requests currently being served",
			},
		),
	}
}

// RecordSubmission counts one processed submission.
func (m *Metrics) RecordSubmission(outcome string, elapsed time.Duration) {
	m.submissionsTotal.WithLabelValues(outcome).Inc()
	m.submissionDuration.Observe(elapsed.Seconds())
}

// RecordFetch counts one activity page fetch.
func (m *Metrics) RecordFetch(result string, elapsed time.Duration) {
	m.fetchesTotal.WithLabelValues(result).Inc()
	m.fetchDuration.Observe(elapsed.Seconds())
}

// RecordExtraction counts presence of one extracted field.
func (m *Metrics) RecordExtraction(field string, found bool) {
	value := "no"
	if found {
		value = "yes"
	}
	m.extractionFields.WithLabelValues(field, value).Inc()
}

// RecordLedgerAppend counts one ledger append attempt.
func (m *Metrics) RecordLedgerAppend(result string) {
	m.ledgerAppends.WithLabelValues(result).Inc()
}

// TrackInFlight brackets one in-flight HTTP request.
func (m *Metrics) TrackInFlight() func() {
	m.requestsInFlight.Inc()
	return m.requestsInFlight.Dec
}

// Handler returns the Prometheus exposition handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
