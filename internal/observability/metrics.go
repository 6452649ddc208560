// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Source metrics
	EventsReceived *prometheus.CounterVec
	SourceErrors   *prometheus.CounterVec

	// Pipeline metrics
	EventsDropped     *prometheus.CounterVec
	KeysReserved      *prometheus.CounterVec
	DuplicatesSkipped *prometheus.CounterVec
	Verdicts          *prometheus.CounterVec

	// Enrichment metrics
	EnrichmentFailures prometheus.Counter
	AggregatorLatency  *prometheus.HistogramVec

	// Persistence metrics
	CandidatesStored  *prometheus.CounterVec
	PersistenceErrors prometheus.Counter

	// Notification metrics
	NotificationsSent    prometheus.Counter
	NotificationFailures *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "listing_radar"
	}

	return &Metrics{
		EventsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "events_received_total",
			Help:      "Total number of raw listing events received by source",
		}, []string{"source"}),
		SourceErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "errors_total",
			Help:      "Total number of per-cycle source errors by source",
		}, []string{"source"}),

		EventsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped by source and reason",
		}, []string{"source", "reason"}),
		KeysReserved: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "keys_reserved_total",
			Help:      "Total number of natural keys reserved as new",
		}, []string{"source"}),
		DuplicatesSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duplicates_skipped_total",
			Help:      "Total number of events skipped as already-known",
		}, []string{"source"}),
		Verdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "verdicts_total",
			Help:      "Total number of legitimacy verdicts by outcome",
		}, []string{"outcome"}),

		EnrichmentFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "failures_total",
			Help:      "Total number of enrichment attempts that left fields empty",
		}),
		AggregatorLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "aggregator_request_seconds",
			Help:      "Aggregator API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),

		CandidatesStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persistence",
			Name:      "candidates_stored_total",
			Help:      "Total number of candidate rows upserted by source",
		}, []string{"source"}),
		PersistenceErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persistence",
			Name:      "errors_total",
			Help:      "Total number of persistence errors other than dedup conflicts",
		}),

		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Total number of notifications dispatched",
		}),
		NotificationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Total number of notification failures by channel",
		}, []string{"channel"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventReceived increments the events received counter.
func RecordEventReceived(source string) {
	DefaultMetrics.EventsReceived.WithLabelValues(source).Inc()
}

// RecordSourceError increments the per-cycle source error counter.
func RecordSourceError(source string) {
	DefaultMetrics.SourceErrors.WithLabelValues(source).Inc()
}

// RecordEventDropped records an event dropped before the gate.
func RecordEventDropped(source, reason string) {
	DefaultMetrics.EventsDropped.WithLabelValues(source, reason).Inc()
}

// RecordKeyReserved records a natural key reserved as new.
func RecordKeyReserved(source string) {
	DefaultMetrics.KeysReserved.WithLabelValues(source).Inc()
}

// RecordDuplicateSkipped records an already-known event.
func RecordDuplicateSkipped(source string) {
	DefaultMetrics.DuplicatesSkipped.WithLabelValues(source).Inc()
}

// RecordVerdict records a legitimacy filter outcome.
func RecordVerdict(accepted bool) {
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	DefaultMetrics.Verdicts.WithLabelValues(outcome).Inc()
}

// RecordEnrichmentFailure records an enrichment attempt that produced no data.
func RecordEnrichmentFailure() {
	DefaultMetrics.EnrichmentFailures.Inc()
}

// RecordAggregatorLatency records aggregator API call latency.
func RecordAggregatorLatency(endpoint string, seconds float64) {
	DefaultMetrics.AggregatorLatency.WithLabelValues(endpoint).Observe(seconds)
}

// RecordCandidateStored records a stored candidate row.
func RecordCandidateStored(source string) {
	DefaultMetrics.CandidatesStored.WithLabelValues(source).Inc()
}

// RecordPersistenceError records a persistence failure.
func RecordPersistenceError() {
	DefaultMetrics.PersistenceErrors.Inc()
}

// RecordNotificationSent records a dispatched notification.
func RecordNotificationSent() {
	DefaultMetrics.NotificationsSent.Inc()
}

// RecordNotificationFailure records a failed notification channel.
func RecordNotificationFailure(channel string) {
	DefaultMetrics.NotificationFailures.WithLabelValues(channel).Inc()
}
