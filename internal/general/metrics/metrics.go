// Package metrics exposes the dispatch engine's Prometheus instrumentation.
// Everything lives on a private registry so the ops listener serves exactly
// what the engine registered and nothing else.
package metrics

import (
	"net/http"

	"ride-pool/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ridepool"

// Metrics holds every collector the engine updates.
type Metrics struct {
	registry *prometheus.Registry

	Rounds                 prometheus.Counter
	RoundErrors            prometheus.Counter
	ClustersProcessed      prometheus.Counter
	TripsCreated           prometheus.Counter
	TripsReused            prometheus.Counter
	BookingsCreated        prometheus.Counter
	DeliveriesCreated      prometheus.Counter
	RequestsAccepted       prometheus.Counter
	RequestsRetried        prometheus.Counter
	MergeCandidates        prometheus.Counter
	NotificationsPublished prometheus.Counter

	RoundDuration prometheus.Histogram
	PendingSeen   prometheus.Gauge
}

// New builds the collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      name,
			Help:      help,
		})
	}

	return &Metrics{
		registry: registry,

		Rounds:                 counter("rounds_total", "Dispatch rounds started."),
		RoundErrors:            counter("round_errors_total", "Dispatch rounds that returned an error."),
		ClustersProcessed:      counter("clusters_processed_total", "Clusters handed to the assembler."),
		TripsCreated:           counter("trips_created_total", "Trips created."),
		TripsReused:            counter("trips_reused_total", "Existing trips extended instead of created."),
		BookingsCreated:        counter("bookings_created_total", "Bookings attached to trips."),
		DeliveriesCreated:      counter("deliveries_created_total", "Deliveries attached to trips."),
		RequestsAccepted:       counter("requests_accepted_total", "Requests moved PENDING to ACCEPTED."),
		RequestsRetried:        counter("requests_retried_total", "Requests enqueued for a later round."),
		MergeCandidates:        counter("merge_candidates_total", "Trip pairs flagged by the merge advisor."),
		NotificationsPublished: counter("notifications_published_total", "Notifications handed to the broker."),

		RoundDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "round_duration_seconds",
			Help:      "Wall time of one dispatch round.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms .. ~20s
		}),
		PendingSeen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "pending_requests_last_round",
			Help:      "Pending requests seen by the most recent round.",
		}),
	}
}

// ObserveRound folds one round summary into the collectors.
func (m *Metrics) ObserveRound(summary ports.RoundSummary, err error) {
	m.Rounds.Inc()
	if err != nil {
		m.RoundErrors.Inc()
	}

	m.ClustersProcessed.Add(float64(summary.Clusters))
	m.TripsCreated.Add(float64(summary.TripsCreated))
	m.TripsReused.Add(float64(summary.TripsReused))
	m.BookingsCreated.Add(float64(summary.BookingsCreated))
	m.DeliveriesCreated.Add(float64(summary.DeliveriesCreated))
	m.RequestsAccepted.Add(float64(summary.RequestsAccepted))
	m.RequestsRetried.Add(float64(summary.RequestsRetried))
	m.MergeCandidates.Add(float64(summary.MergeCandidates))

	m.RoundDuration.Observe(summary.Duration.Seconds())
	m.PendingSeen.Set(float64(summary.PendingSeen))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
