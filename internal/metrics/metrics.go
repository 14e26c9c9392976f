// Package metrics provides Prometheus metrics for the catalog reconciler.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// External provider metrics
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardvault_provider_requests_total",
			Help: "Total outbound requests to the external catalog provider",
		},
		[]string{"outcome"}, // success, retry, error
	)

	ProviderRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cardvault_provider_request_duration_seconds",
			Help:    "External catalog provider request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Import pipeline metrics
	ImportRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cardvault_import_running",
			Help: "Whether a reconciliation run is currently in progress (0 or 1)",
		},
	)

	SetsProcessedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cardvault_import_sets_processed_total",
			Help: "Total canonical sets processed by the reconciler",
		},
	)

	CardsImportedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cardvault_import_cards_added_total",
			Help: "Total cards inserted into the canonical catalog",
		},
	)

	CardsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cardvault_import_cards_skipped_total",
			Help: "Total listings skipped (already present or unparseable)",
		},
	)

	ListingsUnmatchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cardvault_import_listings_unmatched_total",
			Help: "Total listings no candidate set accepted",
		},
	)

	SetProcessDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cardvault_import_set_duration_seconds",
			Help:    "Time taken to reconcile one canonical set",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)
