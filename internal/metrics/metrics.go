package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Batch metrics
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telhawk_loader_batches_total",
			Help: "Total number of batches processed",
		},
		[]string{"channel", "log_type", "status"},
	)

	BatchBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telhawk_loader_batch_bytes_total",
			Help: "Total bytes of raw batch data fetched",
		},
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "telhawk_loader_batch_duration_seconds",
			Help:    "Duration of end-to-end batch processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Entry metrics
	EntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telhawk_loader_entries_total",
			Help: "Total number of entries processed by outcome",
		},
		[]string{"log_type", "outcome"},
	)

	ParseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "telhawk_loader_parse_duration_seconds",
			Help:    "Duration of single entry parsing in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 10, 8),
		},
	)

	// Delivery metrics
	DocumentsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telhawk_loader_documents_delivered_total",
			Help: "Total number of documents queued for bulk delivery",
		},
		[]string{"sink"},
	)

	DeliveryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telhawk_loader_delivery_errors_total",
			Help: "Total number of delivery errors",
		},
		[]string{"sink"},
	)

	// Enrichment metrics
	EnrichmentHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telhawk_loader_enrichment_hits_total",
			Help: "Total number of successful geoip lookups by database",
		},
		[]string{"db"},
	)

	// Fetch metrics
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "telhawk_loader_fetch_duration_seconds",
			Help:    "Duration of object fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	FetchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telhawk_loader_fetch_errors_total",
			Help: "Total number of object fetch errors",
		},
	)
)
