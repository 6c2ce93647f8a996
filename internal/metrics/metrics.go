package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReadingsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyhouse_readings_ingested_total",
			Help: "Total temperature readings stored, by ingest source",
		},
		[]string{"source"},
	)

	IngestRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyhouse_ingest_rejected_total",
			Help: "Total device payloads rejected, by ingest source",
		},
		[]string{"source"},
	)

	SourceFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyhouse_source_fetches_total",
			Help: "Total reading list fetches from a remote data source",
		},
		[]string{"status"},
	)

	SourceFetchLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "polyhouse_source_fetch_latency_seconds",
			Help:    "Remote data source fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyhouse_exports_total",
			Help: "Total CSV exports, by sink and result",
		},
		[]string{"sink", "result"},
	)
)
