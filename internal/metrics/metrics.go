// Package metrics exposes the service's prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestedSamples counts accepted measurements by type.
	IngestedSamples = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "measurements_ingested_total",
		Help: "Number of samples accepted by the ingest endpoint.",
	}, []string{"type"})

	// QueryRequests counts served range queries.
	QueryRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "measurement_queries_total",
		Help: "Number of range queries served.",
	})

	// QueryPoints counts points returned across all series.
	QueryPoints = promauto.NewCounter(prometheus.CounterOpts{
		Name: "measurement_query_points_total",
		Help: "Number of points returned by range queries.",
	})

	// StorageErrors counts backend failures by operation.
	StorageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "measurement_storage_errors_total",
		Help: "Number of storage backend failures.",
	}, []string{"op"})
)
