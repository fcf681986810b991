// Package metrics registers the prometheus collectors for regeneration and
// filtering.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RegenerationTotal counts regeneration cycles by result
	RegenerationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "measure_regeneration_total",
		Help: "Dataset regeneration cycles by result",
	}, []string{"result"})

	// RegenerationDuration tracks how long a full regeneration takes
	RegenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "measure_regeneration_duration_seconds",
		Help:    "Dataset regeneration duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
	})

	// GeometryFailures counts geometry documents that could not be used
	GeometryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "measure_geometry_failures_total",
		Help: "Geometry fetch or validation failures by entity",
	}, []string{"entity"})

	// FilterRequests counts filter evaluations by transaction type and result
	FilterRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "measure_filter_requests_total",
		Help: "Filter evaluations by transaction type and result",
	}, []string{"transaction_type", "result"})

	// DatasetEntities reports the size of the published dataset
	DatasetEntities = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "measure_dataset_entities",
		Help: "Entities in the published dataset by kind",
	}, []string{"kind"})
)
