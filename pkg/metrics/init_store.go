package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initStoreMetrics() {
	r.StoreOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlements_store_operations_total",
			Help: "Total number of document store operations, by operation and status",
		},
		[]string{"operation", "status"},
	)

	r.StoreOperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "entitlements_store_operation_duration_seconds",
			Help:    "Duration of document store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	r.StoreDocumentBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "entitlements_store_document_bytes",
			Help: "Size of the persisted entitlement document in bytes",
		},
	)
}
