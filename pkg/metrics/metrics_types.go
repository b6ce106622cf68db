package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the entitlement service
type Registry struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Entitlement metrics
	KeysIssuedTotal           *prometheus.CounterVec
	RedemptionsTotal          *prometheus.CounterVec
	RevocationsTotal          *prometheus.CounterVec
	AuthorizationChecksTotal  *prometheus.CounterVec
	LicensedUsersTotal        prometheus.Gauge
	AutoProvisionedUsersTotal prometheus.Counter

	// Store metrics
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec
	StoreDocumentBytes     prometheus.Gauge

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// NewRegistry creates a new metrics registry with all collectors registered
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initHTTPMetrics()
	r.initEntitlementMetrics()
	r.initStoreMetrics()

	return r
}

// Default returns the process-wide registry
func Default() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Gatherer exposes the underlying prometheus registry for serving
func (r *Registry) Gatherer() *prometheus.Registry {
	return r.registry
}
