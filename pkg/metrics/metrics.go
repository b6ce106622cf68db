package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by redemption and authorization counters
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeRevoked  = "revoked"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid_format"
	OutcomeAllowed  = "allowed"
	OutcomeDenied   = "denied"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordKeysIssued records freshly issued keys for a tier
func (r *Registry) RecordKeysIssued(tier string, count int) {
	r.KeysIssuedTotal.WithLabelValues(tier).Add(float64(count))
}

// RecordRedemption records a redemption attempt outcome
func (r *Registry) RecordRedemption(outcome string) {
	r.RedemptionsTotal.WithLabelValues(outcome).Inc()
}

// RecordRevocation records a revoke or unrevoke operation
func (r *Registry) RecordRevocation(action, outcome string) {
	r.RevocationsTotal.WithLabelValues(action, outcome).Inc()
}

// RecordAuthorizationCheck records a command authorization decision
func (r *Registry) RecordAuthorizationCheck(allowed bool) {
	outcome := OutcomeDenied
	if allowed {
		outcome = OutcomeAllowed
	}
	r.AuthorizationChecksTotal.WithLabelValues(outcome).Inc()
}

// RecordAutoProvision records an auto-provisioned FREE license
func (r *Registry) RecordAutoProvision() {
	r.AutoProvisionedUsersTotal.Inc()
}

// RecordStoreOperation records a document store load or save
func (r *Registry) RecordStoreOperation(operation string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	r.StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Handler returns an HTTP handler serving this registry in the
// Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
