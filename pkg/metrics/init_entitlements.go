package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initEntitlementMetrics() {
	r.KeysIssuedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlements_keys_issued_total",
			Help: "Total number of license keys issued, by tier",
		},
		[]string{"tier"},
	)

	r.RedemptionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlements_redemptions_total",
			Help: "Total number of key redemption attempts, by outcome",
		},
		[]string{"outcome"},
	)

	r.RevocationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlements_revocations_total",
			Help: "Total number of revoke/unrevoke operations, by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	r.AuthorizationChecksTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlements_authorization_checks_total",
			Help: "Total number of command authorization decisions, by outcome",
		},
		[]string{"outcome"},
	)

	r.LicensedUsersTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "entitlements_licensed_users",
			Help: "Number of users currently holding a license",
		},
	)

	r.AutoProvisionedUsersTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "entitlements_auto_provisioned_users_total",
			Help: "Total number of users auto-provisioned with a FREE license",
		},
	)
}
