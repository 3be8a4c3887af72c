package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "multimart", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "multimart", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	AuthOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "multimart", Name: "auth_operations_total", Help: "Session state operations by outcome (ok, local error kind, provider error kind)."},
		[]string{"op", "outcome"},
	)
	GuardDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "multimart", Name: "guard_decisions_total", Help: "Route guard outcomes."},
		[]string{"outcome"},
	)
	ActiveStores = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "multimart", Name: "session_stores_active", Help: "Live per-client session state stores."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(AuthOperations)
	reg.MustRegister(GuardDecisions)
	reg.MustRegister(ActiveStores)
}
