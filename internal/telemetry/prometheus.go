// Package telemetry wires prometheus/client_golang gauges and counters over
// the core's live state, exposed at GET /metrics. Grounded on the teacher's
// internal/metrics/prometheus.go (promauto-registered Vec metrics under a
// fixed namespace), trimmed to the handful of series the routing/resilience
// core actually produces.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nexusgw/nexus-gateway/internal/breaker"
	"github.com/nexusgw/nexus-gateway/internal/health"
	"github.com/nexusgw/nexus-gateway/internal/pool"
)

const namespace = "nexusgw"

// RequestsTotal counts chat requests by routing mode and terminal outcome.
var RequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_requests_total",
		Help:      "Total chat completion requests handled, by routing mode and outcome.",
	},
	[]string{"routing_mode", "outcome"},
)

// FailoverAttemptsTotal counts one series entry per dispatched attempt,
// independent of which request it belonged to.
var FailoverAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "failover_attempts_total",
		Help:      "Total upstream dispatch attempts, by upstream and result.",
	},
	[]string{"upstream", "result"},
)

// breakerStateValue maps a breaker state to the numeric value the gauge
// reports: 0 closed, 1 half-open, 2 open.
func breakerStateValue(s breaker.State) float64 {
	switch s {
	case breaker.StateClosed:
		return 0
	case breaker.StateHalfOpen:
		return 1
	case breaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// RegisterUpstreamGauges registers one breaker-state gauge, one
// health-score gauge and one enabled-flag gauge per tracked upstream,
// reading live from p on every
// scrape via GaugeFunc rather than needing the core to push updates.
func RegisterUpstreamGauges(reg prometheus.Registerer, p *pool.Pool) {
	cfg := health.DefaultConfig()
	for _, u := range p.All() {
		u := u
		labels := prometheus.Labels{"upstream": u.DisplayName(), "provider": string(u.Kind)}

		reg.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "upstream_breaker_state",
				Help:        "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
				ConstLabels: labels,
			},
			func() float64 { return breakerStateValue(u.Breaker.State()) },
		))

		reg.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "upstream_health_score",
				Help:        "Current health score in [0,1].",
				ConstLabels: labels,
			},
			func() float64 { return health.Score(u, time.Now(), cfg) },
		))

		reg.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "upstream_enabled",
				Help:        "1 if the upstream is enabled, 0 otherwise.",
				ConstLabels: labels,
			},
			func() float64 {
				if u.Enabled() {
					return 1
				}
				return 0
			},
		))
	}
}
