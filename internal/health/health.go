// Package health implements the pure health-scoring function (spec §4.4):
// a scalar in [0,1] derived from an upstream's metrics, breaker state, and
// static priority bonus. Grounded on the teacher's DeploymentStats-driven
// scoring idea in internal/router/lowest_latency.go and lowest_cost.go,
// generalized here into the single documented formula the spec mandates
// instead of a family of competing strategies.
package health

import (
	"time"

	"github.com/nexusgw/nexus-gateway/internal/breaker"
	"github.com/nexusgw/nexus-gateway/internal/pool"
)

// Defaults per spec §4.4.
const (
	DefaultMinRequestsForScoring = 3
	DefaultErrorPenaltyDuration  = 30 * time.Second
)

// Config tunes the scorer's thresholds.
type Config struct {
	MinRequestsForScoring int
	ErrorPenaltyDuration  time.Duration
}

// DefaultConfig returns spec defaults.
func DefaultConfig() Config {
	return Config{
		MinRequestsForScoring: DefaultMinRequestsForScoring,
		ErrorPenaltyDuration:  DefaultErrorPenaltyDuration,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Score computes the health score of u at wall-clock now, per spec §4.4.
// It is a pure read of u's current metrics/breaker snapshot — never
// persisted, recomputed on every selection.
func Score(u *pool.Upstream, now time.Time, cfg Config) float64 {
	switch u.Breaker.State() {
	case breaker.StateOpen:
		return 0
	case breaker.StateHalfOpen:
		return 0.1
	}

	bonus := pool.PriorityBonus[u.Kind]

	snap := u.Metrics.Snapshot()

	minReq := cfg.MinRequestsForScoring
	if minReq <= 0 {
		minReq = DefaultMinRequestsForScoring
	}
	if snap.TotalRequests < int64(minReq) {
		return clamp01(0.5 + bonus)
	}

	successRate := float64(snap.SuccessCount) / float64(snap.TotalRequests)
	avgLatency := float64(snap.TotalLatencyMs) / float64(snap.TotalRequests)
	latencyScore := 1 - avgLatency/5000
	if latencyScore < 0 {
		latencyScore = 0
	}

	var recentErrorPenalty float64
	penaltyWindow := cfg.ErrorPenaltyDuration
	if penaltyWindow <= 0 {
		penaltyWindow = DefaultErrorPenaltyDuration
	}
	if snap.HasLastError {
		delta := now.Sub(snap.LastErrorAt)
		if delta < penaltyWindow {
			recentErrorPenalty = 0.3 * (1 - float64(delta)/float64(penaltyWindow))
		}
	}

	return clamp01(0.5*successRate + 0.3*latencyScore + bonus - recentErrorPenalty)
}
