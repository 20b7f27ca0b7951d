package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nexusgw/nexus-gateway/internal/breaker"
	"github.com/nexusgw/nexus-gateway/internal/metrics"
	"github.com/nexusgw/nexus-gateway/internal/pool"
)

func newUpstream(t *testing.T, kind pool.Kind) *pool.Upstream {
	t.Helper()
	return &pool.Upstream{
		Kind:    kind,
		Metrics: &metrics.Record{},
		Breaker: breaker.New(breaker.DefaultConfig()),
	}
}

func TestScore_OpenBreakerIsZero(t *testing.T) {
	u := newUpstream(t, pool.KindGroq)
	now := time.Now()
	for i := 0; i < breaker.DefaultFailureThreshold; i++ {
		u.Breaker.RecordFailure(now)
	}
	require.Equal(t, 0.0, Score(u, now, DefaultConfig()))
}

func TestScore_HalfOpenIsExploratoryFloor(t *testing.T) {
	cfg := breaker.Config{FailureThreshold: 1, ResetTimeout: time.Millisecond, HalfOpenMaxAttempt: 1}
	u := &pool.Upstream{Kind: pool.KindGroq, Metrics: &metrics.Record{}, Breaker: breaker.New(cfg)}
	start := time.Now()
	u.Breaker.RecordFailure(start)
	probeAt := start.Add(2 * time.Millisecond)
	require.True(t, u.Breaker.IsAvailable(probeAt))

	require.Equal(t, 0.1, Score(u, probeAt, DefaultConfig()))
}

func TestScore_UnmeasuredUpstreamUsesBonusMidpoint(t *testing.T) {
	u := newUpstream(t, pool.KindCerebras)
	now := time.Now()
	require.InDelta(t, 0.65, Score(u, now, DefaultConfig()), 1e-9)
}

func TestScore_MeasuredUpstreamUsesFullFormula(t *testing.T) {
	u := newUpstream(t, pool.KindGemini) // bonus 0
	now := time.Now()

	for i := 0; i < 4; i++ {
		u.Metrics.AttemptStart()
	}
	u.Metrics.AttemptSuccess(500 * time.Millisecond)
	u.Metrics.AttemptSuccess(500 * time.Millisecond)
	u.Metrics.AttemptSuccess(500 * time.Millisecond)
	u.Metrics.AttemptFailure(500*time.Millisecond, now, "boom")

	// success_rate=0.75, avg_latency=500ms -> latency_score=0.9
	// recent_error_penalty at delta=0 -> 0.3
	want := 0.5*0.75 + 0.3*0.9 + 0 - 0.3
	require.InDelta(t, want, Score(u, now, DefaultConfig()), 1e-9)
}

func TestScore_ErrorPenaltyDecaysToZero(t *testing.T) {
	u := newUpstream(t, pool.KindGemini)
	now := time.Now()
	for i := 0; i < 4; i++ {
		u.Metrics.AttemptStart()
	}
	u.Metrics.AttemptSuccess(0)
	u.Metrics.AttemptSuccess(0)
	u.Metrics.AttemptSuccess(0)
	u.Metrics.AttemptFailure(0, now, "boom")

	later := now.Add(DefaultErrorPenaltyDuration + time.Second)
	want := 0.5*0.75 + 0.3*1.0 + 0 - 0
	require.InDelta(t, want, Score(u, later, DefaultConfig()), 1e-9)
}

func TestScore_ClampsToOne(t *testing.T) {
	u := newUpstream(t, pool.KindCerebras)
	now := time.Now()
	for i := 0; i < 10; i++ {
		u.Metrics.AttemptStart()
		u.Metrics.AttemptSuccess(0)
	}
	require.LessOrEqual(t, Score(u, now, DefaultConfig()), 1.0)
}
