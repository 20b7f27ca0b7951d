package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{FailureThreshold: 3, ResetTimeout: 50 * time.Millisecond, HalfOpenMaxAttempt: 1}
}

func TestState_String(t *testing.T) {
	require.Equal(t, "closed", StateClosed.String())
	require.Equal(t, "open", StateOpen.String())
	require.Equal(t, "half_open", StateHalfOpen.String())
	require.Equal(t, "unknown", State(99).String())
}

func TestBreaker_ClosedSuccessDecrementsFailures(t *testing.T) {
	b := New(testConfig())
	now := time.Now()
	b.RecordFailure(now)
	b.RecordFailure(now)
	require.Equal(t, 2, b.Failures())

	b.RecordSuccess()
	require.Equal(t, 1, b.Failures())
	require.Equal(t, StateClosed, b.State())
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b := New(testConfig())
	now := time.Now()

	b.RecordFailure(now)
	b.RecordFailure(now)
	require.Equal(t, StateClosed, b.State())

	b.RecordFailure(now)
	require.Equal(t, StateOpen, b.State())
	require.False(t, b.IsAvailable(now))
}

func TestBreaker_OpenToHalfOpenAfterResetTimeout(t *testing.T) {
	cfg := testConfig()
	b := New(cfg)
	start := time.Now()
	b.RecordFailure(start)
	b.RecordFailure(start)
	b.RecordFailure(start)
	require.Equal(t, StateOpen, b.State())

	require.False(t, b.IsAvailable(start.Add(cfg.ResetTimeout-time.Millisecond)))
	require.True(t, b.IsAvailable(start.Add(cfg.ResetTimeout)))
	require.Equal(t, StateHalfOpen, b.State())
}

func TestBreaker_HalfOpenSuccessClosesAndResets(t *testing.T) {
	cfg := testConfig()
	b := New(cfg)
	start := time.Now()
	for i := 0; i < 3; i++ {
		b.RecordFailure(start)
	}
	require.True(t, b.IsAvailable(start.Add(cfg.ResetTimeout)))
	require.Equal(t, StateHalfOpen, b.State())

	b.RecordSuccess()
	require.Equal(t, StateClosed, b.State())
	require.Equal(t, 0, b.Failures())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	cfg := testConfig()
	b := New(cfg)
	start := time.Now()
	for i := 0; i < 3; i++ {
		b.RecordFailure(start)
	}
	require.True(t, b.IsAvailable(start.Add(cfg.ResetTimeout)))
	require.Equal(t, StateHalfOpen, b.State())

	later := start.Add(cfg.ResetTimeout + time.Millisecond)
	b.RecordFailure(later)
	require.Equal(t, StateOpen, b.State())
	require.False(t, b.IsAvailable(later))
}

func TestBreaker_HalfOpenAttemptCapRespected(t *testing.T) {
	cfg := testConfig()
	b := New(cfg)
	start := time.Now()
	for i := 0; i < 3; i++ {
		b.RecordFailure(start)
	}
	probeAt := start.Add(cfg.ResetTimeout)
	require.True(t, b.IsAvailable(probeAt))
	b.BeginHalfOpenAttempt()

	require.False(t, b.IsAvailable(probeAt), "a second concurrent probe must be rejected while the first is outstanding")
}

func TestBreaker_OnStateChangeFires(t *testing.T) {
	b := New(testConfig())
	transitions := make(chan struct {
		from, to State
	}, 4)
	b.OnStateChange(func(from, to State) {
		transitions <- struct {
			from, to State
		}{from, to}
	})

	now := time.Now()
	for i := 0; i < 3; i++ {
		b.RecordFailure(now)
	}

	select {
	case tr := <-transitions:
		require.Equal(t, StateClosed, tr.from)
		require.Equal(t, StateOpen, tr.to)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for state-change callback")
	}
}
