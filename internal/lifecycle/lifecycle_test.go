package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnter_RejectsWhileShuttingDown(t *testing.T) {
	c := New()
	leave, ok := c.Enter()
	require.True(t, ok)
	leave()

	go c.BeginShutdown(time.Second)
	require.Eventually(t, c.ShuttingDown, time.Second, time.Millisecond)

	_, ok = c.Enter()
	require.False(t, ok)
}

func TestBeginShutdown_ReturnsImmediatelyWhenIdle(t *testing.T) {
	c := New()
	require.True(t, c.BeginShutdown(time.Second))
}

func TestBeginShutdown_WaitsForInFlightToDrain(t *testing.T) {
	c := New()
	leave, ok := c.Enter()
	require.True(t, ok)

	done := make(chan bool, 1)
	go func() { done <- c.BeginShutdown(time.Second) }()

	time.Sleep(20 * time.Millisecond)
	leave()

	select {
	case result := <-done:
		require.True(t, result)
	case <-time.After(time.Second):
		t.Fatal("BeginShutdown did not return after drain")
	}
}

func TestBeginShutdown_TimesOutWithRequestsStillInFlight(t *testing.T) {
	c := New()
	_, ok := c.Enter()
	require.True(t, ok)

	require.False(t, c.BeginShutdown(20*time.Millisecond))
}

func TestEnter_ExactlyOnceDecrementEvenIfLeaveCalledTwice(t *testing.T) {
	c := New()
	leave, ok := c.Enter()
	require.True(t, ok)
	leave()
	leave()
	require.Equal(t, int64(0), c.InFlight())
}
