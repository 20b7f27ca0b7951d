package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew_OrdersByPriorityThenInstanceID(t *testing.T) {
	p := New([]*Upstream{
		{Kind: KindGemini, InstanceID: "1"},
		{Kind: KindCerebras, InstanceID: "2"},
		{Kind: KindCerebras, InstanceID: "10"},
		{Kind: KindGroq, InstanceID: "1"},
	})

	require.Equal(t, 4, p.Len())
	require.Equal(t, "cerebras-2", p.At(0).DisplayName())
	require.Equal(t, "cerebras-10", p.At(1).DisplayName())
	require.Equal(t, "groq-1", p.At(2).DisplayName())
	require.Equal(t, "gemini-1", p.At(3).DisplayName())
}

func TestNew_InitializesMetricsAndBreakerAndEnabled(t *testing.T) {
	p := New([]*Upstream{{Kind: KindGroq, InstanceID: "1"}})
	u := p.At(0)
	require.NotNil(t, u.Metrics)
	require.NotNil(t, u.Breaker)
	require.True(t, u.Enabled())
}

func TestIndexByDisplayName(t *testing.T) {
	p := New([]*Upstream{
		{Kind: KindGroq, InstanceID: "1"},
		{Kind: KindGemini, InstanceID: "2"},
	})
	require.Equal(t, 0, p.IndexByDisplayName("groq-1"))
	require.Equal(t, -1, p.IndexByDisplayName("missing-9"))
}

func TestSetEnabled_Toggles(t *testing.T) {
	p := New([]*Upstream{{Kind: KindGroq, InstanceID: "1"}})
	u := p.At(0)
	require.True(t, u.Enabled())
	require.True(t, u.IsAvailable(time.Now()))

	u.SetEnabled(false)
	require.False(t, u.Enabled())
	require.False(t, u.IsAvailable(time.Now()), "a disabled upstream must never be available regardless of breaker state")
}
