package api

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nexusgw/nexus-gateway/internal/failover"
	"github.com/nexusgw/nexus-gateway/internal/lifecycle"
	"github.com/nexusgw/nexus-gateway/internal/pool"
	"github.com/nexusgw/nexus-gateway/internal/selector"
	"github.com/nexusgw/nexus-gateway/pkg/upstream"
)

type fakeStream struct {
	chunks []upstream.Chunk
	idx    int
}

func (s *fakeStream) Next(ctx context.Context) (upstream.Chunk, bool, error) {
	if s.idx >= len(s.chunks) {
		return upstream.Chunk{}, false, nil
	}
	c := s.chunks[s.idx]
	s.idx++
	return c, true, nil
}

func (s *fakeStream) Close() error { return nil }

type fakeAdapter struct {
	chunks []upstream.Chunk
}

func (a *fakeAdapter) Stream(ctx context.Context, messages []upstream.Message, opts upstream.Options) (upstream.Stream, error) {
	return &fakeStream{chunks: a.chunks}, nil
}

func (a *fakeAdapter) Complete(ctx context.Context, messages []upstream.Message, opts upstream.Options) (*upstream.FinalResponse, error) {
	var sb strings.Builder
	for _, c := range a.chunks {
		sb.WriteString(c.Text)
	}
	return &upstream.FinalResponse{Content: sb.String()}, nil
}

func newTestHandler(t *testing.T, masterKey string, adapter upstream.Adapter) *Handler {
	t.Helper()
	p := pool.New([]*pool.Upstream{{Kind: pool.KindGroq, InstanceID: "1", Adapter: adapter}})
	s := selector.New(p)
	e := failover.New(p, s, failover.DefaultConfig())
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(p, s, e, lc, logger, masterKey)
}

func TestChatCompletions_StreamingHappyPath(t *testing.T) {
	h := newTestHandler(t, "", &fakeAdapter{chunks: []upstream.Chunk{{Text: "Hel"}, {Text: "lo"}}})
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json",
		strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var lines []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			lines = append(lines, line)
		}
	}
	require.GreaterOrEqual(t, len(lines), 3)
	require.Contains(t, lines[0], "nexus-metadata")
	require.Contains(t, lines[len(lines)-1], "[DONE]")
}

func TestChatCompletions_NonStreaming(t *testing.T) {
	h := newTestHandler(t, "", &fakeAdapter{chunks: []upstream.Chunk{{Text: "Hel"}, {Text: "lo"}}})
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json",
		strings.NewReader(`{"stream":false,"messages":[{"role":"user","content":"hi"}]}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "Hello")
}

func TestChatCompletions_InvalidBodyReturns400(t *testing.T) {
	h := newTestHandler(t, "", &fakeAdapter{})
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json", strings.NewReader(`{"messages":[]}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthenticated_RejectsMissingOrWrongKey(t *testing.T) {
	h := newTestHandler(t, "secret", &fakeAdapter{chunks: []upstream.Chunk{{Text: "hi"}}})
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/models")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/models", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestHealth_ExemptFromAuth(t *testing.T) {
	h := newTestHandler(t, "secret", &fakeAdapter{})
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestToggle_UnknownUpstreamReturns404(t *testing.T) {
	h := newTestHandler(t, "", &fakeAdapter{})
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/providers/toggle", "application/json",
		strings.NewReader(`{"name":"nope-9","enabled":false}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestToggle_DisablesUpstream(t *testing.T) {
	h := newTestHandler(t, "", &fakeAdapter{})
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/providers/toggle", "application/json",
		strings.NewReader(`{"name":"groq-1","enabled":false}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.False(t, h.Pool.At(0).Enabled())
}
