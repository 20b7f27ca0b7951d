// Package api wires the core engine (pool, selector, failover, lifecycle) to
// the HTTP surface named in spec §6. Grounded on the teacher's
// internal/api.Handler (dependency-holding struct + one method per route)
// and its completions_handler.go SSE loop, rewritten around the commit-on-
// first-token failover contract instead of a single-shot provider call.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nexusgw/nexus-gateway/internal/failover"
	"github.com/nexusgw/nexus-gateway/internal/lifecycle"
	"github.com/nexusgw/nexus-gateway/internal/pool"
	"github.com/nexusgw/nexus-gateway/internal/selector"
)

// Handler holds everything an HTTP route needs to drive the core engine.
type Handler struct {
	Pool      *pool.Pool
	Selector  *selector.Selector
	Engine    *failover.Engine
	Lifecycle *lifecycle.Controller
	Logger    *slog.Logger

	// MasterKey, if non-empty, is required as a Bearer token on every route
	// except /health (spec §6).
	MasterKey string

	// ShutdownTimeout bounds how long BeginShutdown waits for drain; the
	// gateway entry point passes it to Lifecycle.BeginShutdown.
	ShutdownTimeout time.Duration

	startedAt time.Time
}

// New constructs a Handler. startedAt is recorded for the /health uptime
// field.
func New(p *pool.Pool, s *selector.Selector, e *failover.Engine, lc *lifecycle.Controller, logger *slog.Logger, masterKey string) *Handler {
	return &Handler{
		Pool:            p,
		Selector:        s,
		Engine:          e,
		Lifecycle:       lc,
		Logger:          logger,
		MasterKey:       masterKey,
		ShutdownTimeout: lifecycle.DefaultShutdownTimeout,
		startedAt:       time.Now(),
	}
}

// Routes builds the full middleware-wrapped mux per spec §6's endpoint table.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", h.authenticated(h.ChatCompletions))
	mux.HandleFunc("GET /v1/models", h.authenticated(h.Models))
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /v1/providers/toggle", h.authenticated(h.Toggle))
	mux.HandleFunc("GET /metrics", h.authenticated(promhttp.Handler().ServeHTTP))
	return withCORS(mux)
}

// writeErrorJSON writes a *ferr.GatewayError (or any error) as the standard
// error payload, using the error's status code when available and 500
// otherwise.
func (h *Handler) writeErrorJSON(w http.ResponseWriter, err error) {
	status, msg, typ := classify(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(marshal(errorPayload{Error: errorPayloadPart{Message: msg, Type: typ}}))
}
