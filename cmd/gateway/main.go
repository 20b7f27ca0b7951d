// Command gateway is the process entry point: it discovers upstreams from
// the environment, wires the routing/resilience core to the HTTP surface,
// and runs until an interruption or termination signal drains in-flight
// requests and exits. Grounded on the teacher's cmd/server/main.go (slog
// JSON logger, signal-driven graceful shutdown), trimmed to the single
// core this spec covers — no config file, no secret backends beyond the
// environment, no tracing/auth/tenant layers.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nexusgw/nexus-gateway/internal/api"
	"github.com/nexusgw/nexus-gateway/internal/failover"
	"github.com/nexusgw/nexus-gateway/internal/lifecycle"
	"github.com/nexusgw/nexus-gateway/internal/selector"
	"github.com/nexusgw/nexus-gateway/internal/telemetry"
	"github.com/nexusgw/nexus-gateway/pkg/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("gateway failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("starting nexus gateway")

	// No client-wide Timeout: it would cap every upstream stream's total
	// duration. Each attempt is bounded only by the engine's first-token
	// deadline and the request context.
	httpClient := &http.Client{}

	pool, err := config.Discover(httpClient)
	if err != nil {
		return fmt.Errorf("failed to discover upstreams: %w", err)
	}
	if pool.Len() == 0 {
		logger.Warn("no upstreams discovered from environment; every request will exhaust immediately")
	}
	logger.Info("discovered upstreams", "count", pool.Len())

	telemetry.RegisterUpstreamGauges(prometheus.DefaultRegisterer, pool)

	sel := selector.New(pool)
	engine := failover.New(pool, sel, failover.DefaultConfig())
	lc := lifecycle.New()

	handler := api.New(pool, sel, engine, lc, logger, os.Getenv("NEXUS_MASTER_KEY"))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		// No global write/request timeout: streaming responses are
		// unbounded in duration by design (spec §5, "no total-request
		// deadline").
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	drained := lc.BeginShutdown(handler.ShutdownTimeout)
	if !drained {
		logger.Warn("shutdown grace period elapsed with requests still in flight", "in_flight", lc.InFlight())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("gateway stopped")
	return nil
}
