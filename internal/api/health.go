package api

import (
	"net/http"
	"time"
)

// healthResponse is the GET /health payload: readiness, uptime, and a
// per-upstream metrics snapshot (spec §6).
type healthResponse struct {
	Status        string              `json:"status"`
	UptimeSeconds int64               `json:"uptime_seconds"`
	ShuttingDown  bool                `json:"shutting_down"`
	InFlight      int64               `json:"in_flight"`
	Upstreams     []upstreamHealthRow `json:"upstreams"`
}

type upstreamHealthRow struct {
	ID               string `json:"id"`
	CircuitState     string `json:"circuit_state"`
	Enabled          bool   `json:"enabled"`
	TotalRequests    int64  `json:"total_requests"`
	SuccessCount     int64  `json:"success_count"`
	FailCount        int64  `json:"fail_count"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Health implements GET /health. It is exempt from master-key
// authentication (spec §6) so orchestrators can probe it unconditionally.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	all := h.Pool.All()
	rows := make([]upstreamHealthRow, 0, len(all))
	for _, u := range all {
		snap := u.Metrics.Snapshot()
		rows = append(rows, upstreamHealthRow{
			ID:               u.DisplayName(),
			CircuitState:     u.Breaker.State().String(),
			Enabled:          u.Enabled(),
			TotalRequests:    snap.TotalRequests,
			SuccessCount:     snap.SuccessCount,
			FailCount:        snap.FailCount,
			LastErrorMessage: snap.LastErrorMessage,
		})
	}

	status := "ok"
	if h.Lifecycle.ShuttingDown() {
		status = "shutting_down"
	}

	resp := healthResponse{
		Status:        status,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		ShuttingDown:  h.Lifecycle.ShuttingDown(),
		InFlight:      h.Lifecycle.InFlight(),
		Upstreams:     rows,
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(marshal(resp))
}
