package api

import (
	"net/http"
	"time"
)

// modelsResponse is the GET /v1/models payload: enumeration of tracked
// upstreams with availability (spec §6 names the endpoint but not its
// shape; this is the supplemented reporting view over pool state).
type modelsResponse struct {
	Data []modelEntry `json:"data"`
}

type modelEntry struct {
	ID           string `json:"id"`
	Provider     string `json:"provider"`
	Enabled      bool   `json:"enabled"`
	Available    bool   `json:"available"`
	CircuitState string `json:"circuit_state"`
}

// Models implements GET /v1/models.
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	all := h.Pool.All()
	out := modelsResponse{Data: make([]modelEntry, 0, len(all))}
	for _, u := range all {
		out.Data = append(out.Data, modelEntry{
			ID:           u.DisplayName(),
			Provider:     string(u.Kind),
			Enabled:      u.Enabled(),
			Available:    u.IsAvailable(now),
			CircuitState: u.Breaker.State().String(),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(marshal(out))
}
