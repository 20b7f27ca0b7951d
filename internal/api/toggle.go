package api

import (
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/nexusgw/nexus-gateway/pkg/ferr"
)

type toggleRequest struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type toggleResponse struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Toggle implements POST /v1/providers/toggle: sets enabled on one upstream
// by display name (spec §6, §3). Unknown names yield 404 (spec §6).
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.writeErrorJSON(w, ferr.Validation("failed to read request body"))
		return
	}
	defer func() { _ = r.Body.Close() }()

	var req toggleRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeErrorJSON(w, ferr.Validation("invalid JSON: "+err.Error()))
		return
	}

	idx := h.Pool.IndexByDisplayName(req.Name)
	if idx < 0 {
		h.writeErrorJSON(w, ferr.NotFound("unknown upstream: "+req.Name))
		return
	}

	u := h.Pool.At(idx)
	u.SetEnabled(req.Enabled)

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(marshal(toggleResponse{Name: u.DisplayName(), Enabled: u.Enabled()}))
}
