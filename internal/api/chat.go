package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/nexusgw/nexus-gateway/internal/failover"
	"github.com/nexusgw/nexus-gateway/internal/selector"
	"github.com/nexusgw/nexus-gateway/internal/telemetry"
	"github.com/nexusgw/nexus-gateway/pkg/ferr"
)

// maxBodySize caps the request body the way the teacher's Completions
// handler does, to keep a misbehaving client from exhausting memory.
const maxBodySize = 8 << 20 // 8 MiB

// ChatCompletions implements POST /v1/chat/completions (spec §6).
func (h *Handler) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	leave, ok := h.Lifecycle.Enter()
	if !ok {
		w.Header().Set("Retry-After", "30")
		h.writeErrorJSON(w, ferr.ShuttingDown())
		return
	}
	defer leave()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		h.writeErrorJSON(w, ferr.Validation("failed to read request body"))
		return
	}
	defer func() { _ = r.Body.Close() }()
	if int64(len(body)) > maxBodySize {
		h.writeErrorJSON(w, ferr.Validation("request body too large"))
		return
	}

	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeErrorJSON(w, ferr.Validation("invalid JSON: "+err.Error()))
		return
	}
	if verr := req.validate(); verr != nil {
		h.writeErrorJSON(w, verr)
		return
	}
	messages, err := req.toUpstreamMessages()
	if err != nil {
		h.writeErrorJSON(w, ferr.Validation("invalid message content: "+err.Error()))
		return
	}

	mode := selector.ParseMode(r.Header.Get("X-Routing-Mode"))
	failoverReq := failover.Request{
		Messages:  messages,
		Options:   req.toOptions(),
		Mode:      mode,
		RequestID: uuid.New().String(),
	}

	if req.isStreaming() {
		h.streamChatCompletion(w, r, req.Model, failoverReq)
		return
	}
	h.completeChatCompletion(w, r, req.Model, failoverReq)
}

func (h *Handler) streamChatCompletion(w http.ResponseWriter, r *http.Request, model string, req failover.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	emit := newSSEEmitter(w, model, time.Now().Unix())
	started, err := h.Engine.RunStream(r.Context(), req, emit)

	outcome := "success"
	switch {
	case r.Context().Err() != nil:
		// Client disconnected; writing anything further is pointless.
		outcome = "cancelled"
	case err != nil && !started:
		outcome = "exhausted"
		emit.Error(err.Error())
	case err != nil && started:
		outcome = "committed_error"
	}
	telemetry.RequestsTotal.WithLabelValues(string(req.Mode), outcome).Inc()
	if outcome != "cancelled" {
		emit.Done()
	}
}

func (h *Handler) completeChatCompletion(w http.ResponseWriter, r *http.Request, model string, req failover.Request) {
	resp, err := h.Engine.RunComplete(r.Context(), req)
	if err != nil {
		if r.Context().Err() != nil {
			// Client disconnected; nothing left to write (spec §7 kind 6).
			telemetry.RequestsTotal.WithLabelValues(string(req.Mode), "cancelled").Inc()
			return
		}
		telemetry.RequestsTotal.WithLabelValues(string(req.Mode), "exhausted").Inc()
		h.writeErrorJSON(w, err)
		return
	}
	telemetry.RequestsTotal.WithLabelValues(string(req.Mode), "success").Inc()

	payload := completionResponse{
		ID:      "chatcmpl-" + uuid.New().String(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   strings.TrimSpace(model),
		Choices: []completionChoice{{
			Index:        0,
			Message:      completionMessage{Role: "assistant", Content: resp.Content},
			FinishReason: "stop",
		}},
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(marshal(payload))
}
