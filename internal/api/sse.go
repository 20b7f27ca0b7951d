package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nexusgw/nexus-gateway/internal/failover"
)

// sseEmitter implements failover.Emitter by writing spec §6's exact SSE
// frame shapes to an http.ResponseWriter, flushing after every event so
// chunks reach the client as they arrive rather than buffering.
type sseEmitter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	model   string
	created int64
}

func newSSEEmitter(w http.ResponseWriter, model string, created int64) *sseEmitter {
	flusher, _ := w.(http.Flusher)
	return &sseEmitter{w: w, flusher: flusher, model: model, created: created}
}

func (e *sseEmitter) writeFrame(data []byte) {
	_, _ = e.w.Write([]byte("data: "))
	_, _ = e.w.Write(data)
	_, _ = e.w.Write([]byte("\n\n"))
	if e.flusher != nil {
		e.flusher.Flush()
	}
}

// Metadata implements failover.Emitter.
func (e *sseEmitter) Metadata(m failover.Metadata) {
	e.writeFrame(marshal(metadataFrame{
		Type: "nexus-metadata",
		Metadata: metadataFramePart{
			Provider:    m.Provider,
			Latency:     m.LatencyMs,
			Circuit:     m.Circuit,
			HealthScore: m.HealthScore,
			RequestID:   m.RequestID,
		},
	}))
}

// Chunk implements failover.Emitter.
func (e *sseEmitter) Chunk(text string) {
	e.writeFrame(marshal(chunkFrame{
		ID:      "chatcmpl-" + uuid.New().String(),
		Object:  "chat.completion.chunk",
		Created: e.created,
		Model:   e.model,
		Choices: []chunkChoice{{Delta: chunkDelta{Content: text}, Index: 0, FinishReason: nil}},
	}))
}

// Error writes the terminal error frame (spec §6, exhaustion without any
// committed chunk).
func (e *sseEmitter) Error(msg string) {
	e.writeFrame(marshal(errorFrame{Error: errorFramePart{Message: msg, Type: "gateway_error"}}))
}

// Done writes the terminal [DONE] sentinel.
func (e *sseEmitter) Done() {
	_, _ = e.w.Write([]byte("data: [DONE]\n\n"))
	if e.flusher != nil {
		e.flusher.Flush()
	}
}
