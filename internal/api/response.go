package api

import "github.com/goccy/go-json"

// metadataFrame is the one pre-first-chunk SSE event (spec §6).
type metadataFrame struct {
	Type     string            `json:"type"`
	Metadata metadataFramePart `json:"metadata"`
}

type metadataFramePart struct {
	Provider    string `json:"provider"`
	Latency     int64  `json:"latency"`
	Circuit     string `json:"circuit"`
	HealthScore int    `json:"healthScore"`
	RequestID   string `json:"requestId"`
}

// chunkFrame is one chat.completion.chunk SSE event (spec §6).
type chunkFrame struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
}

type chunkChoice struct {
	Delta        chunkDelta `json:"delta"`
	Index        int        `json:"index"`
	FinishReason *string    `json:"finish_reason"`
}

type chunkDelta struct {
	Content string `json:"content"`
}

// errorFrame is emitted before [DONE] on total exhaustion (spec §6).
type errorFrame struct {
	Error errorFramePart `json:"error"`
}

type errorFramePart struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// completionResponse is the non-streaming payload, forwarded verbatim in
// shape (spec §6); Content is assembled from the committed upstream's
// chunks or its native Complete result.
type completionResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []completionChoice `json:"choices"`
}

type completionChoice struct {
	Index        int               `json:"index"`
	Message      completionMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// errorPayload is the JSON body for non-2xx responses produced directly by
// the core (validation, auth, exhaustion, shutdown rejection).
type errorPayload struct {
	Error errorPayloadPart `json:"error"`
}

type errorPayloadPart struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func marshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Every value passed to marshal in this package is a package-local
		// struct with only marshalable fields; a failure here means a bug
		// in this file, not bad input.
		return []byte(`{"error":{"message":"internal encoding error","type":"gateway_error"}}`)
	}
	return b
}
