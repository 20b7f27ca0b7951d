package api

import (
	"strconv"

	"github.com/goccy/go-json"

	"github.com/nexusgw/nexus-gateway/pkg/ferr"
	"github.com/nexusgw/nexus-gateway/pkg/upstream"
)

// chatMessage is the wire shape of one message in the request body (spec
// §3): content may be a plain string or an ordered sequence of parts.
// Grounded on the teacher's pkg/types.ChatMessage, which keeps content as
// raw JSON for the same reason.
type chatMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// chatRequest is the pass-through request body (spec §6).
type chatRequest struct {
	Model            string          `json:"model,omitempty"`
	Messages         []chatMessage   `json:"messages"`
	Stream           *bool           `json:"stream,omitempty"`
	Temperature      *float64        `json:"temperature,omitempty"`
	TopP             *float64        `json:"top_p,omitempty"`
	MaxTokens        int             `json:"max_tokens,omitempty"`
	PresencePenalty  *float64        `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64        `json:"frequency_penalty,omitempty"`
	Stop             []string        `json:"stop,omitempty"`
	Tools            json.RawMessage `json:"tools,omitempty"`
	ToolChoice       json.RawMessage `json:"tool_choice,omitempty"`
}

// isStreaming reports the effective streaming flag; default is true (spec §6).
func (r *chatRequest) isStreaming() bool {
	if r.Stream == nil {
		return true
	}
	return *r.Stream
}

// validate checks the request against spec §3's message-list rule and
// returns a kind-1 ferr.GatewayError describing the first problem found.
func (r *chatRequest) validate() *ferr.GatewayError {
	if len(r.Messages) == 0 {
		return ferr.Validation("messages must be a non-empty array")
	}
	for i, m := range r.Messages {
		switch upstream.Role(m.Role) {
		case upstream.RoleSystem, upstream.RoleUser, upstream.RoleAssistant:
		default:
			return ferr.Validation("messages[" + strconv.Itoa(i) + "].role must be one of system, user, assistant")
		}
		if len(m.Content) == 0 {
			return ferr.Validation("messages[" + strconv.Itoa(i) + "].content is required")
		}
	}
	return nil
}

// toUpstreamMessages converts the wire messages into the core's contract
// type, decoding string content directly and part-sequence content into
// upstream.ContentPart entries.
func (r *chatRequest) toUpstreamMessages() ([]upstream.Message, error) {
	out := make([]upstream.Message, len(r.Messages))
	for i, m := range r.Messages {
		var asString string
		if err := json.Unmarshal(m.Content, &asString); err == nil {
			out[i] = upstream.Message{Role: upstream.Role(m.Role), Content: asString}
			continue
		}
		var parts []upstream.ContentPart
		if err := json.Unmarshal(m.Content, &parts); err != nil {
			return nil, err
		}
		out[i] = upstream.Message{Role: upstream.Role(m.Role), Parts: parts}
	}
	return out, nil
}

func (r *chatRequest) toOptions() upstream.Options {
	return upstream.Options{
		Model:            r.Model,
		Temperature:      r.Temperature,
		TopP:             r.TopP,
		MaxTokens:        r.MaxTokens,
		Stop:             r.Stop,
		Tools:            r.Tools,
		ToolChoice:       r.ToolChoice,
		PresencePenalty:  r.PresencePenalty,
		FrequencyPenalty: r.FrequencyPenalty,
	}
}
