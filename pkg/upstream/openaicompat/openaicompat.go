// Package openaicompat implements the upstream.Adapter contract against any
// remote service that speaks OpenAI's /chat/completions SSE wire format.
// Groq, OpenRouter, and Cerebras all qualify; each gets a thin wrapper
// package that only supplies a base URL and a display name.
package openaicompat

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/nexusgw/nexus-gateway/pkg/upstream"
)

// Config configures one OpenAI-compatible adapter instance.
type Config struct {
	Name    string // display name, e.g. "groq"
	BaseURL string // e.g. "https://api.groq.com/openai/v1"
	APIKey  string
	Client  *http.Client
}

// Adapter implements upstream.Adapter against an OpenAI-compatible API.
type Adapter struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

// New constructs an Adapter. A nil Client falls back to http.DefaultClient.
func New(cfg Config) *Adapter {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &Adapter{name: cfg.Name, baseURL: strings.TrimSuffix(cfg.BaseURL, "/"), apiKey: cfg.APIKey, client: client}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequestBody struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	Stream           bool          `json:"stream"`
	Temperature      *float64      `json:"temperature,omitempty"`
	TopP             *float64      `json:"top_p,omitempty"`
	MaxTokens        int           `json:"max_tokens,omitempty"`
	Stop             []string      `json:"stop,omitempty"`
	PresencePenalty  *float64      `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64      `json:"frequency_penalty,omitempty"`
}

func flattenMessages(messages []upstream.Message) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		content := m.Content
		if content == "" && len(m.Parts) > 0 {
			var sb strings.Builder
			for _, p := range m.Parts {
				if p.Type == "text" {
					sb.WriteString(p.Text)
				}
			}
			content = sb.String()
		}
		out = append(out, chatMessage{Role: string(m.Role), Content: content})
	}
	return out
}

func (a *Adapter) buildBody(messages []upstream.Message, opts upstream.Options, stream bool) ([]byte, error) {
	model := opts.Model
	body := chatRequestBody{
		Model:            model,
		Messages:         flattenMessages(messages),
		Stream:           stream,
		Temperature:      opts.Temperature,
		TopP:             opts.TopP,
		MaxTokens:        opts.MaxTokens,
		Stop:             opts.Stop,
		PresencePenalty:  opts.PresencePenalty,
		FrequencyPenalty: opts.FrequencyPenalty,
	}
	return json.Marshal(body)
}

func (a *Adapter) newRequest(ctx context.Context, payload []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	return req, nil
}

// Stream opens a server-sent-events response and returns a pull-based Stream
// over its content deltas.
func (a *Adapter) Stream(ctx context.Context, messages []upstream.Message, opts upstream.Options) (upstream.Stream, error) {
	payload, err := a.buildBody(messages, opts, true)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", a.name, err)
	}
	req, err := a.newRequest(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("%s: new request: %w", a.name, err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: dispatch: %w", a.name, err)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s: status %d: %s", a.name, resp.StatusCode, string(body))
	}
	return &sseStream{name: a.name, body: resp.Body, scanner: newSSEScanner(resp.Body)}, nil
}

// Complete drains Stream and concatenates the deltas into one response,
// since the OpenAI-compatible wire format has no simpler non-streaming path
// worth special-casing here.
func (a *Adapter) Complete(ctx context.Context, messages []upstream.Message, opts upstream.Options) (*upstream.FinalResponse, error) {
	s, err := a.Stream(ctx, messages, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.Close() }()

	var sb strings.Builder
	for {
		chunk, ok, err := s.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		sb.WriteString(chunk.Text)
	}
	return &upstream.FinalResponse{Content: sb.String()}, nil
}

type streamChunkBody struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func newSSEScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	return scanner
}

type sseStream struct {
	name    string
	body    io.ReadCloser
	scanner *bufio.Scanner
	closed  bool
}

func (s *sseStream) Next(ctx context.Context) (upstream.Chunk, bool, error) {
	for {
		select {
		case <-ctx.Done():
			return upstream.Chunk{}, false, ctx.Err()
		default:
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return upstream.Chunk{}, false, fmt.Errorf("%s: stream read: %w", s.name, err)
			}
			return upstream.Chunk{}, false, nil
		}

		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 || !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		data := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))
		if bytes.Equal(data, []byte("[DONE]")) {
			return upstream.Chunk{}, false, nil
		}

		var parsed streamChunkBody
		if err := json.Unmarshal(data, &parsed); err != nil {
			continue
		}
		if len(parsed.Choices) == 0 {
			continue
		}
		text := parsed.Choices[0].Delta.Content
		if text == "" {
			continue
		}
		return upstream.Chunk{Text: text}, true, nil
	}
}

func (s *sseStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
