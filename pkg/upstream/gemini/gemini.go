// Package gemini implements the upstream.Adapter contract against Google's
// Gemini generateContent/streamGenerateContent API, which uses a different
// request/response shape than the OpenAI-compatible upstreams.
package gemini

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

const (
	// DefaultBaseURL is Gemini's generative language API root.
	DefaultBaseURL    = "https://generativelanguage.googleapis.com"
	defaultAPIVersion = "v1beta"
)

// Adapter implements upstream.Adapter against the Gemini API.
type Adapter struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New constructs a gemini adapter for one API key.
func New(apiKey string, client *http.Client) *Adapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &Adapter{apiKey: apiKey, baseURL: DefaultBaseURL, client: client}
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type generateRequest struct {
	Contents          []geminiContent   `json:"contents"`
	SystemInstruction *geminiContent    `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

func toGeminiContents(messages []upstream.Message) ([]geminiContent, *geminiContent) {
	var sys *geminiContent
	contents := make([]geminiContent, 0, len(messages))
	for _, m := range messages {
		text := m.Content
		if text == "" && len(m.Parts) > 0 {
			var sb strings.Builder
			for _, p := range m.Parts {
				if p.Type == "text" {
					sb.WriteString(p.Text)
				}
			}
			text = sb.String()
		}
		if m.Role == upstream.RoleSystem {
			s := geminiContent{Parts: []geminiPart{{Text: text}}}
			sys = &s
			continue
		}
		role := "user"
		if m.Role == upstream.RoleAssistant {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: text}}})
	}
	return contents, sys
}

func (a *Adapter) buildBody(messages []upstream.Message, opts upstream.Options) ([]byte, error) {
	contents, sys := toGeminiContents(messages)
	req := generateRequest{
		Contents:          contents,
		SystemInstruction: sys,
		GenerationConfig: &generationConfig{
			Temperature:     opts.Temperature,
			TopP:            opts.TopP,
			MaxOutputTokens: opts.MaxTokens,
			StopSequences:   opts.Stop,
		},
	}
	return json.Marshal(req)
}

func (a *Adapter) endpoint(model, method string) string {
	return fmt.Sprintf("%s/%s/models/%s:%s?key=%s", a.baseURL, defaultAPIVersion, model, method, a.apiKey)
}

// Stream opens Gemini's streamGenerateContent endpoint (server-sent-events
// of JSON arrays) and returns a pull-based Stream over its text deltas.
func (a *Adapter) Stream(ctx context.Context, messages []upstream.Message, opts upstream.Options) (upstream.Stream, error) {
	payload, err := a.buildBody(messages, opts)
	if err != nil {
		return nil, fmt.Errorf("gemini: build request: %w", err)
	}

	url := a.endpoint(opts.Model, "streamGenerateContent") + "&alt=sse"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gemini: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: dispatch: %w", err)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("gemini: status %d: %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	return &geminiStream{body: resp.Body, scanner: scanner}, nil
}

// Complete drains Stream and concatenates the deltas; Gemini's
// non-streaming generateContent endpoint returns the same candidate shape
// in one shot but draining the stream keeps one code path correct.
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

type geminiStreamBody struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type geminiStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	closed  bool
}

func (s *geminiStream) Next(ctx context.Context) (upstream.Chunk, bool, error) {
	for {
		select {
		case <-ctx.Done():
			return upstream.Chunk{}, false, ctx.Err()
		default:
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return upstream.Chunk{}, false, fmt.Errorf("gemini: stream read: %w", err)
			}
			return upstream.Chunk{}, false, nil
		}

		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 || !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		data := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))

		var parsed geminiStreamBody
		if err := json.Unmarshal(data, &parsed); err != nil {
			continue
		}
		if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
			continue
		}
		text := parsed.Candidates[0].Content.Parts[0].Text
		if text == "" {
			continue
		}
		return upstream.Chunk{Text: text}, true, nil
	}
}

func (s *geminiStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
