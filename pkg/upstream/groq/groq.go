// Package groq provides the groq upstream adapter. Groq speaks the same
// OpenAI-compatible chat-completions wire format as several other upstreams,
// so this is a thin wrapper over openaicompat.
package groq

import (
	"net/http"

	"github.com/nexusgw/nexus-gateway/pkg/upstream/openaicompat"
)

// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// New constructs a groq adapter for one API key.
func New(apiKey string, client *http.Client) *openaicompat.Adapter {
	return openaicompat.New(openaicompat.Config{
		Name:    "groq",
		BaseURL: DefaultBaseURL,
		APIKey:  apiKey,
		Client:  client,
	})
}
