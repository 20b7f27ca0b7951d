// Package cerebras provides the cerebras upstream adapter.
package cerebras

import (
	"net/http"

	"github.com/nexusgw/nexus-gateway/pkg/upstream/openaicompat"
)

// DefaultBaseURL is Cerebras's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.cerebras.ai/v1"

// New constructs a cerebras adapter for one API key.
func New(apiKey string, client *http.Client) *openaicompat.Adapter {
	return openaicompat.New(openaicompat.Config{
		Name:    "cerebras",
		BaseURL: DefaultBaseURL,
		APIKey:  apiKey,
		Client:  client,
	})
}
