// Package openrouter provides the openrouter upstream adapter.
package openrouter

import (
	"net/http"

	"github.com/nexusgw/nexus-gateway/pkg/upstream/openaicompat"
)

// DefaultBaseURL is OpenRouter's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// New constructs an openrouter adapter for one API key.
func New(apiKey string, client *http.Client) *openaicompat.Adapter {
	return openaicompat.New(openaicompat.Config{
		Name:    "openrouter",
		BaseURL: DefaultBaseURL,
		APIKey:  apiKey,
		Client:  client,
	})
}
