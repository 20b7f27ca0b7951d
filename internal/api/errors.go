package api

import (
	"errors"
	"net/http"

	"github.com/nexusgw/nexus-gateway/pkg/ferr"
)

// classify extracts the HTTP status, message, and taxonomy type to surface
// for err. Unrecognized errors map to a generic 500; the core never returns
// an unwrapped error on a request path, so this is a defensive fallback
// only.
func classify(err error) (status int, message string, typ string) {
	var gerr *ferr.GatewayError
	if errors.As(err, &gerr) {
		return gerr.StatusCode, gerr.Message, gerr.Type
	}
	return http.StatusInternalServerError, err.Error(), "internal_error"
}
