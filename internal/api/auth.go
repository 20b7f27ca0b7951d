package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/nexusgw/nexus-gateway/pkg/ferr"
)

// authenticated wraps next with the Bearer master-key check (spec §6). When
// h.MasterKey is empty, authentication is disabled and next runs directly.
func (h *Handler) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.MasterKey == "" {
			next(w, r)
			return
		}
		const prefix = "Bearer "
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, prefix) {
			h.writeErrorJSON(w, ferr.Authentication("missing bearer token"))
			return
		}
		token := header[len(prefix):]
		if subtle.ConstantTimeCompare([]byte(token), []byte(h.MasterKey)) != 1 {
			h.writeErrorJSON(w, ferr.Authentication("invalid master key"))
			return
		}
		next(w, r)
	}
}
