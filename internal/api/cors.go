package api

import "net/http"

// withCORS applies a permissive CORS policy and answers preflight directly.
// Origin policy enforcement (allowlists, credentialed origins) is the kind
// of external concern spec §1 calls "trivial glue"; this gives every route
// the preflight contract spec §6 lists without reimplementing the teacher's
// full allow/deny-list engine.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Routing-Mode")
			w.Header().Set("Access-Control-Max-Age", "600")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
