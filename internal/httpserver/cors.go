package httpserver

import (
	"net/http"

	"github.com/weblink/signaling/internal/origin"
)

const (
	corsAllowMethods = "GET, OPTIONS"
	corsAllowHeaders = "Authorization, Content-Type"
)

// corsMiddleware sets the CORS response headers on every response and
// terminates preflight requests (OPTIONS on any path) with 204.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if value := allowOriginValue(r.Header.Get("Origin"), allowedOrigins); value != "" {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", value)
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				if value != "*" {
					h.Add("Vary", "Origin")
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// allowOriginValue resolves the Access-Control-Allow-Origin header value for
// a request: "*" when the allow-list is wildcarded, the normalized request
// origin when it is explicitly allowed, and "" otherwise.
func allowOriginValue(requestOrigin string, allowed []string) string {
	for _, entry := range allowed {
		if entry == "*" {
			return "*"
		}
	}
	normalized, ok := origin.NormalizeHeader(requestOrigin)
	if !ok {
		return ""
	}
	if origin.IsAllowed(normalized, allowed) {
		return normalized
	}
	return ""
}
