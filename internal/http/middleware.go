package http

import (
	"net/http"
	"strings"
)

const swaggerCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:"

// SecurityHeaders sets the response headers shared by every route.
// Responses under /api/ are marked no-store; HSTS is sent in production only.
func SecurityHeaders(production bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")

			switch {
			case strings.HasPrefix(r.URL.Path, "/swagger/"):
				h.Set("Content-Security-Policy", swaggerCSP)
			case strings.HasPrefix(r.URL.Path, "/api/"):
				h.Set("Content-Security-Policy", "default-src 'none'")
				h.Set("Cache-Control", "no-store")
			default:
				h.Set("Content-Security-Policy", "default-src 'none'")
			}

			if production {
				h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
