// internal/adapters/in/http/middleware/cors.go
package middleware

import "net/http"

// フロント（Firebase Hosting）の既定オリジン。CORS_ALLOWED_ORIGIN で上書き可。
const defaultAllowedOrigin = "https://fableforge-app-dev.web.app"

// CORSWithOrigin returns the CORS middleware for one allowed origin. An empty
// origin falls back to the default hosting domain.
func CORSWithOrigin(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = defaultAllowedOrigin
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
			w.Header().Set("Access-Control-Max-Age", "600")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS is the default-origin middleware, for callers without loaded config
// (healthz-only boot path).
func CORS(next http.Handler) http.Handler {
	return CORSWithOrigin("")(next)
}
