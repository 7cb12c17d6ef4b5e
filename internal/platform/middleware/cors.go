package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var (
	corsMethods = []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	}
	corsRequestHeaders = []string{"Accept", "Authorization", "Content-Type", "If-None-Match", "X-Request-Id", "traceparent"}
	// Location points at a created profile, Link at the next list page and
	// ETag feeds If-None-Match.
	corsExposedHeaders = []string{"ETag", "Link", "Location", "X-Request-Id"}
)

// CORS allows browser wallets to call the profile API. No origins means any
// origin.
func CORS(allowedOrigins ...string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: corsMethods,
		AllowedHeaders: corsRequestHeaders,
		ExposedHeaders: corsExposedHeaders,
		MaxAge:         300,
	})
}
