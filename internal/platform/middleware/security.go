package middleware

import (
	"net/http"
	"slices"
	"strings"
)

// securityHeaders follows the OWASP REST security cheat sheet. Handlers may
// override any of them, e.g. Cache-Control on the cacheable schema document.
var securityHeaders = [...][2]string{
	{"Cache-Control", "no-store"},
	{"Content-Security-Policy", "frame-ancestors 'none'"},
	{"Cross-Origin-Opener-Policy", "same-origin"},
	{"Cross-Origin-Resource-Policy", "same-origin"},
	{"Permissions-Policy", "accelerometer=(), camera=(), geolocation=(), gyroscope=(), magnetometer=(), microphone=(), payment=(), usb=()"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
}

// Security sets securityHeaders on every response whose path does not start
// with one of skipPaths. The docs UI is skipped since it embeds scripts.
func Security(skipPaths ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			skip := slices.ContainsFunc(skipPaths, func(p string) bool {
				return strings.HasPrefix(r.URL.Path, p)
			})
			if !skip {
				h := w.Header()
				for _, kv := range securityHeaders {
					h.Set(kv[0], kv[1])
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
