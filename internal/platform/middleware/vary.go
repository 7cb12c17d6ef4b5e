package middleware

import "net/http"

// Vary adds Accept and Authorization to the Vary header. Responses are
// negotiated between JSON and CBOR and profile data depends on the caller.
// The CORS middleware adds Origin itself.
func Vary() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Accept")
			w.Header().Add("Vary", "Authorization")
			next.ServeHTTP(w, r)
		})
	}
}
