package api

import (
	"crypto/subtle"
	"net/http"
)

// InternalAPIKeyMiddleware guards the API with a shared internal key carried
// in the X-Internal-Api-Key header. An empty configured key disables the
// check; this surface is service-internal, not end-user facing.
func InternalAPIKeyMiddleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key != "" {
				provided := r.Header.Get("X-Internal-Api-Key")
				if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
