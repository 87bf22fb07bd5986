package middleware

import (
	"net/http"
)

// AdminKeyMiddleware guards the admin collaborator surface behind a
// constant-time comparison of the x-admin-api-key header against the
// configured secret, grounded on the teacher's CSRF token comparison
// idiom (crypto/subtle.ConstantTimeCompare) rather than a plain ==.
func AdminKeyMiddleware(adminAPIKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get("x-admin-api-key")
			if provided == "" || adminAPIKey == "" || !SecureCompareTokens(provided, adminAPIKey) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
