package middleware

import (
	"net/http"
)

// PublicCORS reflects the request's Origin on every response without
// Access-Control-Allow-Credentials, the posture Keycloak and similar
// token engines take for their token/certs/discovery/userinfo surface:
// these endpoints carry their own bearer-token or client-secret
// authentication, so an open CORS policy on them leaks nothing a
// same-origin policy would have protected. It departs from the
// teacher's per-tenant allow-list (DynamicCorsMiddleware), which exists
// to gate cookie-authenticated browser calls against a config row
// resolved from a header already present before routing — this layer's
// callers are OAuth clients identified by body parameters the router
// hasn't parsed yet, so there is no tenant config to consult at this
// point in the request lifecycle.
func PublicCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
