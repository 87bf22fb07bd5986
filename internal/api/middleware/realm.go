package middleware

import (
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"

	"github.com/Islamawad132/Authme-sub001/internal/store"
)

// RealmContext resolves the {realm} path segment against realms and
// injects the found domain.Realm into the request context. Unlike the
// teacher's TenantContext, it does not open a database transaction: the
// pgstore backing scopes its own RLS transaction per call, so this
// middleware's only job is turning a path segment into a domain.Realm
// every downstream handler can trust.
func RealmContext(realms store.RealmStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := chi.URLParam(r, "realm")
			if name == "" {
				http.Error(w, "realm not specified", http.StatusNotFound)
				return
			}

			realm, found, err := realms.GetByName(name)
			if err != nil {
				slog.Error("realm lookup failed", "realm", name, "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if !found || !realm.Enabled {
				http.Error(w, "unknown or disabled realm", http.StatusNotFound)
				return
			}

			sentry.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetTag("realm", realm.Name)
			})

			next.ServeHTTP(w, r.WithContext(WithRealm(r.Context(), realm)))
		})
	}
}
