// Package middleware holds the chi-compatible http.Handler wrappers the
// router stacks in front of every route: realm resolution, recovery,
// Sentry tagging, rate limiting, request logging, CORS, CSRF, and the
// admin-key guard.
package middleware

import (
	"context"
	"fmt"

	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// Context keys for request-scoped values.
const (
	RealmKey contextKey = "realm"
)

// GetRealm safely extracts the resolved realm from context. Returns an
// error if the value is missing or wrong type.
func GetRealm(ctx context.Context) (domain.Realm, error) {
	val := ctx.Value(RealmKey)
	if val == nil {
		return domain.Realm{}, fmt.Errorf("realm not found in context")
	}
	realm, ok := val.(domain.Realm)
	if !ok {
		return domain.Realm{}, fmt.Errorf("realm has wrong type: %T", val)
	}
	return realm, nil
}

// MustGetRealm extracts the realm and panics if not found. Use only in
// handlers mounted behind RealmContext.
func MustGetRealm(ctx context.Context) domain.Realm {
	realm, err := GetRealm(ctx)
	if err != nil {
		panic(fmt.Sprintf("CRITICAL: %v", err))
	}
	return realm
}

// WithRealm returns a copy of ctx carrying realm; RealmContext uses it
// to inject the realm it resolved from the URL path.
func WithRealm(ctx context.Context, realm domain.Realm) context.Context {
	return context.WithValue(ctx, RealmKey, realm)
}
