package middleware

import (
	"github.com/getsentry/sentry-go"
)

// SetSentrySubject tags the active Sentry scope with the realm user an
// operation concerns, once a token or credential has resolved one.
func SetSentrySubject(userID, ip string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetUser(sentry.User{ID: userID, IPAddress: ip})
	})
}
