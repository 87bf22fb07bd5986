// Package oautherr tags domain errors with an RFC 6749 error kind so the
// HTTP boundary in internal/api can render the standard JSON error shape
// without every package reaching for net/http status codes itself.
package oautherr

import (
	"errors"
	"net/http"
)

// Kind is one of the OAuth2/OIDC error codes named in spec §7.
type Kind string

const (
	InvalidRequest       Kind = "invalid_request"
	InvalidClient        Kind = "invalid_client"
	InvalidGrant         Kind = "invalid_grant"
	UnauthorizedClient   Kind = "unauthorized_client"
	UnsupportedGrantType Kind = "unsupported_grant_type"
	AccessDenied         Kind = "access_denied"
	SlowDown             Kind = "slow_down"
	AuthorizationPending Kind = "authorization_pending"
	ExpiredToken         Kind = "expired_token"
	InvalidToken         Kind = "invalid_token"
)

// Error wraps a Kind and a non-sensitive message; it never carries the
// underlying cause in its rendered message so verification-library
// internals never leak across the HTTP boundary.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

// New constructs an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// As extracts an *Error from err, if any wraps one.
func As(err error) (*Error, bool) {
	var oe *Error
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}

// HTTPStatus maps a Kind onto the HTTP status spec §7 prescribes.
func HTTPStatus(kind Kind) int {
	switch kind {
	case InvalidClient, InvalidToken:
		return http.StatusUnauthorized
	case InvalidRequest, InvalidGrant, UnauthorizedClient, UnsupportedGrantType,
		SlowDown, AuthorizationPending, ExpiredToken:
		return http.StatusBadRequest
	case AccessDenied:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}
