package oautherr

import (
	"errors"
	"net/http"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	err := New(InvalidGrant, "refresh token expired")
	if err.Error() != "invalid_grant: refresh token expired" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestErrorMessageEmpty(t *testing.T) {
	err := New(AccessDenied, "")
	if err.Error() != "access_denied" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestAsUnwrapsWrappedError(t *testing.T) {
	inner := New(InvalidClient, "bad secret")
	wrapped := errors.New("token request failed: " + inner.Error())
	if _, ok := As(wrapped); ok {
		t.Fatal("expected As to fail on a plain wrapped string")
	}

	fmtWrapped := errorsFmtWrap(inner)
	got, ok := As(fmtWrapped)
	if !ok || got.Kind != InvalidClient {
		t.Fatalf("expected to unwrap InvalidClient, got %v ok=%v", got, ok)
	}
}

func errorsFmtWrap(err error) error {
	return &wrapper{err}
}

type wrapper struct{ err error }

func (w *wrapper) Error() string { return "wrapped: " + w.err.Error() }
func (w *wrapper) Unwrap() error { return w.err }

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		InvalidRequest:       http.StatusBadRequest,
		InvalidClient:        http.StatusUnauthorized,
		InvalidGrant:         http.StatusBadRequest,
		UnauthorizedClient:   http.StatusBadRequest,
		UnsupportedGrantType: http.StatusBadRequest,
		AccessDenied:         http.StatusForbidden,
		SlowDown:             http.StatusBadRequest,
		AuthorizationPending: http.StatusBadRequest,
		ExpiredToken:         http.StatusBadRequest,
		InvalidToken:         http.StatusUnauthorized,
	}
	for kind, want := range cases {
		if got := HTTPStatus(kind); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", kind, got, want)
		}
	}
}
