package audit

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestJSONLoggerLogDoesNotPanic(t *testing.T) {
	logger := NewJSONLogger()
	logger.Log(context.Background(), uuid.New(), uuid.New(), EventLoginSuccess, "password_grant", map[string]string{"client_id": "test-client"})
}

func TestJSONLoggerLogHandlesNilMetadata(t *testing.T) {
	logger := NewJSONLogger()
	logger.Log(context.Background(), uuid.New(), uuid.Nil, EventTokenRevoked, "revoke", nil)
}

func TestNoopLoggerDiscardsEverything(t *testing.T) {
	var logger Logger = NoopLogger{}
	logger.Log(context.Background(), uuid.New(), uuid.New(), EventAccountLocked, "password_grant", map[string]string{"x": "y"})
}
