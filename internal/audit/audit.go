// Package audit provides the structured, append-only event log every
// grant, introspection, broker, and backchannel operation writes to.
package audit

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

// EventType categorizes an audit entry.
type EventType string

const (
	EventLoginSuccess       EventType = "LOGIN_SUCCESS"
	EventLoginFailed        EventType = "LOGIN_FAILED"
	EventAccountLocked      EventType = "ACCOUNT_LOCKED"
	EventTokenIssued        EventType = "TOKEN_ISSUED"
	EventTokenRefreshed     EventType = "TOKEN_REFRESHED"
	EventTokenReuseDetected EventType = "TOKEN_REUSE_DETECTED"
	EventTokenRevoked       EventType = "TOKEN_REVOKED"
	EventSessionClosed      EventType = "SESSION_CLOSED"
	EventMFAChallengeFailed EventType = "MFA_CHALLENGE_FAILED"
	EventMFAChallengeLocked EventType = "MFA_CHALLENGE_LOCKED"
	EventBrokerLoginSuccess EventType = "BROKER_LOGIN_SUCCESS"
	EventBrokerLoginFailed  EventType = "BROKER_LOGIN_FAILED"
	EventBackchannelLogout  EventType = "BACKCHANNEL_LOGOUT_SENT"
	EventBackchannelFailure EventType = "BACKCHANNEL_LOGOUT_FAILED"
)

// Logger is the contract every component depends on to record an event.
// actorID is the realm user the event is about, not the caller of this
// package — system-initiated events (e.g. a sweep) pass uuid.Nil.
type Logger interface {
	Log(ctx context.Context, realmID, actorID uuid.UUID, action EventType, resource string, metadata map[string]string)
}

// JSONLogger writes one structured line per event to stdout under the
// fixed "audit_event" message, with a log_type marker aggregators filter
// on to route audit entries to a separate, immutable index from
// ordinary application logs.
type JSONLogger struct {
	logger *slog.Logger
}

// NewJSONLogger builds a JSONLogger with its own handler, independent of
// whatever the caller's main application logger is configured with, so
// audit formatting never drifts with general log-level changes.
func NewJSONLogger() *JSONLogger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	return &JSONLogger{logger: slog.New(handler)}
}

func (l *JSONLogger) Log(ctx context.Context, realmID, actorID uuid.UUID, action EventType, resource string, metadata map[string]string) {
	fields := []any{
		slog.String("log_type", "AUDIT_TRAIL"),
		slog.String("realm_id", realmID.String()),
		slog.String("actor_id", actorID.String()),
		slog.String("action", string(action)),
		slog.String("resource", resource),
		slog.Time("timestamp_utc", time.Now().UTC()),
	}
	for k, v := range metadata {
		fields = append(fields, slog.String("meta_"+k, v))
	}
	l.logger.InfoContext(ctx, "audit_event", fields...)
}

// NoopLogger discards every event; used by tests and by callers that
// haven't wired a real sink.
type NoopLogger struct{}

func (NoopLogger) Log(context.Context, uuid.UUID, uuid.UUID, EventType, string, map[string]string) {}
