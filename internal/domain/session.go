package domain

import (
	"net"
	"time"

	"github.com/google/uuid"
)

// Session is the OAuth session opened on successful subject authentication.
// It owns the refresh tokens issued against it; revoking it (logout,
// reuse-detection) cascades to them.
type Session struct {
	ID        uuid.UUID
	RealmID   uuid.UUID
	UserID    uuid.UUID
	ClientID  string
	IPAddress net.IP
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
	ClosedAt  *time.Time
}

// Closed reports whether the session has been terminated.
func (s Session) Closed() bool {
	return s.ClosedAt != nil
}

// LoginSession is the browser-side SSO record, orthogonal to Session: it
// tracks cookie-based logins independent of any issued OAuth token.
type LoginSession struct {
	ID        uuid.UUID
	RealmID   uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	IPAddress net.IP
	UserAgent string
	ExpiresAt time.Time
}

// RefreshToken is an opaque, hash-indexed rotation record. VALID -> REVOKED
// is its only transition; expiry is observed at read time. Scope is the
// scope that was actually granted when this rotation was minted, carried
// forward (and only ever narrowed) across rotations so a bare refresh
// request can fall back to it per §4.9.
type RefreshToken struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	RevokedAt *time.Time
	IsOffline bool
	Scope     string
}

// Expired reports whether the token is past its TTL as of now.
func (t RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
