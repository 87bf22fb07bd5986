// Package session implements the C13 session lifecycle: opening an OAuth
// session when a subject authenticates, and closing it (and everything
// issued against it) on logout or revocation.
package session

import (
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

// Store is the narrow session-lifecycle dependency; implemented by
// internal/store.SessionStore (and RefreshTokenStore for CloseWithTokens).
type Store interface {
	PutSession(session domain.Session) error
	GetSession(id uuid.UUID) (domain.Session, bool, error)
	CloseSession(id uuid.UUID) error
}

// RefreshTokenRevoker lets Close cascade to every refresh token issued
// against the session, as the OPEN -> CLOSED transition (spec §4.14)
// requires.
type RefreshTokenRevoker interface {
	RevokeAllInSession(sessionID uuid.UUID) error
}

// Open creates a new Session for userID under clientID, with the given
// TTL (the realm's refreshTokenLifespan per §4.9 step 7).
func Open(store Store, realmID, userID uuid.UUID, clientID string, ttl time.Duration, ip net.IP, userAgent string) (domain.Session, error) {
	now := time.Now()
	sess := domain.Session{
		ID:        uuid.New(),
		RealmID:   realmID,
		UserID:    userID,
		ClientID:  clientID,
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := store.PutSession(sess); err != nil {
		return domain.Session{}, err
	}
	return sess, nil
}

// Close terminates a session and revokes every refresh token issued
// against it (logout, §4.11).
func Close(store Store, revoker RefreshTokenRevoker, sessionID uuid.UUID) error {
	if err := revoker.RevokeAllInSession(sessionID); err != nil {
		return err
	}
	return store.CloseSession(sessionID)
}

// Valid reports whether a session can still have tokens issued or
// introspected against it: it must exist, not be closed, and not be
// past its own expiry.
func Valid(store Store, sessionID uuid.UUID, now time.Time) (domain.Session, bool, error) {
	sess, found, err := store.GetSession(sessionID)
	if err != nil || !found {
		return domain.Session{}, false, err
	}
	if sess.Closed() || now.After(sess.ExpiresAt) {
		return sess, false, nil
	}
	return sess, true, nil
}
