package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuthorizationCode is a single-use code bound to exact client and redirect
// URI, with optional PKCE. ISSUED -> USED is its only transition.
type AuthorizationCode struct {
	ID                  uuid.UUID
	RealmID             uuid.UUID
	Code                string
	ClientID            string
	UserID              uuid.UUID
	RedirectURI         string
	Scope               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string
	Used                bool
	ExpiresAt           time.Time
}

// Expired reports whether the code is past its TTL as of now.
func (c AuthorizationCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// DeviceCode binds a human-readable user code to a device polling loop.
// PENDING -> (APPROVED|DENIED|EXPIRED) -> CONSUMED, where consumption
// deletes the record on successful token issuance.
type DeviceCode struct {
	RealmID      uuid.UUID
	DeviceCode   string
	UserCode     string
	ClientID     string
	Scope        string
	Interval     time.Duration
	ExpiresAt    time.Time
	Approved     bool
	Denied       bool
	UserID       *uuid.UUID
	LastPolledAt time.Time
	CreatedAt    time.Time
}

// Expired reports whether the device code is past its TTL as of now.
func (d DeviceCode) Expired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}

// PendingAction is a single-use, TTL-bounded record used for MFA challenges
// and similar one-shot flows. Data is an opaque JSON-ish payload understood
// by the component that created it.
type PendingAction struct {
	TokenHash string
	Type      string
	Data      map[string]any
	ExpiresAt time.Time
}

// Expired reports whether the pending action is past its TTL as of now.
func (p PendingAction) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
