// Package domain holds the entity types owned by a realm: the tenant
// boundary for users, clients, roles, groups, signing keys, sessions and
// the ephemeral records the grant pipeline produces.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Realm is the top-level tenant boundary. Its name is the issuer path
// segment and, once a token has been signed under it, is immutable.
type Realm struct {
	ID          uuid.UUID
	Name        string
	DisplayName string
	Enabled     bool

	AccessTokenLifespan  time.Duration
	RefreshTokenLifespan time.Duration
	OfflineTokenLifespan time.Duration

	PasswordPolicy PasswordPolicyConfig
	BruteForce     BruteForceConfig

	MFARequired bool
	Theme       []byte

	CreatedAt time.Time
}

// PasswordPolicyConfig holds a realm's password-strength and rotation rules.
type PasswordPolicyConfig struct {
	MinLength            int
	RequireUppercase     bool
	RequireLowercase     bool
	RequireDigits        bool
	RequireSpecial       bool
	PasswordHistoryCount int
	PasswordMaxAgeDays   int
}

// BruteForceConfig holds a realm's login-lockout rules.
type BruteForceConfig struct {
	Enabled               bool
	MaxLoginFailures      int
	LockoutDuration       time.Duration
	FailureResetTime      time.Duration
	PermanentLockoutAfter int
}

// SigningKey is an RSA keypair used to sign tokens for a realm. Exactly one
// key per realm is Active at any moment; inactive keys remain for
// verification until retired.
type SigningKey struct {
	ID         uuid.UUID
	RealmID    uuid.UUID
	Kid        string
	Algorithm  string // fixed "RS256"
	PublicKey  string // SPKI PEM
	PrivateKey string // PKCS8 PEM
	Active     bool
	CreatedAt  time.Time
}
