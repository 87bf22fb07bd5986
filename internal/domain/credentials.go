package domain

import (
	"time"

	"github.com/google/uuid"
)

// PasswordHistory is a single retired password hash kept for the realm's
// password-history check. Trimmed to the newest N per user.
type PasswordHistory struct {
	UserID       uuid.UUID
	RealmID      uuid.UUID
	PasswordHash string
	CreatedAt    time.Time
}

// UserCredential is a TOTP secret, unique per (UserID, Type).
type UserCredential struct {
	UserID    uuid.UUID
	Type      string // "totp"
	SecretKey string // base32
	Algorithm string // "SHA1"
	Digits    int
	Period    int
	Verified  bool
}

// RecoveryCode is a single MFA backup code, identified by its hash.
type RecoveryCode struct {
	UserID   uuid.UUID
	CodeHash string
	Used     bool
}

// ProtocolMapperType enumerates the supported C6 mapper dispatch keys.
type ProtocolMapperType string

const (
	MapperUserAttribute  ProtocolMapperType = "oidc-usermodel-attribute-mapper"
	MapperHardcodedClaim ProtocolMapperType = "oidc-hardcoded-claim-mapper"
	MapperRoleList       ProtocolMapperType = "oidc-role-list-mapper"
	MapperAudience       ProtocolMapperType = "oidc-audience-mapper"
	MapperFullName       ProtocolMapperType = "oidc-full-name-mapper"
)

// ProtocolMapper is a configured transform applied by the C6 executor to a
// token payload for a given scope.
type ProtocolMapper struct {
	ID         uuid.UUID
	RealmID    uuid.UUID
	Name       string
	MapperType ProtocolMapperType
	ScopeName  string // which scope activates this mapper
	Config     map[string]string
}

// IdentityProvider is the opaque external-IdP configuration consumed by the
// C16 broker.
type IdentityProvider struct {
	ID               uuid.UUID
	RealmID          uuid.UUID
	Alias            string
	Enabled          bool
	AuthorizationURL string
	TokenURL         string
	UserInfoURL      string
	ClientID         string
	ClientSecretEnc  string // AES-GCM sealed, see internal/crypto
	DefaultScopes    string
	TrustEmail       bool
	SyncUserProfile  bool
	LinkOnly         bool
}
