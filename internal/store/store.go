// Package store defines the repository-interface layer every stateful
// component depends on. Interfaces live here rather than alongside each
// caller because several components (grant, introspect, broker,
// devicecode) share the same underlying entities; memstore and pgstore
// are the two concrete implementations. Method names are disambiguated
// per entity (PutRealm, PutClient, ...) so a single backing store type
// can implement every interface without colliding method sets.
package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

// RealmStore resolves realms by name or ID.
type RealmStore interface {
	GetByName(name string) (domain.Realm, bool, error)
	GetRealmByID(id uuid.UUID) (domain.Realm, bool, error)
	PutRealm(realm domain.Realm) error
}

// SigningKeyStore persists realm signing keys. ActiveKey returns the most
// recently created active key (tokensvc.ErrNoActiveSigningKey analog,
// surfaced via the bool return here and wrapped by callers).
type SigningKeyStore interface {
	ActiveKey(realmID uuid.UUID) (domain.SigningKey, bool, error)
	KeyByKid(realmID uuid.UUID, kid string) (domain.SigningKey, bool, error)
	PutSigningKey(key domain.SigningKey) error
}

// ClientStore resolves OAuth/OIDC clients within a realm.
type ClientStore interface {
	GetByClientID(realmID uuid.UUID, clientID string) (domain.Client, bool, error)
	GetClientByRowID(id uuid.UUID) (domain.Client, bool, error)
	PutClient(client domain.Client) error
}

// UserStore resolves users within a realm.
type UserStore interface {
	GetByUsername(realmID uuid.UUID, username string) (domain.User, bool, error)
	GetByEmail(realmID uuid.UUID, email string) (domain.User, bool, error)
	GetUserByID(id uuid.UUID) (domain.User, bool, error)
	PutUser(user domain.User) error
}

// RoleStore resolves a user's direct and group-inherited roles.
type RoleStore interface {
	DirectRoles(userID uuid.UUID) ([]domain.Role, error)
	GroupRoles(groupID uuid.UUID) ([]domain.Role, error)
	UserGroups(userID uuid.UUID) ([]domain.Group, error)
	ParentGroup(groupID uuid.UUID) (domain.Group, bool, error)
}

// SessionStore persists OAuth sessions (C13).
type SessionStore interface {
	GetSession(id uuid.UUID) (domain.Session, bool, error)
	PutSession(session domain.Session) error
	CloseSession(id uuid.UUID) error
}

// RefreshTokenStore persists opaque, hash-indexed refresh-token rotation
// records (C10).
type RefreshTokenStore interface {
	GetByHash(tokenHash string) (domain.RefreshToken, bool, error)
	InsertRefreshToken(token domain.RefreshToken) error
	// MarkRevoked revokes id via a compare-and-set gated on revoked=false
	// and reports whether this call won the race — false means another
	// caller (concurrent rotation, or a prior revoke) already claimed it.
	MarkRevoked(id uuid.UUID) (bool, error)
	RevokeAllInSession(sessionID uuid.UUID) error
}

// ErrRefreshTokenInvalid covers unknown, expired, or already-revoked
// refresh tokens.
var ErrRefreshTokenInvalid = errFn("refresh token is invalid, expired, or revoked")

// ErrRefreshTokenReused is returned when Rotate detects the token was
// already consumed — the entire session has been revoked in response.
var ErrRefreshTokenReused = errFn("refresh token reuse detected; session revoked")

type storeError string

func (e storeError) Error() string { return string(e) }

func errFn(msg string) error { return storeError(msg) }

// RotateRefreshToken implements the C10 rotation contract: lookup by hash,
// reject if missing/expired, detect reuse (the token exists but is already
// revoked) by revoking the entire session and failing, or else revoke this
// token and issue a fresh one in the same session. MarkRevoked's
// compare-and-set means a concurrent caller racing the same token loses
// here exactly as if it had arrived after the winner, rather than both
// succeeding. resolveScope computes the rotated token's scope from the
// scope recorded against the token being rotated away, implementing
// §4.9's refresh-grant scope-narrowing rule without this function needing
// to know anything about scope syntax itself.
func RotateRefreshToken(rtStore RefreshTokenStore, tokenHash string, newTokenHash string, refreshLifespan, offlineLifespan time.Duration, resolveScope func(existingScope string) string) (domain.RefreshToken, error) {
	existing, found, err := rtStore.GetByHash(tokenHash)
	if err != nil {
		return domain.RefreshToken{}, err
	}
	if !found {
		return domain.RefreshToken{}, ErrRefreshTokenInvalid
	}

	if existing.Revoked {
		_ = rtStore.RevokeAllInSession(existing.SessionID)
		return domain.RefreshToken{}, ErrRefreshTokenReused
	}

	now := time.Now()
	if existing.Expired(now) {
		return domain.RefreshToken{}, ErrRefreshTokenInvalid
	}

	won, err := rtStore.MarkRevoked(existing.ID)
	if err != nil {
		return domain.RefreshToken{}, err
	}
	if !won {
		_ = rtStore.RevokeAllInSession(existing.SessionID)
		return domain.RefreshToken{}, ErrRefreshTokenReused
	}

	lifespan := refreshLifespan
	if existing.IsOffline {
		lifespan = offlineLifespan
	}

	next := domain.RefreshToken{
		ID:        uuid.New(),
		SessionID: existing.SessionID,
		TokenHash: newTokenHash,
		ExpiresAt: now.Add(lifespan),
		IsOffline: existing.IsOffline,
		Scope:     resolveScope(existing.Scope),
	}
	if err := rtStore.InsertRefreshToken(next); err != nil {
		return domain.RefreshToken{}, err
	}
	return next, nil
}

// AuthCodeStore persists single-use authorization codes (C17).
type AuthCodeStore interface {
	GetByCode(realmID uuid.UUID, code string) (domain.AuthorizationCode, bool, error)
	InsertAuthCode(code domain.AuthorizationCode) error
	// MarkCodeUsed consumes id via a compare-and-set gated on used=false
	// and reports whether this call won the race, so two concurrent
	// redemptions of the same code cannot both succeed.
	MarkCodeUsed(id uuid.UUID) (bool, error)
}

// DeviceCodeStore persists device-authorization-flow polling state (C18).
type DeviceCodeStore interface {
	GetByDeviceCode(realmID uuid.UUID, deviceCode string) (domain.DeviceCode, bool, error)
	GetByUserCode(realmID uuid.UUID, userCode string) (domain.DeviceCode, bool, error)
	InsertDeviceCode(dc domain.DeviceCode) error
	UpdateLastPolledAt(realmID uuid.UUID, deviceCode string, at time.Time) error
	ApproveDeviceCode(realmID uuid.UUID, userCode string, userID uuid.UUID) error
	DenyDeviceCode(realmID uuid.UUID, userCode string) error
	DeleteDeviceCode(realmID uuid.UUID, deviceCode string) error
}

// IdentityProviderStore resolves broker configuration (C16).
type IdentityProviderStore interface {
	GetByAlias(realmID uuid.UUID, alias string) (domain.IdentityProvider, bool, error)
}

// FederatedIdentityStore links local users to external IdP subjects (C16).
type FederatedIdentityStore interface {
	GetByExternalID(idpID uuid.UUID, externalUserID string) (domain.FederatedIdentity, bool, error)
	Link(fi domain.FederatedIdentity) error
}

// LoginSessionStore persists browser-side SSO sessions, orthogonal to
// SessionStore's OAuth sessions.
type LoginSessionStore interface {
	GetLoginSession(tokenHash string) (domain.LoginSession, bool, error)
	PutLoginSession(ls domain.LoginSession) error
	DeleteLoginSession(id uuid.UUID) error
	LoginSessionsByUser(realmID, userID uuid.UUID) ([]domain.LoginSession, error)
}
