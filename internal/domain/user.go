package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a realm-scoped account.
type User struct {
	ID                uuid.UUID
	RealmID           uuid.UUID
	Username          string
	Email             string
	EmailVerified     bool
	FirstName         string
	LastName          string
	Enabled           bool
	PasswordHash      *string
	PasswordChangedAt *time.Time
	LockedUntil       *time.Time
	FederationLink    *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// FullName applies the §4.3 fallback rule: firstName+" "+lastName, falling
// back to either half when the other is empty.
func (u User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.LastName
	}
}

// Role is a permission label, either realm-scoped (ClientID nil) or
// client-scoped.
type Role struct {
	ID          uuid.UUID
	RealmID     uuid.UUID
	ClientID    *uuid.UUID
	Name        string
	Description string
}

// Group is a node in a realm's group tree. ParentID is nil for root groups.
type Group struct {
	ID       uuid.UUID
	RealmID  uuid.UUID
	Name     string
	ParentID *uuid.UUID
}

// FederatedIdentity links a local user to an external identity-provider
// subject, unique by (IdentityProviderID, ExternalUserID).
type FederatedIdentity struct {
	UserID             uuid.UUID
	IdentityProviderID uuid.UUID
	ExternalUserID     string
}
