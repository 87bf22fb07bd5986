// Package scope implements the C4 scope engine: the static table of
// recognized OIDC scopes and the claim set each grants, plus the
// string-parsing and client-default-scope resolution rules of §4.3.
package scope

import (
	"strings"

	"github.com/google/uuid"

	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

// Openid and friends are the scope names the engine recognizes.
const (
	Openid        = "openid"
	Profile       = "profile"
	Email         = "email"
	Roles         = "roles"
	OfflineAccess = "offline_access"
	WebOrigins    = "web-origins"
)

// claimTable maps each recognized scope to the standard claims it grants.
// offline_access and web-origins are effects, not claim carriers, so they
// map to an empty set.
var claimTable = map[string][]string{
	Openid:        {"sub"},
	Profile:       {"preferred_username", "given_name", "family_name", "name"},
	Email:         {"email", "email_verified"},
	Roles:         {"realm_access", "resource_access"},
	OfflineAccess: {},
	WebOrigins:    {},
}

// ParseAndValidate splits a space-separated scope string, preserves order,
// drops unknown scopes, and dedups repeats.
func ParseAndValidate(raw string) []string {
	fields := strings.Fields(raw)
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, known := claimTable[f]; !known {
			continue
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// ClaimsForScopes returns the union of standard claims granted by scopes.
func ClaimsForScopes(scopes []string) map[string]bool {
	out := make(map[string]bool)
	for _, s := range scopes {
		for _, c := range claimTable[s] {
			out[c] = true
		}
	}
	return out
}

// HasOpenid reports whether scopes contains "openid".
func HasOpenid(scopes []string) bool {
	for _, s := range scopes {
		if s == Openid {
			return true
		}
	}
	return false
}

// ToString joins scopes with a single space, the wire format used in
// token requests and responses.
func ToString(scopes []string) string {
	return strings.Join(scopes, " ")
}

// ClientEffectiveScopes returns the union of a client's configured default
// scopes and the intersection of requested with the client's configured
// optional scopes.
func ClientEffectiveScopes(client domain.Client, requested []string) []string {
	seen := make(map[string]bool, len(client.DefaultScopes))
	out := make([]string, 0, len(client.DefaultScopes)+len(requested))
	for _, s := range client.DefaultScopes {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	optional := make(map[string]bool, len(client.OptionalScopes))
	for _, s := range client.OptionalScopes {
		optional[s] = true
	}
	for _, s := range requested {
		if optional[s] && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// IntersectRequested returns the scopes in requested that are also present
// in granted, preserving requested's order. The refresh_token grant uses
// this to narrow — never widen — the scope of a rotated token against
// whatever was actually granted when the token it replaces was minted.
func IntersectRequested(requested, granted []string) []string {
	grantedSet := make(map[string]bool, len(granted))
	for _, s := range granted {
		grantedSet[s] = true
	}
	out := make([]string, 0, len(requested))
	for _, s := range requested {
		if grantedSet[s] {
			out = append(out, s)
		}
	}
	return out
}

// MapperStore resolves the protocol mappers activated by a set of scope
// names within a realm. Implemented by internal/store.
type MapperStore interface {
	ScopeMappers(realmID uuid.UUID, scopeNames []string) ([]domain.ProtocolMapper, error)
}

// ScopeMappers fetches the protocol mappers that apply to scopeNames
// within realmID via the supplied store.
func ScopeMappers(store MapperStore, realmID uuid.UUID, scopeNames []string) ([]domain.ProtocolMapper, error) {
	return store.ScopeMappers(realmID, scopeNames)
}
