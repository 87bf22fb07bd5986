// Package mapper implements the C6 protocol-mapper executor: it applies a
// realm's configured protocol mappers to a token payload, dispatching by
// mapper type.
package mapper

import (
	"github.com/google/uuid"

	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

// Context carries the user and role attributes mappers read from.
type Context struct {
	UserID         uuid.UUID
	Username       string
	Email          string
	EmailVerified  bool
	FirstName      string
	LastName       string
	RealmRoles     []string
	ResourceAccess map[string][]string // clientId -> roles
}

// attr returns a named context attribute, mirroring the
// "user.attribute" config key used by oidc-usermodel-attribute-mapper.
func (c Context) attr(name string) (any, bool) {
	switch name {
	case "username":
		if c.Username == "" {
			return nil, false
		}
		return c.Username, true
	case "email":
		if c.Email == "" {
			return nil, false
		}
		return c.Email, true
	case "emailVerified":
		return c.EmailVerified, true
	case "firstName":
		if c.FirstName == "" {
			return nil, false
		}
		return c.FirstName, true
	case "lastName":
		if c.LastName == "" {
			return nil, false
		}
		return c.LastName, true
	default:
		return nil, false
	}
}

func fullName(firstName, lastName string) string {
	switch {
	case firstName != "" && lastName != "":
		return firstName + " " + lastName
	case firstName != "":
		return firstName
	default:
		return lastName
	}
}

// Apply runs mappers in order against ctx, mutating payload in place.
// Mapper failures (missing required config) are swallowed per §4.4:
// execution continues with the remaining mappers and standard claims.
func Apply(mappers []domain.ProtocolMapper, ctx Context, payload map[string]any) {
	for _, m := range mappers {
		applyOne(m, ctx, payload)
	}
}

func applyOne(m domain.ProtocolMapper, ctx Context, payload map[string]any) {
	switch m.MapperType {
	case domain.MapperUserAttribute:
		attrName := m.Config["user.attribute"]
		claimName := m.Config["claim.name"]
		if attrName == "" || claimName == "" {
			return
		}
		if v, ok := ctx.attr(attrName); ok {
			payload[claimName] = v
		}

	case domain.MapperHardcodedClaim:
		claimName, hasName := m.Config["claim.name"]
		claimValue, hasValue := m.Config["claim.value"]
		if !hasName || !hasValue || claimName == "" {
			return
		}
		payload[claimName] = claimValue

	case domain.MapperRoleList:
		claimName := m.Config["claim.name"]
		if claimName != "" && claimName != "realm_access" {
			return
		}
		payload["realm_access"] = map[string]any{"roles": ctx.RealmRoles}
		payload["resource_access"] = resourceAccessPayload(ctx.ResourceAccess)

	case domain.MapperAudience:
		aud := m.Config["included.client.audience"]
		if aud == "" {
			return
		}
		mergeAudience(payload, aud)

	case domain.MapperFullName:
		payload["name"] = fullName(ctx.FirstName, ctx.LastName)

	default:
		// Unknown mapper types are silently ignored.
	}
}

func resourceAccessPayload(resourceAccess map[string][]string) map[string]any {
	out := make(map[string]any, len(resourceAccess))
	for clientID, roles := range resourceAccess {
		out[clientID] = map[string]any{"roles": roles}
	}
	return out
}

func mergeAudience(payload map[string]any, audience string) {
	switch existing := payload["aud"].(type) {
	case nil:
		payload["aud"] = audience
	case string:
		payload["aud"] = []string{existing, audience}
	case []string:
		payload["aud"] = append(existing, audience)
	case []any:
		payload["aud"] = append(existing, audience)
	default:
		payload["aud"] = audience
	}
}
