// Package claims implements the C5 claims resolver: it takes a user
// record and a set of allowed claim names and returns the subset of
// standard OIDC claims present for that user, never emitting a null for
// a missing attribute.
package claims

import (
	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

// Resolve maps user fields to standard OIDC claim names, restricted to
// those present in allowed, per §4.3. Empty-string attributes are treated
// as missing and omitted.
func Resolve(user domain.User, allowed map[string]bool) map[string]any {
	out := make(map[string]any)

	if allowed["sub"] {
		out["sub"] = user.ID.String()
	}
	if allowed["preferred_username"] && user.Username != "" {
		out["preferred_username"] = user.Username
	}
	if allowed["email"] && user.Email != "" {
		out["email"] = user.Email
	}
	if allowed["email_verified"] && user.Email != "" {
		out["email_verified"] = user.EmailVerified
	}
	if allowed["given_name"] && user.FirstName != "" {
		out["given_name"] = user.FirstName
	}
	if allowed["family_name"] && user.LastName != "" {
		out["family_name"] = user.LastName
	}
	if allowed["name"] {
		if name := user.FullName(); name != "" {
			out["name"] = name
		}
	}

	return out
}
