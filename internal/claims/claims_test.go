package claims

import (
	"testing"

	"github.com/google/uuid"

	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

func TestResolveFullSet(t *testing.T) {
	u := domain.User{
		ID:            uuid.New(),
		Username:      "jdoe",
		Email:         "jdoe@example.com",
		EmailVerified: true,
		FirstName:     "Jane",
		LastName:      "Doe",
	}
	allowed := map[string]bool{
		"sub": true, "preferred_username": true, "email": true,
		"email_verified": true, "given_name": true, "family_name": true, "name": true,
	}

	out := Resolve(u, allowed)

	if out["sub"] != u.ID.String() {
		t.Errorf("sub mismatch: %v", out["sub"])
	}
	if out["preferred_username"] != "jdoe" {
		t.Errorf("preferred_username mismatch: %v", out["preferred_username"])
	}
	if out["name"] != "Jane Doe" {
		t.Errorf("name mismatch: %v", out["name"])
	}
	if out["email_verified"] != true {
		t.Errorf("email_verified mismatch: %v", out["email_verified"])
	}
}

func TestResolveRestrictedByAllowed(t *testing.T) {
	u := domain.User{ID: uuid.New(), Username: "jdoe", Email: "jdoe@example.com"}
	out := Resolve(u, map[string]bool{"sub": true})

	if len(out) != 1 {
		t.Errorf("expected only sub claim, got %v", out)
	}
}

func TestResolveOmitsEmptyAttributes(t *testing.T) {
	u := domain.User{ID: uuid.New()}
	allowed := map[string]bool{"email": true, "given_name": true, "preferred_username": true}

	out := Resolve(u, allowed)
	if len(out) != 0 {
		t.Errorf("expected no claims for empty attributes, got %v", out)
	}
}

func TestResolveNameFallback(t *testing.T) {
	u := domain.User{ID: uuid.New(), FirstName: "Jane"}
	out := Resolve(u, map[string]bool{"name": true})
	if out["name"] != "Jane" {
		t.Errorf("expected fallback to first name only, got %v", out["name"])
	}
}
