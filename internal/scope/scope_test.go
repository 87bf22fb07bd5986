package scope

import (
	"reflect"
	"testing"

	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

func TestParseAndValidate(t *testing.T) {
	got := ParseAndValidate(" openid profile foo openid ")
	want := []string{"openid", "profile"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseAndValidateEmpty(t *testing.T) {
	got := ParseAndValidate("")
	if len(got) != 0 {
		t.Errorf("expected empty slice, got %v", got)
	}
}

func TestClaimsForScopes(t *testing.T) {
	claims := ClaimsForScopes([]string{"openid", "email"})
	for _, want := range []string{"sub", "email", "email_verified"} {
		if !claims[want] {
			t.Errorf("expected claim %q to be present", want)
		}
	}
	if claims["given_name"] {
		t.Error("did not expect given_name without profile scope")
	}
}

func TestHasOpenid(t *testing.T) {
	if !HasOpenid([]string{"profile", "openid"}) {
		t.Error("expected HasOpenid true")
	}
	if HasOpenid([]string{"profile"}) {
		t.Error("expected HasOpenid false")
	}
}

func TestToString(t *testing.T) {
	if got := ToString([]string{"openid", "profile"}); got != "openid profile" {
		t.Errorf("got %q", got)
	}
}

func TestClientEffectiveScopes(t *testing.T) {
	client := domain.Client{
		DefaultScopes:  []string{"openid", "profile"},
		OptionalScopes: []string{"email", "offline_access"},
	}

	got := ClientEffectiveScopes(client, []string{"email", "roles"})
	want := []string{"openid", "profile", "email"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestClientEffectiveScopesNoDuplicateDefault(t *testing.T) {
	client := domain.Client{
		DefaultScopes:  []string{"openid"},
		OptionalScopes: []string{"openid"},
	}
	got := ClientEffectiveScopes(client, []string{"openid"})
	want := []string{"openid"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
