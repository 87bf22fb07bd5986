package mapper

import (
	"reflect"
	"testing"

	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

func TestApplyUserAttributeMapper(t *testing.T) {
	m := domain.ProtocolMapper{
		MapperType: domain.MapperUserAttribute,
		Config:     map[string]string{"user.attribute": "email", "claim.name": "email"},
	}
	ctx := Context{Email: "u@example.com"}
	payload := map[string]any{}

	Apply([]domain.ProtocolMapper{m}, ctx, payload)

	if payload["email"] != "u@example.com" {
		t.Errorf("got %v", payload["email"])
	}
}

func TestApplyUserAttributeMapperMissingAttribute(t *testing.T) {
	m := domain.ProtocolMapper{
		MapperType: domain.MapperUserAttribute,
		Config:     map[string]string{"user.attribute": "email", "claim.name": "email"},
	}
	ctx := Context{}
	payload := map[string]any{}

	Apply([]domain.ProtocolMapper{m}, ctx, payload)

	if _, ok := payload["email"]; ok {
		t.Error("expected no claim set for missing attribute")
	}
}

func TestApplyHardcodedClaimMapper(t *testing.T) {
	m := domain.ProtocolMapper{
		MapperType: domain.MapperHardcodedClaim,
		Config:     map[string]string{"claim.name": "tier", "claim.value": ""},
	}
	payload := map[string]any{}

	Apply([]domain.ProtocolMapper{m}, Context{}, payload)

	if v, ok := payload["tier"]; !ok || v != "" {
		t.Errorf("expected empty-string claim to be set, got %v ok=%v", v, ok)
	}
}

func TestApplyRoleListMapper(t *testing.T) {
	m := domain.ProtocolMapper{MapperType: domain.MapperRoleList}
	ctx := Context{
		RealmRoles:     []string{"admin"},
		ResourceAccess: map[string][]string{"my-client": {"editor"}},
	}
	payload := map[string]any{}

	Apply([]domain.ProtocolMapper{m}, ctx, payload)

	realmAccess, ok := payload["realm_access"].(map[string]any)
	if !ok {
		t.Fatalf("expected realm_access map, got %T", payload["realm_access"])
	}
	if !reflect.DeepEqual(realmAccess["roles"], []string{"admin"}) {
		t.Errorf("got %v", realmAccess["roles"])
	}
}

func TestApplyAudienceMapperStringToArray(t *testing.T) {
	m := domain.ProtocolMapper{
		MapperType: domain.MapperAudience,
		Config:     map[string]string{"included.client.audience": "other-client"},
	}
	payload := map[string]any{"aud": "my-client"}

	Apply([]domain.ProtocolMapper{m}, Context{}, payload)

	got, ok := payload["aud"].([]string)
	if !ok {
		t.Fatalf("expected []string aud, got %T", payload["aud"])
	}
	if !reflect.DeepEqual(got, []string{"my-client", "other-client"}) {
		t.Errorf("got %v", got)
	}
}

func TestApplyAudienceMapperAbsent(t *testing.T) {
	m := domain.ProtocolMapper{
		MapperType: domain.MapperAudience,
		Config:     map[string]string{"included.client.audience": "other-client"},
	}
	payload := map[string]any{}

	Apply([]domain.ProtocolMapper{m}, Context{}, payload)

	if payload["aud"] != "other-client" {
		t.Errorf("got %v", payload["aud"])
	}
}

func TestApplyFullNameMapper(t *testing.T) {
	m := domain.ProtocolMapper{MapperType: domain.MapperFullName}
	ctx := Context{FirstName: "Jane", LastName: "Doe"}
	payload := map[string]any{}

	Apply([]domain.ProtocolMapper{m}, ctx, payload)

	if payload["name"] != "Jane Doe" {
		t.Errorf("got %v", payload["name"])
	}
}

func TestApplyUnknownMapperIgnored(t *testing.T) {
	m := domain.ProtocolMapper{MapperType: "unknown-type"}
	payload := map[string]any{"existing": "value"}

	Apply([]domain.ProtocolMapper{m}, Context{}, payload)

	if len(payload) != 1 {
		t.Errorf("expected payload untouched, got %v", payload)
	}
}
