package crypto

import (
	"testing"
)

func TestSealOpenIdPSecret(t *testing.T) {
	testKey := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	t.Setenv("IDP_SECRET_KEY", testKey)

	plaintext := "MySuperSecretClientSecret123!"

	sealed, err := SealIdPSecret(plaintext)
	if err != nil {
		t.Fatalf("SealIdPSecret failed: %v", err)
	}

	if len(sealed) < 5 || sealed[:4] != "enc:" {
		t.Errorf("sealed output missing 'enc:' prefix: %s", sealed)
	}

	opened, err := OpenIdPSecret(sealed)
	if err != nil {
		t.Fatalf("OpenIdPSecret failed: %v", err)
	}

	if opened != plaintext {
		t.Errorf("roundtrip mismatch.\nGot: %s\nWant: %s", opened, plaintext)
	}
}

func TestOpenIdPSecret_InvalidFormat(t *testing.T) {
	t.Setenv("IDP_SECRET_KEY", "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")

	_, err := OpenIdPSecret("plaintext secret")
	if err == nil {
		t.Error("expected error for plaintext input, got nil")
	}
}

func TestOpenIdPSecret_TamperedData(t *testing.T) {
	testKey := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	t.Setenv("IDP_SECRET_KEY", testKey)

	sealed, _ := SealIdPSecret("test")
	tampered := sealed[:len(sealed)-5] + "XXXXX"

	_, err := OpenIdPSecret(tampered)
	if err == nil {
		t.Error("expected error for tampered ciphertext, got nil")
	}
}

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	if len(key) != 64 {
		t.Errorf("generated key has wrong length. got %d, want 64", len(key))
	}

	for _, c := range key {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Errorf("generated key contains non-hex character: %c", c)
			break
		}
	}
}

func TestOpenIdPSecretV_Version2(t *testing.T) {
	keyV1 := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	keyV2 := "fedcba9876543210fedcba9876543210fedcba9876543210fedcba9876543210"

	t.Setenv("IDP_SECRET_KEY", keyV1)
	t.Setenv("IDP_SECRET_KEY_V2", keyV2)

	plaintext := "PasswordWithV2Key"

	t.Setenv("IDP_SECRET_KEY", keyV2)
	sealedV2, err := SealIdPSecret(plaintext)
	if err != nil {
		t.Fatalf("seal with v2 key failed: %v", err)
	}
	t.Setenv("IDP_SECRET_KEY", keyV1)

	opened, err := OpenIdPSecretV(sealedV2, 2)
	if err != nil {
		t.Fatalf("open with v2 key failed: %v", err)
	}

	if opened != plaintext {
		t.Errorf("mismatch. got: %s, want: %s", opened, plaintext)
	}
}
