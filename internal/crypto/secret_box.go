// Package crypto provides the C1 primitives: password hashing, constant-time
// verification, random secret generation, and envelope encryption for
// identity-provider client secrets at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// SealIdPSecret encrypts an external identity-provider client secret using
// AES-256-GCM. The master key is loaded from IDP_SECRET_KEY (32 bytes, hex
// encoded). The result is base64, prefixed "enc:" for storage identification.
func SealIdPSecret(plaintext string) (string, error) {
	key, err := loadKey("IDP_SECRET_KEY")
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM mode: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return "enc:" + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// OpenIdPSecret decrypts a value produced by SealIdPSecret or
// OpenIdPSecretV(ciphertext, 1).
func OpenIdPSecret(ciphertextB64 string) (string, error) {
	return OpenIdPSecretV(ciphertextB64, 1)
}

// OpenIdPSecretV decrypts using a versioned key (IDP_SECRET_KEY for version
// 1, IDP_SECRET_KEY_V<n> for later versions), to support key rotation:
// deploy the new key alongside the old one, re-seal existing secrets in the
// background, then retire the old env var.
func OpenIdPSecretV(ciphertextB64 string, keyVersion int) (string, error) {
	if len(ciphertextB64) < 4 || ciphertextB64[:4] != "enc:" {
		return "", fmt.Errorf("invalid encrypted format")
	}

	envVar := "IDP_SECRET_KEY"
	if keyVersion > 1 {
		envVar = fmt.Sprintf("IDP_SECRET_KEY_V%d", keyVersion)
	}

	key, err := loadKey(envVar)
	if err != nil {
		return "", err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64[4:])
	if err != nil {
		return "", fmt.Errorf("invalid base64 encoding: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}
	return string(plaintext), nil
}

func loadKey(envVar string) ([]byte, error) {
	keyHex := os.Getenv(envVar)
	if len(keyHex) != 64 {
		return nil, fmt.Errorf("%s must be exactly 32 bytes (64 hex characters)", envVar)
	}
	key := make([]byte, 32)
	n, err := hex.Decode(key, []byte(keyHex))
	if err != nil {
		return nil, fmt.Errorf("invalid %s format (must be hex): %w", envVar, err)
	}
	if n != 32 {
		return nil, fmt.Errorf("%s decoded to %d bytes, expected 32", envVar, n)
	}
	return key, nil
}

// GenerateKey generates a new 32-byte AES key in hex, for IDP_SECRET_KEY.
func GenerateKey() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate random key: %w", err)
	}
	return hex.EncodeToString(key), nil
}
