// Package mfa implements the C9 MFA engine: TOTP enrollment and
// activation, OTP and recovery-code verification, and the single-use
// MFA challenge-token lifecycle.
package mfa

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/Islamawad132/Authme-sub001/internal/crypto"
	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

const (
	credentialTypeTOTP  = "totp"
	recoveryCodeCount   = 10
	challengeTTL        = 5 * time.Minute
	maxChallengeRetries = 5
)

// ErrNoPendingCredential is returned by Activate when the user has no
// unverified enrollment in progress.
var ErrNoPendingCredential = errors.New("no pending mfa enrollment")

// ErrInvalidCode is returned for a failed OTP or recovery-code check.
var ErrInvalidCode = errors.New("invalid mfa code")

// ErrChallengeExhausted is returned once a challenge has exceeded its
// retry budget; the record is left alive so callers can observe it but
// it can never succeed again.
var ErrChallengeExhausted = errors.New("mfa challenge retry limit exceeded")

// CredentialStore persists TOTP credentials, unique by (userID, type).
type CredentialStore interface {
	Get(userID uuid.UUID, credType string) (domain.UserCredential, bool, error)
	DeleteUnverified(userID uuid.UUID, credType string) error
	Put(cred domain.UserCredential) error
}

// RecoveryCodeStore persists a user's MFA recovery codes.
type RecoveryCodeStore interface {
	ReplaceAll(userID uuid.UUID, codes []domain.RecoveryCode) error
	FirstUnused(userID uuid.UUID) (domain.RecoveryCode, bool, error)
	MarkUsed(userID uuid.UUID, codeHash string) error
}

// ChallengeStore persists PendingAction records for the MFA challenge flow.
// Method names are distinct from CredentialStore's Get/Put so a single
// backing store type can implement both without a method-set collision.
type ChallengeStore interface {
	GetChallenge(tokenHash string) (domain.PendingAction, bool, error)
	PutChallenge(action domain.PendingAction) error
	DeleteChallenge(tokenHash string) error
}

// EnrollResult is returned by Enroll.
type EnrollResult struct {
	Secret     string
	OtpauthURL string
}

// Enroll deletes any prior unverified credential for the user, allocates a
// fresh TOTP secret, and persists an unverified credential record.
func Enroll(store CredentialStore, userID uuid.UUID, username, realmName, appName string) (EnrollResult, error) {
	if err := store.DeleteUnverified(userID, credentialTypeTOTP); err != nil {
		return EnrollResult{}, fmt.Errorf("failed to clear prior enrollment: %w", err)
	}

	secret := make([]byte, 20)
	if _, err := rand.Read(secret); err != nil {
		return EnrollResult{}, fmt.Errorf("failed to generate totp secret: %w", err)
	}
	encodedSecret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(secret)

	key, err := otp.NewKeyFromURL(buildOtpauthURL(encodedSecret, username, realmName, appName))
	if err != nil {
		return EnrollResult{}, fmt.Errorf("failed to build otpauth key: %w", err)
	}

	if err := store.Put(domain.UserCredential{
		UserID:    userID,
		Type:      credentialTypeTOTP,
		SecretKey: encodedSecret,
		Algorithm: "SHA1",
		Digits:    6,
		Period:    30,
		Verified:  false,
	}); err != nil {
		return EnrollResult{}, fmt.Errorf("failed to persist enrollment: %w", err)
	}

	return EnrollResult{Secret: encodedSecret, OtpauthURL: key.String()}, nil
}

func buildOtpauthURL(secret, username, realmName, appName string) string {
	issuer := fmt.Sprintf("%s (%s)", appName, realmName)
	return fmt.Sprintf(
		"otpauth://totp/%s:%s?secret=%s&issuer=%s&algorithm=SHA1&digits=6&period=30",
		urlEscape(issuer), urlEscape(username), secret, urlEscape(issuer),
	)
}

func urlEscape(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, " ", "%20"), ":", "%3A")
}

// Activate validates code against the pending (unverified) credential,
// marks it verified on success, and generates a fresh set of 10 recovery
// codes. On failure, no state is modified.
func Activate(credStore CredentialStore, recStore RecoveryCodeStore, userID uuid.UUID, code string) ([]string, error) {
	cred, found, err := credStore.Get(userID, credentialTypeTOTP)
	if err != nil {
		return nil, err
	}
	if !found || cred.Verified {
		return nil, ErrNoPendingCredential
	}

	if !totp.Validate(code, cred.SecretKey) {
		return nil, ErrInvalidCode
	}

	cred.Verified = true
	if err := credStore.Put(cred); err != nil {
		return nil, err
	}

	plainCodes, err := generateRecoveryCodes(recoveryCodeCount)
	if err != nil {
		return nil, err
	}

	hashed := make([]domain.RecoveryCode, len(plainCodes))
	for i, c := range plainCodes {
		hashed[i] = domain.RecoveryCode{UserID: userID, CodeHash: hashRecoveryCode(c)}
	}
	if err := recStore.ReplaceAll(userID, hashed); err != nil {
		return nil, err
	}

	return plainCodes, nil
}

// VerifyTotp checks code against the user's verified TOTP credential only.
func VerifyTotp(store CredentialStore, userID uuid.UUID, code string) (bool, error) {
	cred, found, err := store.Get(userID, credentialTypeTOTP)
	if err != nil {
		return false, err
	}
	if !found || !cred.Verified {
		return false, nil
	}
	return totp.Validate(code, cred.SecretKey), nil
}

// VerifyRecoveryCode normalizes code (lowercase, whitespace stripped),
// hashes it, and compares it against the user's first unused recovery
// code only; on a match it marks that code used.
func VerifyRecoveryCode(store RecoveryCodeStore, userID uuid.UUID, code string) (bool, error) {
	normalized := normalizeRecoveryCode(code)
	hash := crypto.SHA256(normalized)

	existing, found, err := store.FirstUnused(userID)
	if err != nil {
		return false, err
	}
	if !found || existing.CodeHash != hash {
		return false, nil
	}

	if err := store.MarkUsed(userID, hash); err != nil {
		return false, err
	}
	return true, nil
}

func normalizeRecoveryCode(code string) string {
	return strings.ToLower(strings.Join(strings.Fields(code), ""))
}

func hashRecoveryCode(code string) string {
	return crypto.SHA256(normalizeRecoveryCode(code))
}

func generateRecoveryCodes(count int) ([]string, error) {
	const chars = "abcdefghjkmnpqrstuvwxyz23456789"
	codes := make([]string, count)
	for i := 0; i < count; i++ {
		buf := make([]byte, 8)
		for j := range buf {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
			if err != nil {
				return nil, fmt.Errorf("failed to generate recovery code: %w", err)
			}
			buf[j] = chars[n.Int64()]
		}
		codes[i] = string(buf[:4]) + "-" + string(buf[4:])
	}
	return codes, nil
}

// ChallengeData is the opaque payload carried by an MFA challenge
// PendingAction, preserved across the password-grant -> mfa_otp-grant
// handoff.
type ChallengeData struct {
	UserID      uuid.UUID
	RealmID     uuid.UUID
	OauthParams map[string]string
	Attempts    int
}

// CreateChallenge mints an opaque 32-byte challenge token and stores its
// hash as a PendingAction with a 5-minute TTL.
func CreateChallenge(store ChallengeStore, userID, realmID uuid.UUID, oauthParams map[string]string) (string, error) {
	token, err := crypto.GenerateSecret(32)
	if err != nil {
		return "", err
	}

	data := map[string]any{
		"userId":      userID.String(),
		"realmId":     realmID.String(),
		"oauthParams": oauthParams,
		"attempts":    0,
	}

	if err := store.PutChallenge(domain.PendingAction{
		TokenHash: crypto.SHA256(token),
		Type:      "mfa_challenge",
		Data:      data,
		ExpiresAt: time.Now().Add(challengeTTL),
	}); err != nil {
		return "", err
	}
	return token, nil
}

// PeekChallenge resolves a challenge's data without consuming it, so a
// caller can verify the submitted code before deciding whether to
// ConsumeChallenge (success) or TouchChallengeFailure (wrong code).
func PeekChallenge(store ChallengeStore, token string) (ChallengeData, error) {
	hash := crypto.SHA256(token)
	action, found, err := store.GetChallenge(hash)
	if err != nil {
		return ChallengeData{}, err
	}
	if !found || action.Expired(time.Now()) {
		return ChallengeData{}, ErrInvalidCode
	}
	return decodeChallengeData(action.Data)
}

// ConsumeChallenge validates and deletes a challenge token (single-use).
// Returns ErrInvalidCode if the token is unknown or expired.
func ConsumeChallenge(store ChallengeStore, token string) (ChallengeData, error) {
	hash := crypto.SHA256(token)
	action, found, err := store.GetChallenge(hash)
	if err != nil {
		return ChallengeData{}, err
	}
	if !found || action.Expired(time.Now()) {
		return ChallengeData{}, ErrInvalidCode
	}

	if err := store.DeleteChallenge(hash); err != nil {
		return ChallengeData{}, err
	}
	return decodeChallengeData(action.Data)
}

// TouchChallengeFailure increments the challenge's attempt counter without
// consuming it, so the caller can retry. Once attempts exceeds 5, it
// returns ErrChallengeExhausted and leaves the record alive (unchanged
// TTL) so it simply expires naturally.
func TouchChallengeFailure(store ChallengeStore, token string) error {
	hash := crypto.SHA256(token)
	action, found, err := store.GetChallenge(hash)
	if err != nil {
		return err
	}
	if !found || action.Expired(time.Now()) {
		return ErrInvalidCode
	}

	attempts, ok := action.Data["attempts"].(int)
	if f, isFloat := action.Data["attempts"].(float64); !ok && isFloat {
		attempts = int(f)
	}
	attempts++
	action.Data["attempts"] = attempts

	if err := store.PutChallenge(action); err != nil {
		return err
	}
	if attempts > maxChallengeRetries {
		return ErrChallengeExhausted
	}
	return nil
}

func decodeChallengeData(data map[string]any) (ChallengeData, error) {
	userIDStr, _ := data["userId"].(string)
	realmIDStr, _ := data["realmId"].(string)

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return ChallengeData{}, fmt.Errorf("malformed challenge data: %w", err)
	}
	realmID, err := uuid.Parse(realmIDStr)
	if err != nil {
		return ChallengeData{}, fmt.Errorf("malformed challenge data: %w", err)
	}

	params, ok := data["oauthParams"].(map[string]string)
	if raw, isMap := data["oauthParams"].(map[string]any); !ok && isMap {
		params = make(map[string]string, len(raw))
		for k, v := range raw {
			if s, isStr := v.(string); isStr {
				params[k] = s
			}
		}
	}
	attempts, ok := data["attempts"].(int)
	if f, isFloat := data["attempts"].(float64); !ok && isFloat {
		attempts = int(f)
	}

	return ChallengeData{
		UserID:      userID,
		RealmID:     realmID,
		OauthParams: params,
		Attempts:    attempts,
	}, nil
}
