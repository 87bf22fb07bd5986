package mfa

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"

	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

type fakeCredStore struct {
	creds map[uuid.UUID]domain.UserCredential
}

func newFakeCredStore() *fakeCredStore {
	return &fakeCredStore{creds: make(map[uuid.UUID]domain.UserCredential)}
}

func (f *fakeCredStore) Get(userID uuid.UUID, credType string) (domain.UserCredential, bool, error) {
	c, ok := f.creds[userID]
	return c, ok, nil
}

func (f *fakeCredStore) DeleteUnverified(userID uuid.UUID, credType string) error {
	if c, ok := f.creds[userID]; ok && !c.Verified {
		delete(f.creds, userID)
	}
	return nil
}

func (f *fakeCredStore) Put(cred domain.UserCredential) error {
	f.creds[cred.UserID] = cred
	return nil
}

type fakeRecoveryStore struct {
	codes map[uuid.UUID][]domain.RecoveryCode
}

func newFakeRecoveryStore() *fakeRecoveryStore {
	return &fakeRecoveryStore{codes: make(map[uuid.UUID][]domain.RecoveryCode)}
}

func (f *fakeRecoveryStore) ReplaceAll(userID uuid.UUID, codes []domain.RecoveryCode) error {
	f.codes[userID] = codes
	return nil
}

func (f *fakeRecoveryStore) FirstUnused(userID uuid.UUID) (domain.RecoveryCode, bool, error) {
	for _, c := range f.codes[userID] {
		if !c.Used {
			return c, true, nil
		}
	}
	return domain.RecoveryCode{}, false, nil
}

func (f *fakeRecoveryStore) MarkUsed(userID uuid.UUID, codeHash string) error {
	for i, c := range f.codes[userID] {
		if c.CodeHash == codeHash {
			f.codes[userID][i].Used = true
			return nil
		}
	}
	return nil
}

type fakeChallengeStore struct {
	actions map[string]domain.PendingAction
}

func newFakeChallengeStore() *fakeChallengeStore {
	return &fakeChallengeStore{actions: make(map[string]domain.PendingAction)}
}

func (f *fakeChallengeStore) GetChallenge(tokenHash string) (domain.PendingAction, bool, error) {
	a, ok := f.actions[tokenHash]
	return a, ok, nil
}

func (f *fakeChallengeStore) PutChallenge(action domain.PendingAction) error {
	f.actions[action.TokenHash] = action
	return nil
}

func (f *fakeChallengeStore) DeleteChallenge(tokenHash string) error {
	delete(f.actions, tokenHash)
	return nil
}

func TestEnrollAndActivate(t *testing.T) {
	credStore := newFakeCredStore()
	recStore := newFakeRecoveryStore()
	userID := uuid.New()

	result, err := Enroll(credStore, userID, "jdoe", "acme", "Authme")
	if err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}
	if result.Secret == "" || result.OtpauthURL == "" {
		t.Fatal("expected non-empty secret and otpauth URL")
	}

	code, err := totp.GenerateCode(result.Secret, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode failed: %v", err)
	}

	codes, err := Activate(credStore, recStore, userID, code)
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if len(codes) != 10 {
		t.Errorf("expected 10 recovery codes, got %d", len(codes))
	}

	cred, found, err := credStore.Get(userID, credentialTypeTOTP)
	if err != nil || !found || !cred.Verified {
		t.Fatalf("expected verified credential, found=%v err=%v", found, err)
	}
}

func TestActivateWrongCodeLeavesStateUnchanged(t *testing.T) {
	credStore := newFakeCredStore()
	recStore := newFakeRecoveryStore()
	userID := uuid.New()

	if _, err := Enroll(credStore, userID, "jdoe", "acme", "Authme"); err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}

	_, err := Activate(credStore, recStore, userID, "000000")
	if err != ErrInvalidCode {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}

	cred, _, _ := credStore.Get(userID, credentialTypeTOTP)
	if cred.Verified {
		t.Error("expected credential to remain unverified after failed activation")
	}
}

func TestVerifyTotpRequiresVerifiedCredential(t *testing.T) {
	credStore := newFakeCredStore()
	userID := uuid.New()

	result, err := Enroll(credStore, userID, "jdoe", "acme", "Authme")
	if err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}
	code, _ := totp.GenerateCode(result.Secret, time.Now())

	ok, err := VerifyTotp(credStore, userID, code)
	if err != nil {
		t.Fatalf("VerifyTotp failed: %v", err)
	}
	if ok {
		t.Error("expected VerifyTotp to reject an unverified credential")
	}
}

func TestVerifyRecoveryCodeSingleUse(t *testing.T) {
	recStore := newFakeRecoveryStore()
	userID := uuid.New()

	plain := "ABCD-1234"
	recStore.codes[userID] = []domain.RecoveryCode{
		{UserID: userID, CodeHash: hashRecoveryCode(plain)},
	}

	ok, err := VerifyRecoveryCode(recStore, userID, "  AbCd-1234  ")
	if err != nil {
		t.Fatalf("VerifyRecoveryCode failed: %v", err)
	}
	if !ok {
		t.Fatal("expected recovery code to verify")
	}

	ok, err = VerifyRecoveryCode(recStore, userID, plain)
	if err != nil {
		t.Fatalf("VerifyRecoveryCode failed: %v", err)
	}
	if ok {
		t.Error("expected recovery code to be single-use")
	}
}

func TestChallengeLifecycle(t *testing.T) {
	store := newFakeChallengeStore()
	userID, realmID := uuid.New(), uuid.New()

	token, err := CreateChallenge(store, userID, realmID, map[string]string{"client_id": "c1"})
	if err != nil {
		t.Fatalf("CreateChallenge failed: %v", err)
	}

	data, err := ConsumeChallenge(store, token)
	if err != nil {
		t.Fatalf("ConsumeChallenge failed: %v", err)
	}
	if data.UserID != userID || data.RealmID != realmID {
		t.Errorf("unexpected challenge data: %+v", data)
	}

	if _, err := ConsumeChallenge(store, token); err != ErrInvalidCode {
		t.Errorf("expected second consumption to fail, got %v", err)
	}
}

func TestTouchChallengeFailureExhaustion(t *testing.T) {
	store := newFakeChallengeStore()
	userID, realmID := uuid.New(), uuid.New()

	token, err := CreateChallenge(store, userID, realmID, nil)
	if err != nil {
		t.Fatalf("CreateChallenge failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := TouchChallengeFailure(store, token); err != nil {
			t.Fatalf("unexpected error on attempt %d: %v", i, err)
		}
	}

	if err := TouchChallengeFailure(store, token); err != ErrChallengeExhausted {
		t.Errorf("expected ErrChallengeExhausted, got %v", err)
	}
}
