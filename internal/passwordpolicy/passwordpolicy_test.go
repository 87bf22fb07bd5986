package passwordpolicy

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Islamawad132/Authme-sub001/internal/crypto"
	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

func TestValidateAggregatesAllViolations(t *testing.T) {
	policy := domain.PasswordPolicyConfig{
		MinLength:        10,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireDigits:    true,
		RequireSpecial:   true,
	}

	result := Validate(policy, "abc")
	if result.Valid {
		t.Fatal("expected invalid")
	}
	if len(result.Errors) != 5 {
		t.Errorf("expected 5 violations, got %d: %v", len(result.Errors), result.Errors)
	}
}

func TestValidateInactiveRulesImposeNoConstraint(t *testing.T) {
	policy := domain.PasswordPolicyConfig{MinLength: 0}
	result := Validate(policy, "a")
	if !result.Valid {
		t.Errorf("expected valid with no active rules, got errors %v", result.Errors)
	}
}

func TestValidateStrongPassword(t *testing.T) {
	policy := domain.PasswordPolicyConfig{
		MinLength: 8, RequireUppercase: true, RequireLowercase: true,
		RequireDigits: true, RequireSpecial: true,
	}
	result := Validate(policy, "Str0ng!Pass")
	if !result.Valid {
		t.Errorf("expected valid, got errors %v", result.Errors)
	}
}

type fakeHistoryStore struct {
	entries []domain.PasswordHistory
}

func (f *fakeHistoryStore) RecentHistory(userID, realmID uuid.UUID, n int) ([]domain.PasswordHistory, error) {
	if n > len(f.entries) {
		n = len(f.entries)
	}
	return f.entries[:n], nil
}

func (f *fakeHistoryStore) InsertHistory(entry domain.PasswordHistory) error {
	f.entries = append([]domain.PasswordHistory{entry}, f.entries...)
	return nil
}

func (f *fakeHistoryStore) TrimHistory(userID, realmID uuid.UUID, keepNewest int) error {
	if keepNewest < len(f.entries) {
		f.entries = f.entries[:keepNewest]
	}
	return nil
}

func TestCheckHistoryZeroOrNegativeAlwaysFalse(t *testing.T) {
	store := &fakeHistoryStore{}
	ok, err := CheckHistory(store, uuid.New(), uuid.New(), "anything", 0)
	if err != nil || ok {
		t.Errorf("expected false/nil, got %v/%v", ok, err)
	}
}

func TestCheckHistoryMatchesAndRecords(t *testing.T) {
	store := &fakeHistoryStore{}
	userID, realmID := uuid.New(), uuid.New()

	hash, err := crypto.HashPassword("OldPassword1!")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if err := RecordHistory(store, userID, realmID, hash, 3); err != nil {
		t.Fatalf("RecordHistory failed: %v", err)
	}

	ok, err := CheckHistory(store, userID, realmID, "OldPassword1!", 3)
	if err != nil {
		t.Fatalf("CheckHistory failed: %v", err)
	}
	if !ok {
		t.Error("expected history match")
	}

	ok, err = CheckHistory(store, userID, realmID, "NewPassword2!", 3)
	if err != nil {
		t.Fatalf("CheckHistory failed: %v", err)
	}
	if ok {
		t.Error("expected no match for a new password")
	}
}

func TestRecordHistoryTrimsToNewest(t *testing.T) {
	store := &fakeHistoryStore{}
	userID, realmID := uuid.New(), uuid.New()

	for i := 0; i < 5; i++ {
		hash, _ := crypto.HashPassword("pw")
		if err := RecordHistory(store, userID, realmID, hash, 2); err != nil {
			t.Fatalf("RecordHistory failed: %v", err)
		}
	}

	if len(store.entries) != 2 {
		t.Errorf("expected history trimmed to 2 entries, got %d", len(store.entries))
	}
}

func TestIsExpired(t *testing.T) {
	policy := domain.PasswordPolicyConfig{PasswordMaxAgeDays: 90}

	never := domain.User{}
	if !IsExpired(never, policy) {
		t.Error("expected expired when PasswordChangedAt is nil and max age configured")
	}

	recent := time.Now().Add(-1 * time.Hour)
	fresh := domain.User{PasswordChangedAt: &recent}
	if IsExpired(fresh, policy) {
		t.Error("expected not expired for a recently changed password")
	}

	old := time.Now().Add(-100 * 24 * time.Hour)
	stale := domain.User{PasswordChangedAt: &old}
	if !IsExpired(stale, policy) {
		t.Error("expected expired for a password older than max age")
	}
}

func TestIsExpiredNoMaxAge(t *testing.T) {
	policy := domain.PasswordPolicyConfig{PasswordMaxAgeDays: 0}
	if IsExpired(domain.User{}, policy) {
		t.Error("expected never expired when max age is disabled")
	}
}
