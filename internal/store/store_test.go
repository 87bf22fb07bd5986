package store

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

type fakeRefreshTokenStore struct {
	byHash map[string]domain.RefreshToken
	byID   map[uuid.UUID]string
}

func newFakeRefreshTokenStore() *fakeRefreshTokenStore {
	return &fakeRefreshTokenStore{
		byHash: make(map[string]domain.RefreshToken),
		byID:   make(map[uuid.UUID]string),
	}
}

func (f *fakeRefreshTokenStore) GetByHash(tokenHash string) (domain.RefreshToken, bool, error) {
	t, ok := f.byHash[tokenHash]
	return t, ok, nil
}

func (f *fakeRefreshTokenStore) InsertRefreshToken(token domain.RefreshToken) error {
	f.byHash[token.TokenHash] = token
	f.byID[token.ID] = token.TokenHash
	return nil
}

func (f *fakeRefreshTokenStore) MarkRevoked(id uuid.UUID) (bool, error) {
	hash, ok := f.byID[id]
	if !ok {
		return false, nil
	}
	t := f.byHash[hash]
	if t.Revoked {
		return false, nil
	}
	t.Revoked = true
	f.byHash[hash] = t
	return true, nil
}

func (f *fakeRefreshTokenStore) RevokeAllInSession(sessionID uuid.UUID) error {
	for hash, t := range f.byHash {
		if t.SessionID == sessionID {
			t.Revoked = true
			f.byHash[hash] = t
		}
	}
	return nil
}

// passthroughScope is a resolveScope stand-in for tests that don't exercise
// scope-intersection semantics.
func passthroughScope(existingScope string) string { return existingScope }

func TestRotateRefreshTokenHappyPath(t *testing.T) {
	rtStore := newFakeRefreshTokenStore()
	sessionID := uuid.New()
	original := domain.RefreshToken{
		ID: uuid.New(), SessionID: sessionID, TokenHash: "hash-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	_ = rtStore.InsertRefreshToken(original)

	next, err := RotateRefreshToken(rtStore, "hash-1", "hash-2", time.Hour, 24*time.Hour, passthroughScope)
	if err != nil {
		t.Fatalf("RotateRefreshToken failed: %v", err)
	}
	if next.TokenHash != "hash-2" {
		t.Errorf("expected new token hash, got %s", next.TokenHash)
	}

	old, _, _ := rtStore.GetByHash("hash-1")
	if !old.Revoked {
		t.Error("expected old token to be revoked")
	}
}

func TestRotateRefreshTokenReuseDetection(t *testing.T) {
	rtStore := newFakeRefreshTokenStore()
	sessionID := uuid.New()

	first := domain.RefreshToken{ID: uuid.New(), SessionID: sessionID, TokenHash: "r1", ExpiresAt: time.Now().Add(time.Hour)}
	_ = rtStore.InsertRefreshToken(first)

	second, err := RotateRefreshToken(rtStore, "r1", "r2", time.Hour, 24*time.Hour, passthroughScope)
	if err != nil {
		t.Fatalf("first rotation failed: %v", err)
	}

	// Replay r1: should fail and poison the whole session.
	if _, err := RotateRefreshToken(rtStore, "r1", "r1b", time.Hour, 24*time.Hour, passthroughScope); err != ErrRefreshTokenReused {
		t.Errorf("expected ErrRefreshTokenReused, got %v", err)
	}

	// r2 should now be revoked too (session poisoned).
	r2, found, _ := rtStore.GetByHash(second.TokenHash)
	if !found || !r2.Revoked {
		t.Error("expected r2 to be revoked after session poisoning")
	}

	if _, err := RotateRefreshToken(rtStore, "r2", "r3", time.Hour, 24*time.Hour, passthroughScope); err != ErrRefreshTokenReused {
		t.Errorf("expected r2 replay to also fail as reused, got %v", err)
	}
}

func TestRotateRefreshTokenNotFound(t *testing.T) {
	rtStore := newFakeRefreshTokenStore()
	if _, err := RotateRefreshToken(rtStore, "missing", "new", time.Hour, 24*time.Hour, passthroughScope); err != ErrRefreshTokenInvalid {
		t.Errorf("expected ErrRefreshTokenInvalid, got %v", err)
	}
}

func TestRotateRefreshTokenExpired(t *testing.T) {
	rtStore := newFakeRefreshTokenStore()
	expired := domain.RefreshToken{ID: uuid.New(), SessionID: uuid.New(), TokenHash: "exp", ExpiresAt: time.Now().Add(-time.Hour)}
	_ = rtStore.InsertRefreshToken(expired)

	if _, err := RotateRefreshToken(rtStore, "exp", "new", time.Hour, 24*time.Hour, passthroughScope); err != ErrRefreshTokenInvalid {
		t.Errorf("expected ErrRefreshTokenInvalid for expired token, got %v", err)
	}
}

func TestRotateRefreshTokenOfflineLifespan(t *testing.T) {
	rtStore := newFakeRefreshTokenStore()
	original := domain.RefreshToken{
		ID: uuid.New(), SessionID: uuid.New(), TokenHash: "off-1",
		ExpiresAt: time.Now().Add(time.Hour), IsOffline: true,
	}
	_ = rtStore.InsertRefreshToken(original)

	next, err := RotateRefreshToken(rtStore, "off-1", "off-2", time.Hour, 30*24*time.Hour, passthroughScope)
	if err != nil {
		t.Fatalf("RotateRefreshToken failed: %v", err)
	}
	if !next.IsOffline {
		t.Error("expected rotated token to preserve IsOffline")
	}
	wantExpiry := time.Now().Add(30 * 24 * time.Hour)
	if next.ExpiresAt.Before(wantExpiry.Add(-time.Minute)) || next.ExpiresAt.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("expected offline lifespan applied, got expiry %v", next.ExpiresAt)
	}
}
