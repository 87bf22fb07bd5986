// Package bruteforce implements the C8 brute-force gate: per-user login
// failure tracking, temporary lockout, and permanent lockout after a
// configured cumulative failure count.
package bruteforce

import (
	"time"

	"github.com/google/uuid"

	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

// State is the persisted per-user failure-tracking record.
type State struct {
	UserID           uuid.UUID
	RealmID          uuid.UUID
	FailureCount     int
	TotalFailures    int
	LastFailureAt    time.Time
	LockedUntil      *time.Time
	PermanentLockout bool
}

// LockStatus is the result of CheckLocked.
type LockStatus struct {
	Locked      bool
	LockedUntil *time.Time
}

// Store persists brute-force state, keyed by (realmID, userID). Method
// names are disambiguated (GetBruteForce/PutBruteForce) so a single
// backing store type can implement this alongside the other repository
// interfaces without a method-set collision.
type Store interface {
	GetBruteForce(realmID, userID uuid.UUID) (State, bool, error)
	PutBruteForce(state State) error
}

// CheckLocked consults the gate's state for user and reports whether
// login attempts are currently locked out. Run this before password
// verification so a locked account never reaches VerifyPassword (an
// oracle that would otherwise leak whether the password itself is right).
func CheckLocked(store Store, realm domain.Realm, userID uuid.UUID) (LockStatus, error) {
	if !realm.BruteForce.Enabled {
		return LockStatus{}, nil
	}

	state, found, err := store.GetBruteForce(realm.ID, userID)
	if err != nil {
		return LockStatus{}, err
	}
	if !found {
		return LockStatus{}, nil
	}

	if state.PermanentLockout {
		return LockStatus{Locked: true}, nil
	}
	if state.LockedUntil != nil && time.Now().Before(*state.LockedUntil) {
		return LockStatus{Locked: true, LockedUntil: state.LockedUntil}, nil
	}
	return LockStatus{}, nil
}

// RecordFailure registers a failed login attempt, updating the failure
// counter, applying the lockout window, and flagging permanent lockout
// when the realm's cumulative threshold is exceeded.
func RecordFailure(store Store, realm domain.Realm, userID uuid.UUID) error {
	if !realm.BruteForce.Enabled {
		return nil
	}

	now := time.Now()
	state, found, err := store.GetBruteForce(realm.ID, userID)
	if err != nil {
		return err
	}
	if !found {
		state = State{UserID: userID, RealmID: realm.ID}
	}

	if state.LastFailureAt.IsZero() || now.Sub(state.LastFailureAt) > realm.BruteForce.FailureResetTime {
		state.FailureCount = 1
	} else {
		state.FailureCount++
	}
	state.TotalFailures++
	state.LastFailureAt = now

	if state.FailureCount >= realm.BruteForce.MaxLoginFailures {
		until := now.Add(realm.BruteForce.LockoutDuration)
		state.LockedUntil = &until
	}

	if realm.BruteForce.PermanentLockoutAfter > 0 && state.TotalFailures > realm.BruteForce.PermanentLockoutAfter {
		state.PermanentLockout = true
	}

	return store.PutBruteForce(state)
}

// ResetFailures clears a user's failure counter after a successful login.
func ResetFailures(store Store, realmID, userID uuid.UUID) error {
	state, found, err := store.GetBruteForce(realmID, userID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	state.FailureCount = 0
	state.LockedUntil = nil
	return store.PutBruteForce(state)
}
