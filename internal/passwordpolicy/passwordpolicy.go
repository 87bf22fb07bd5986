// Package passwordpolicy implements the C7 password policy: strength
// validation, password-history checks, and expiry rules.
package passwordpolicy

import (
	"regexp"
	"strconv"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/Islamawad132/Authme-sub001/internal/crypto"
	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

// ValidationResult is the aggregated outcome of Validate: every violated
// rule is reported, never just the first.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validate checks password against the realm's configured strength rules,
// aggregating every violation rather than short-circuiting on the first.
func Validate(policy domain.PasswordPolicyConfig, password string) ValidationResult {
	var errs []string

	if policy.MinLength > 0 && len([]rune(password)) < policy.MinLength {
		errs = append(errs, "password must be at least "+strconv.Itoa(policy.MinLength)+" characters")
	}
	if policy.RequireUppercase && !hasClass(password, unicode.IsUpper) {
		errs = append(errs, "password must contain an uppercase letter")
	}
	if policy.RequireLowercase && !hasClass(password, unicode.IsLower) {
		errs = append(errs, "password must contain a lowercase letter")
	}
	if policy.RequireDigits && !hasClass(password, unicode.IsDigit) {
		errs = append(errs, "password must contain a digit")
	}
	if policy.RequireSpecial && !specialCharPattern.MatchString(password) {
		errs = append(errs, "password must contain a special character")
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

var specialCharPattern = regexp.MustCompile(`[^\p{L}\p{N}]`)

func hasClass(s string, class func(rune) bool) bool {
	for _, r := range s {
		if class(r) {
			return true
		}
	}
	return false
}

// HistoryStore persists and queries a user's retired password hashes.
type HistoryStore interface {
	RecentHistory(userID, realmID uuid.UUID, n int) ([]domain.PasswordHistory, error)
	InsertHistory(entry domain.PasswordHistory) error
	TrimHistory(userID, realmID uuid.UUID, keepNewest int) error
}

// CheckHistory reports whether password matches one of the user's newest n
// historical password hashes. Returns false immediately when n <= 0.
func CheckHistory(store HistoryStore, userID, realmID uuid.UUID, password string, n int) (bool, error) {
	if n <= 0 {
		return false, nil
	}

	history, err := store.RecentHistory(userID, realmID, n)
	if err != nil {
		return false, err
	}

	for _, h := range history {
		ok, err := crypto.VerifyPassword(h.PasswordHash, password)
		if err != nil {
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// RecordHistory inserts a new password-history entry and trims all but the
// newest n. No-op when n <= 0.
func RecordHistory(store HistoryStore, userID, realmID uuid.UUID, hash string, n int) error {
	if n <= 0 {
		return nil
	}
	if err := store.InsertHistory(domain.PasswordHistory{
		UserID:       userID,
		RealmID:      realmID,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}); err != nil {
		return err
	}
	return store.TrimHistory(userID, realmID, n)
}

// IsExpired reports whether the user's password has aged past the realm's
// configured maximum. A nil PasswordChangedAt (password never set via a
// policy-aware path) is always expired once a max age is configured.
func IsExpired(user domain.User, policy domain.PasswordPolicyConfig) bool {
	if policy.PasswordMaxAgeDays <= 0 {
		return false
	}
	if user.PasswordChangedAt == nil {
		return true
	}
	maxAge := time.Duration(policy.PasswordMaxAgeDays) * 24 * time.Hour
	return time.Since(*user.PasswordChangedAt) > maxAge
}
