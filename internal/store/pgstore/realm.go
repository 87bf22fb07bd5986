package pgstore

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

// GetByName resolves a realm by its issuer-path name. Realm lookup has no
// realm to scope RLS on yet — it's how every RLS-scoped call downstream
// gets its realmID in the first place — so it runs system-level.
func (s *Store) GetByName(name string) (domain.Realm, bool, error) {
	var r domain.Realm
	err := s.system(func(tx pgx.Tx) error {
		return tx.QueryRow(ctx(), `
			SELECT id, name, display_name, enabled,
			       access_token_lifespan_seconds, refresh_token_lifespan_seconds, offline_token_lifespan_seconds,
			       pw_min_length, pw_require_upper, pw_require_lower, pw_require_digits, pw_require_special,
			       pw_history_count, pw_max_age_days,
			       bf_enabled, bf_max_failures, bf_lockout_seconds, bf_failure_reset_seconds, bf_permanent_after,
			       mfa_required, theme, created_at
			FROM realms WHERE name = $1`, name).Scan(
			&r.ID, &r.Name, &r.DisplayName, &r.Enabled,
			&r.AccessTokenLifespan, &r.RefreshTokenLifespan, &r.OfflineTokenLifespan,
			&r.PasswordPolicy.MinLength, &r.PasswordPolicy.RequireUppercase, &r.PasswordPolicy.RequireLowercase,
			&r.PasswordPolicy.RequireDigits, &r.PasswordPolicy.RequireSpecial,
			&r.PasswordPolicy.PasswordHistoryCount, &r.PasswordPolicy.PasswordMaxAgeDays,
			&r.BruteForce.Enabled, &r.BruteForce.MaxLoginFailures, &r.BruteForce.LockoutDuration,
			&r.BruteForce.FailureResetTime, &r.BruteForce.PermanentLockoutAfter,
			&r.MFARequired, &r.Theme, &r.CreatedAt,
		)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Realm{}, false, nil
	}
	if err != nil {
		return domain.Realm{}, false, err
	}
	return r, true, nil
}

// GetRealmByID resolves a realm by its row ID.
func (s *Store) GetRealmByID(id uuid.UUID) (domain.Realm, bool, error) {
	var r domain.Realm
	err := s.system(func(tx pgx.Tx) error {
		return tx.QueryRow(ctx(), `
			SELECT id, name, display_name, enabled,
			       access_token_lifespan_seconds, refresh_token_lifespan_seconds, offline_token_lifespan_seconds,
			       pw_min_length, pw_require_upper, pw_require_lower, pw_require_digits, pw_require_special,
			       pw_history_count, pw_max_age_days,
			       bf_enabled, bf_max_failures, bf_lockout_seconds, bf_failure_reset_seconds, bf_permanent_after,
			       mfa_required, theme, created_at
			FROM realms WHERE id = $1`, id).Scan(
			&r.ID, &r.Name, &r.DisplayName, &r.Enabled,
			&r.AccessTokenLifespan, &r.RefreshTokenLifespan, &r.OfflineTokenLifespan,
			&r.PasswordPolicy.MinLength, &r.PasswordPolicy.RequireUppercase, &r.PasswordPolicy.RequireLowercase,
			&r.PasswordPolicy.RequireDigits, &r.PasswordPolicy.RequireSpecial,
			&r.PasswordPolicy.PasswordHistoryCount, &r.PasswordPolicy.PasswordMaxAgeDays,
			&r.BruteForce.Enabled, &r.BruteForce.MaxLoginFailures, &r.BruteForce.LockoutDuration,
			&r.BruteForce.FailureResetTime, &r.BruteForce.PermanentLockoutAfter,
			&r.MFARequired, &r.Theme, &r.CreatedAt,
		)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Realm{}, false, nil
	}
	if err != nil {
		return domain.Realm{}, false, err
	}
	return r, true, nil
}

// PutRealm upserts a realm by ID.
func (s *Store) PutRealm(r domain.Realm) error {
	return s.system(func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `
			INSERT INTO realms (
				id, name, display_name, enabled,
				access_token_lifespan_seconds, refresh_token_lifespan_seconds, offline_token_lifespan_seconds,
				pw_min_length, pw_require_upper, pw_require_lower, pw_require_digits, pw_require_special,
				pw_history_count, pw_max_age_days,
				bf_enabled, bf_max_failures, bf_lockout_seconds, bf_failure_reset_seconds, bf_permanent_after,
				mfa_required, theme, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, display_name = EXCLUDED.display_name, enabled = EXCLUDED.enabled,
				access_token_lifespan_seconds = EXCLUDED.access_token_lifespan_seconds,
				refresh_token_lifespan_seconds = EXCLUDED.refresh_token_lifespan_seconds,
				offline_token_lifespan_seconds = EXCLUDED.offline_token_lifespan_seconds,
				pw_min_length = EXCLUDED.pw_min_length, pw_require_upper = EXCLUDED.pw_require_upper,
				pw_require_lower = EXCLUDED.pw_require_lower, pw_require_digits = EXCLUDED.pw_require_digits,
				pw_require_special = EXCLUDED.pw_require_special, pw_history_count = EXCLUDED.pw_history_count,
				pw_max_age_days = EXCLUDED.pw_max_age_days, bf_enabled = EXCLUDED.bf_enabled,
				bf_max_failures = EXCLUDED.bf_max_failures, bf_lockout_seconds = EXCLUDED.bf_lockout_seconds,
				bf_failure_reset_seconds = EXCLUDED.bf_failure_reset_seconds,
				bf_permanent_after = EXCLUDED.bf_permanent_after, mfa_required = EXCLUDED.mfa_required,
				theme = EXCLUDED.theme`,
			r.ID, r.Name, r.DisplayName, r.Enabled,
			r.AccessTokenLifespan, r.RefreshTokenLifespan, r.OfflineTokenLifespan,
			r.PasswordPolicy.MinLength, r.PasswordPolicy.RequireUppercase, r.PasswordPolicy.RequireLowercase,
			r.PasswordPolicy.RequireDigits, r.PasswordPolicy.RequireSpecial,
			r.PasswordPolicy.PasswordHistoryCount, r.PasswordPolicy.PasswordMaxAgeDays,
			r.BruteForce.Enabled, r.BruteForce.MaxLoginFailures, r.BruteForce.LockoutDuration,
			r.BruteForce.FailureResetTime, r.BruteForce.PermanentLockoutAfter,
			r.MFARequired, r.Theme, r.CreatedAt,
		)
		return err
	})
}

// ActiveKey returns the realm's current signing key.
func (s *Store) ActiveKey(realmID uuid.UUID) (domain.SigningKey, bool, error) {
	var k domain.SigningKey
	err := s.realm(realmID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx(), `
			SELECT id, realm_id, kid, algorithm, public_key, private_key, active, created_at
			FROM signing_keys WHERE realm_id = $1 AND active = true
			ORDER BY created_at DESC LIMIT 1`, realmID).Scan(
			&k.ID, &k.RealmID, &k.Kid, &k.Algorithm, &k.PublicKey, &k.PrivateKey, &k.Active, &k.CreatedAt,
		)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SigningKey{}, false, nil
	}
	if err != nil {
		return domain.SigningKey{}, false, err
	}
	return k, true, nil
}

// KeyByKid resolves a specific key by its kid, active or retired — an
// already-issued token must keep verifying against a key even after a
// rotation makes a newer key active.
func (s *Store) KeyByKid(realmID uuid.UUID, kid string) (domain.SigningKey, bool, error) {
	var k domain.SigningKey
	err := s.realm(realmID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx(), `
			SELECT id, realm_id, kid, algorithm, public_key, private_key, active, created_at
			FROM signing_keys WHERE realm_id = $1 AND kid = $2`, realmID, kid).Scan(
			&k.ID, &k.RealmID, &k.Kid, &k.Algorithm, &k.PublicKey, &k.PrivateKey, &k.Active, &k.CreatedAt,
		)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SigningKey{}, false, nil
	}
	if err != nil {
		return domain.SigningKey{}, false, err
	}
	return k, true, nil
}

// PutSigningKey upserts a signing key. Activating a new key does not
// implicitly deactivate others here — callers (key rotation) are
// responsible for flipping the prior active key's row first.
func (s *Store) PutSigningKey(k domain.SigningKey) error {
	return s.realm(k.RealmID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `
			INSERT INTO signing_keys (id, realm_id, kid, algorithm, public_key, private_key, active, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (id) DO UPDATE SET active = EXCLUDED.active`,
			k.ID, k.RealmID, k.Kid, k.Algorithm, k.PublicKey, k.PrivateKey, k.Active, k.CreatedAt,
		)
		return err
	})
}
