package pgstore

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Islamawad132/Authme-sub001/internal/bruteforce"
	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

// ScopeMappers resolves the protocol mappers activated by scopeNames
// within a realm, for the C6 claims/mapper executor.
func (s *Store) ScopeMappers(realmID uuid.UUID, scopeNames []string) ([]domain.ProtocolMapper, error) {
	var out []domain.ProtocolMapper
	err := s.realm(realmID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx(), `
			SELECT id, realm_id, name, mapper_type, scope_name, config
			FROM protocol_mappers WHERE realm_id = $1 AND scope_name = ANY($2)`, realmID, scopeNames)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var m domain.ProtocolMapper
			var configJSON []byte
			if err := rows.Scan(&m.ID, &m.RealmID, &m.Name, &m.MapperType, &m.ScopeName, &configJSON); err != nil {
				return err
			}
			if len(configJSON) > 0 {
				if err := json.Unmarshal(configJSON, &m.Config); err != nil {
					return err
				}
			}
			out = append(out, m)
		}
		return rows.Err()
	})
	return out, err
}

// RecentHistory returns a user's n most recently retired password hashes.
func (s *Store) RecentHistory(userID, realmID uuid.UUID, n int) ([]domain.PasswordHistory, error) {
	var out []domain.PasswordHistory
	err := s.realm(realmID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx(), `
			SELECT user_id, realm_id, password_hash, created_at
			FROM password_history WHERE user_id = $1 AND realm_id = $2
			ORDER BY created_at DESC LIMIT $3`, userID, realmID, n)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var h domain.PasswordHistory
			if err := rows.Scan(&h.UserID, &h.RealmID, &h.PasswordHash, &h.CreatedAt); err != nil {
				return err
			}
			out = append(out, h)
		}
		return rows.Err()
	})
	return out, err
}

// InsertHistory records a retired password hash.
func (s *Store) InsertHistory(h domain.PasswordHistory) error {
	return s.realm(h.RealmID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `
			INSERT INTO password_history (user_id, realm_id, password_hash, created_at)
			VALUES ($1,$2,$3,$4)`, h.UserID, h.RealmID, h.PasswordHash, h.CreatedAt)
		return err
	})
}

// TrimHistory deletes all but the newest keepNewest history rows for a user.
func (s *Store) TrimHistory(userID, realmID uuid.UUID, keepNewest int) error {
	return s.realm(realmID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `
			DELETE FROM password_history WHERE user_id = $1 AND realm_id = $2 AND created_at NOT IN (
				SELECT created_at FROM password_history WHERE user_id = $1 AND realm_id = $2
				ORDER BY created_at DESC LIMIT $3
			)`, userID, realmID, keepNewest)
		return err
	})
}

// Get resolves a user's TOTP credential by type.
func (s *Store) Get(userID uuid.UUID, credType string) (domain.UserCredential, bool, error) {
	var c domain.UserCredential
	err := s.system(func(tx pgx.Tx) error {
		return tx.QueryRow(ctx(), `
			SELECT user_id, type, secret_key, algorithm, digits, period, verified
			FROM user_credentials WHERE user_id = $1 AND type = $2`, userID, credType).Scan(
			&c.UserID, &c.Type, &c.SecretKey, &c.Algorithm, &c.Digits, &c.Period, &c.Verified,
		)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserCredential{}, false, nil
	}
	if err != nil {
		return domain.UserCredential{}, false, err
	}
	return c, true, nil
}

// DeleteUnverified removes a prior, never-activated enrollment attempt so
// a fresh one can start clean.
func (s *Store) DeleteUnverified(userID uuid.UUID, credType string) error {
	return s.system(func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `DELETE FROM user_credentials WHERE user_id = $1 AND type = $2 AND verified = false`, userID, credType)
		return err
	})
}

// Put upserts a TOTP credential, unique by (userID, type).
func (s *Store) Put(c domain.UserCredential) error {
	return s.system(func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `
			INSERT INTO user_credentials (user_id, type, secret_key, algorithm, digits, period, verified)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (user_id, type) DO UPDATE SET
				secret_key = EXCLUDED.secret_key, algorithm = EXCLUDED.algorithm,
				digits = EXCLUDED.digits, period = EXCLUDED.period, verified = EXCLUDED.verified`,
			c.UserID, c.Type, c.SecretKey, c.Algorithm, c.Digits, c.Period, c.Verified,
		)
		return err
	})
}

// ReplaceAll replaces a user's full set of MFA recovery codes.
func (s *Store) ReplaceAll(userID uuid.UUID, codes []domain.RecoveryCode) error {
	return s.system(func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx(), `DELETE FROM recovery_codes WHERE user_id = $1`, userID); err != nil {
			return err
		}
		for _, c := range codes {
			if _, err := tx.Exec(ctx(), `INSERT INTO recovery_codes (user_id, code_hash, used) VALUES ($1,$2,$3)`, c.UserID, c.CodeHash, c.Used); err != nil {
				return err
			}
		}
		return nil
	})
}

// FirstUnused returns the first unused recovery-code row the query yields
// for a user. It takes no candidate code; the caller compares hashes
// itself.
func (s *Store) FirstUnused(userID uuid.UUID) (domain.RecoveryCode, bool, error) {
	var c domain.RecoveryCode
	err := s.system(func(tx pgx.Tx) error {
		return tx.QueryRow(ctx(), `
			SELECT user_id, code_hash, used FROM recovery_codes
			WHERE user_id = $1 AND used = false LIMIT 1`, userID).Scan(&c.UserID, &c.CodeHash, &c.Used)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RecoveryCode{}, false, nil
	}
	if err != nil {
		return domain.RecoveryCode{}, false, err
	}
	return c, true, nil
}

// MarkUsed marks a single recovery code consumed.
func (s *Store) MarkUsed(userID uuid.UUID, codeHash string) error {
	return s.system(func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `UPDATE recovery_codes SET used = true WHERE user_id = $1 AND code_hash = $2`, userID, codeHash)
		return err
	})
}

// GetChallenge resolves a pending MFA challenge by its token hash.
func (s *Store) GetChallenge(tokenHash string) (domain.PendingAction, bool, error) {
	var p domain.PendingAction
	var dataJSON []byte
	err := s.system(func(tx pgx.Tx) error {
		return tx.QueryRow(ctx(), `
			SELECT token_hash, type, data, expires_at FROM pending_actions WHERE token_hash = $1`, tokenHash).Scan(
			&p.TokenHash, &p.Type, &dataJSON, &p.ExpiresAt,
		)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PendingAction{}, false, nil
	}
	if err != nil {
		return domain.PendingAction{}, false, err
	}
	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &p.Data); err != nil {
			return domain.PendingAction{}, false, err
		}
	}
	return p, true, nil
}

// PutChallenge stores a pending MFA challenge.
func (s *Store) PutChallenge(p domain.PendingAction) error {
	dataJSON, err := json.Marshal(p.Data)
	if err != nil {
		return err
	}
	return s.system(func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `
			INSERT INTO pending_actions (token_hash, type, data, expires_at)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (token_hash) DO UPDATE SET type = EXCLUDED.type, data = EXCLUDED.data, expires_at = EXCLUDED.expires_at`,
			p.TokenHash, p.Type, dataJSON, p.ExpiresAt,
		)
		return err
	})
}

// DeleteChallenge removes a pending MFA challenge once consumed or
// abandoned.
func (s *Store) DeleteChallenge(tokenHash string) error {
	return s.system(func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `DELETE FROM pending_actions WHERE token_hash = $1`, tokenHash)
		return err
	})
}

// GetBruteForce resolves a user's brute-force failure-tracking state.
func (s *Store) GetBruteForce(realmID, userID uuid.UUID) (bruteforce.State, bool, error) {
	var st bruteforce.State
	err := s.realm(realmID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx(), `
			SELECT user_id, realm_id, failure_count, total_failures, last_failure_at, locked_until, permanent_lockout
			FROM brute_force_state WHERE realm_id = $1 AND user_id = $2`, realmID, userID).Scan(
			&st.UserID, &st.RealmID, &st.FailureCount, &st.TotalFailures, &st.LastFailureAt, &st.LockedUntil, &st.PermanentLockout,
		)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return bruteforce.State{}, false, nil
	}
	if err != nil {
		return bruteforce.State{}, false, err
	}
	return st, true, nil
}

// PutBruteForce upserts a user's brute-force failure-tracking state.
func (s *Store) PutBruteForce(st bruteforce.State) error {
	return s.realm(st.RealmID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `
			INSERT INTO brute_force_state (user_id, realm_id, failure_count, total_failures, last_failure_at, locked_until, permanent_lockout)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (realm_id, user_id) DO UPDATE SET
				failure_count = EXCLUDED.failure_count, total_failures = EXCLUDED.total_failures,
				last_failure_at = EXCLUDED.last_failure_at, locked_until = EXCLUDED.locked_until,
				permanent_lockout = EXCLUDED.permanent_lockout`,
			st.UserID, st.RealmID, st.FailureCount, st.TotalFailures, st.LastFailureAt, st.LockedUntil, st.PermanentLockout,
		)
		return err
	})
}
