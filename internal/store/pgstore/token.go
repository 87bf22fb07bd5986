package pgstore

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

// GetByHash resolves a refresh token by its opaque hash, with no realm in
// hand yet — that's what RotateRefreshToken's reuse-detection reads off
// the row once it comes back.
func (s *Store) GetByHash(tokenHash string) (domain.RefreshToken, bool, error) {
	var t domain.RefreshToken
	err := s.system(func(tx pgx.Tx) error {
		return tx.QueryRow(ctx(), `
			SELECT id, session_id, token_hash, expires_at, revoked, revoked_at, is_offline, scope
			FROM refresh_tokens WHERE token_hash = $1`, tokenHash).Scan(
			&t.ID, &t.SessionID, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &t.RevokedAt, &t.IsOffline, &t.Scope,
		)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RefreshToken{}, false, nil
	}
	if err != nil {
		return domain.RefreshToken{}, false, err
	}
	return t, true, nil
}

// InsertRefreshToken inserts a freshly minted refresh token.
func (s *Store) InsertRefreshToken(t domain.RefreshToken) error {
	return s.system(func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `
			INSERT INTO refresh_tokens (id, session_id, token_hash, expires_at, revoked, revoked_at, is_offline, scope)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			t.ID, t.SessionID, t.TokenHash, t.ExpiresAt, t.Revoked, t.RevokedAt, t.IsOffline, t.Scope,
		)
		return err
	})
}

// MarkRevoked revokes a single refresh token (the one half of rotation)
// via a compare-and-set gated on revoked=false, reporting whether this
// call actually performed the revoke — false means a concurrent rotation
// already claimed the row first.
func (s *Store) MarkRevoked(id uuid.UUID) (bool, error) {
	var won bool
	err := s.system(func(tx pgx.Tx) error {
		now := time.Now()
		tag, err := tx.Exec(ctx(), `UPDATE refresh_tokens SET revoked = true, revoked_at = $2 WHERE id = $1 AND revoked = false`, id, now)
		if err != nil {
			return err
		}
		won = tag.RowsAffected() > 0
		return nil
	})
	return won, err
}

// RevokeAllInSession revokes every refresh token issued within a session,
// the cascade triggered by logout and by reuse-detection.
func (s *Store) RevokeAllInSession(sessionID uuid.UUID) error {
	return s.system(func(tx pgx.Tx) error {
		now := time.Now()
		_, err := tx.Exec(ctx(), `
			UPDATE refresh_tokens SET revoked = true, revoked_at = $2
			WHERE session_id = $1 AND revoked = false`, sessionID, now)
		return err
	})
}

// GetByCode resolves an authorization code within a realm.
func (s *Store) GetByCode(realmID uuid.UUID, code string) (domain.AuthorizationCode, bool, error) {
	var c domain.AuthorizationCode
	err := s.realm(realmID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx(), `
			SELECT id, realm_id, code, client_id, user_id, redirect_uri, scope, nonce,
			       code_challenge, code_challenge_method, used, expires_at
			FROM authorization_codes WHERE realm_id = $1 AND code = $2`, realmID, code).Scan(
			&c.ID, &c.RealmID, &c.Code, &c.ClientID, &c.UserID, &c.RedirectURI, &c.Scope, &c.Nonce,
			&c.CodeChallenge, &c.CodeChallengeMethod, &c.Used, &c.ExpiresAt,
		)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AuthorizationCode{}, false, nil
	}
	if err != nil {
		return domain.AuthorizationCode{}, false, err
	}
	return c, true, nil
}

// InsertAuthCode inserts a freshly minted authorization code.
func (s *Store) InsertAuthCode(c domain.AuthorizationCode) error {
	return s.realm(c.RealmID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `
			INSERT INTO authorization_codes (
				id, realm_id, code, client_id, user_id, redirect_uri, scope, nonce,
				code_challenge, code_challenge_method, used, expires_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			c.ID, c.RealmID, c.Code, c.ClientID, c.UserID, c.RedirectURI, c.Scope, c.Nonce,
			c.CodeChallenge, c.CodeChallengeMethod, c.Used, c.ExpiresAt,
		)
		return err
	})
}

// MarkCodeUsed marks an authorization code consumed, with no realm in
// hand — the caller already resolved the code via GetByCode under RLS
// and is now closing it out by row ID. The update is gated on used=false
// so two concurrent redemptions of the same code cannot both succeed;
// the caller must check the returned bool.
func (s *Store) MarkCodeUsed(id uuid.UUID) (bool, error) {
	var won bool
	err := s.system(func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx(), `UPDATE authorization_codes SET used = true WHERE id = $1 AND used = false`, id)
		if err != nil {
			return err
		}
		won = tag.RowsAffected() > 0
		return nil
	})
	return won, err
}

const deviceCodeColumns = `realm_id, device_code, user_code, client_id, scope, interval_seconds,
	expires_at, approved, denied, user_id, last_polled_at, created_at`

func scanDeviceCode(row pgx.Row) (domain.DeviceCode, error) {
	var d domain.DeviceCode
	err := row.Scan(
		&d.RealmID, &d.DeviceCode, &d.UserCode, &d.ClientID, &d.Scope, &d.Interval,
		&d.ExpiresAt, &d.Approved, &d.Denied, &d.UserID, &d.LastPolledAt, &d.CreatedAt,
	)
	return d, err
}

// GetByDeviceCode resolves a device-authorization record by its device_code.
func (s *Store) GetByDeviceCode(realmID uuid.UUID, deviceCode string) (domain.DeviceCode, bool, error) {
	var d domain.DeviceCode
	err := s.realm(realmID, func(tx pgx.Tx) error {
		var scanErr error
		d, scanErr = scanDeviceCode(tx.QueryRow(ctx(), `SELECT `+deviceCodeColumns+` FROM device_codes WHERE realm_id = $1 AND device_code = $2`, realmID, deviceCode))
		return scanErr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DeviceCode{}, false, nil
	}
	if err != nil {
		return domain.DeviceCode{}, false, err
	}
	return d, true, nil
}

// GetByUserCode resolves a device-authorization record by its human-facing
// user_code, for the verification-page approve/deny actions.
func (s *Store) GetByUserCode(realmID uuid.UUID, userCode string) (domain.DeviceCode, bool, error) {
	var d domain.DeviceCode
	err := s.realm(realmID, func(tx pgx.Tx) error {
		var scanErr error
		d, scanErr = scanDeviceCode(tx.QueryRow(ctx(), `SELECT `+deviceCodeColumns+` FROM device_codes WHERE realm_id = $1 AND user_code = $2`, realmID, userCode))
		return scanErr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DeviceCode{}, false, nil
	}
	if err != nil {
		return domain.DeviceCode{}, false, err
	}
	return d, true, nil
}

// InsertDeviceCode inserts a freshly minted device-authorization record.
func (s *Store) InsertDeviceCode(d domain.DeviceCode) error {
	return s.realm(d.RealmID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `
			INSERT INTO device_codes (
				realm_id, device_code, user_code, client_id, scope, interval_seconds,
				expires_at, approved, denied, user_id, last_polled_at, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			d.RealmID, d.DeviceCode, d.UserCode, d.ClientID, d.Scope, d.Interval,
			d.ExpiresAt, d.Approved, d.Denied, d.UserID, d.LastPolledAt, d.CreatedAt,
		)
		return err
	})
}

// UpdateLastPolledAt records the most recent poll, for slow_down enforcement.
func (s *Store) UpdateLastPolledAt(realmID uuid.UUID, deviceCode string, at time.Time) error {
	return s.realm(realmID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `UPDATE device_codes SET last_polled_at = $3 WHERE realm_id = $1 AND device_code = $2`, realmID, deviceCode, at)
		return err
	})
}

// ApproveDeviceCode marks a device code approved by userID, via the
// verification page.
func (s *Store) ApproveDeviceCode(realmID uuid.UUID, userCode string, userID uuid.UUID) error {
	return s.realm(realmID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `UPDATE device_codes SET approved = true, user_id = $3 WHERE realm_id = $1 AND user_code = $2`, realmID, userCode, userID)
		return err
	})
}

// DenyDeviceCode marks a device code denied.
func (s *Store) DenyDeviceCode(realmID uuid.UUID, userCode string) error {
	return s.realm(realmID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `UPDATE device_codes SET denied = true WHERE realm_id = $1 AND user_code = $2`, realmID, userCode)
		return err
	})
}

// DeleteDeviceCode removes a device code once it's been consumed by a
// successful token issuance.
func (s *Store) DeleteDeviceCode(realmID uuid.UUID, deviceCode string) error {
	return s.realm(realmID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `DELETE FROM device_codes WHERE realm_id = $1 AND device_code = $2`, realmID, deviceCode)
		return err
	})
}
