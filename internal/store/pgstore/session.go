package pgstore

import (
	"errors"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

func scanSession(row pgx.Row) (domain.Session, error) {
	var sess domain.Session
	var ip string
	err := row.Scan(&sess.ID, &sess.RealmID, &sess.UserID, &sess.ClientID, &ip, &sess.UserAgent,
		&sess.CreatedAt, &sess.ExpiresAt, &sess.ClosedAt)
	if err != nil {
		return domain.Session{}, err
	}
	sess.IPAddress = net.ParseIP(ip)
	return sess, nil
}

const sessionColumns = `id, realm_id, user_id, client_id, ip_address, user_agent, created_at, expires_at, closed_at`

// GetSession resolves an OAuth session by ID, with no realm in hand yet —
// the caller is resolving the subject of an already-verified token.
func (s *Store) GetSession(id uuid.UUID) (domain.Session, bool, error) {
	var sess domain.Session
	err := s.system(func(tx pgx.Tx) error {
		var scanErr error
		sess, scanErr = scanSession(tx.QueryRow(ctx(), `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
		return scanErr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, err
	}
	return sess, true, nil
}

// PutSession upserts a session by ID.
func (s *Store) PutSession(sess domain.Session) error {
	ip := ""
	if sess.IPAddress != nil {
		ip = sess.IPAddress.String()
	}
	return s.realm(sess.RealmID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `
			INSERT INTO sessions (id, realm_id, user_id, client_id, ip_address, user_agent, created_at, expires_at, closed_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (id) DO UPDATE SET expires_at = EXCLUDED.expires_at, closed_at = EXCLUDED.closed_at`,
			sess.ID, sess.RealmID, sess.UserID, sess.ClientID, ip, sess.UserAgent, sess.CreatedAt, sess.ExpiresAt, sess.ClosedAt,
		)
		return err
	})
}

// CloseSession marks a session closed (logout, reuse-detection).
func (s *Store) CloseSession(id uuid.UUID) error {
	return s.system(func(tx pgx.Tx) error {
		now := time.Now()
		_, err := tx.Exec(ctx(), `UPDATE sessions SET closed_at = $2 WHERE id = $1 AND closed_at IS NULL`, id, now)
		return err
	})
}

// GetLoginSession resolves a browser-side SSO session by its opaque
// cookie-token hash.
func (s *Store) GetLoginSession(tokenHash string) (domain.LoginSession, bool, error) {
	var ls domain.LoginSession
	var ip string
	err := s.system(func(tx pgx.Tx) error {
		return tx.QueryRow(ctx(), `
			SELECT id, realm_id, user_id, token_hash, ip_address, user_agent, expires_at
			FROM login_sessions WHERE token_hash = $1`, tokenHash).Scan(
			&ls.ID, &ls.RealmID, &ls.UserID, &ls.TokenHash, &ip, &ls.UserAgent, &ls.ExpiresAt,
		)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LoginSession{}, false, nil
	}
	if err != nil {
		return domain.LoginSession{}, false, err
	}
	ls.IPAddress = net.ParseIP(ip)
	return ls, true, nil
}

// PutLoginSession upserts a browser-side SSO session.
func (s *Store) PutLoginSession(ls domain.LoginSession) error {
	ip := ""
	if ls.IPAddress != nil {
		ip = ls.IPAddress.String()
	}
	return s.realm(ls.RealmID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `
			INSERT INTO login_sessions (id, realm_id, user_id, token_hash, ip_address, user_agent, expires_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (id) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
			ls.ID, ls.RealmID, ls.UserID, ls.TokenHash, ip, ls.UserAgent, ls.ExpiresAt,
		)
		return err
	})
}

// DeleteLoginSession removes a browser-side SSO session.
func (s *Store) DeleteLoginSession(id uuid.UUID) error {
	return s.system(func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `DELETE FROM login_sessions WHERE id = $1`, id)
		return err
	})
}

// LoginSessionsByUser lists a user's active browser-side SSO sessions
// within a realm.
func (s *Store) LoginSessionsByUser(realmID, userID uuid.UUID) ([]domain.LoginSession, error) {
	var out []domain.LoginSession
	err := s.realm(realmID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx(), `
			SELECT id, realm_id, user_id, token_hash, ip_address, user_agent, expires_at
			FROM login_sessions WHERE realm_id = $1 AND user_id = $2`, realmID, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var ls domain.LoginSession
			var ip string
			if err := rows.Scan(&ls.ID, &ls.RealmID, &ls.UserID, &ls.TokenHash, &ip, &ls.UserAgent, &ls.ExpiresAt); err != nil {
				return err
			}
			ls.IPAddress = net.ParseIP(ip)
			out = append(out, ls)
		}
		return rows.Err()
	})
	return out, err
}
