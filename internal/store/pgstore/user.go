package pgstore

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

const userColumns = `id, realm_id, username, email, email_verified, first_name, last_name, enabled,
	password_hash, password_changed_at, locked_until, federation_link, created_at, updated_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.RealmID, &u.Username, &u.Email, &u.EmailVerified, &u.FirstName, &u.LastName, &u.Enabled,
		&u.PasswordHash, &u.PasswordChangedAt, &u.LockedUntil, &u.FederationLink, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

// GetByUsername resolves a user by username within a realm.
func (s *Store) GetByUsername(realmID uuid.UUID, username string) (domain.User, bool, error) {
	var u domain.User
	err := s.realm(realmID, func(tx pgx.Tx) error {
		var scanErr error
		u, scanErr = scanUser(tx.QueryRow(ctx(), `SELECT `+userColumns+` FROM users WHERE realm_id = $1 AND username = $2`, realmID, username))
		return scanErr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}
	return u, true, nil
}

// GetByEmail resolves a user by email within a realm, used by the broker's
// trusted-email identity fusion step.
func (s *Store) GetByEmail(realmID uuid.UUID, email string) (domain.User, bool, error) {
	var u domain.User
	err := s.realm(realmID, func(tx pgx.Tx) error {
		var scanErr error
		u, scanErr = scanUser(tx.QueryRow(ctx(), `SELECT `+userColumns+` FROM users WHERE realm_id = $1 AND email = $2`, realmID, email))
		return scanErr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}
	return u, true, nil
}

// GetUserByID resolves a user by row ID, with no realm in hand to scope
// on — the callers that use this already hold a realm-checked token and
// are resolving its subject, not authorizing cross-realm access.
func (s *Store) GetUserByID(id uuid.UUID) (domain.User, bool, error) {
	var u domain.User
	err := s.system(func(tx pgx.Tx) error {
		var scanErr error
		u, scanErr = scanUser(tx.QueryRow(ctx(), `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return scanErr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}
	return u, true, nil
}

// PutUser upserts a user by row ID.
func (s *Store) PutUser(u domain.User) error {
	return s.realm(u.RealmID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `
			INSERT INTO users (
				id, realm_id, username, email, email_verified, first_name, last_name, enabled,
				password_hash, password_changed_at, locked_until, federation_link, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			ON CONFLICT (id) DO UPDATE SET
				username = EXCLUDED.username, email = EXCLUDED.email, email_verified = EXCLUDED.email_verified,
				first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name, enabled = EXCLUDED.enabled,
				password_hash = EXCLUDED.password_hash, password_changed_at = EXCLUDED.password_changed_at,
				locked_until = EXCLUDED.locked_until, federation_link = EXCLUDED.federation_link,
				updated_at = EXCLUDED.updated_at`,
			u.ID, u.RealmID, u.Username, u.Email, u.EmailVerified, u.FirstName, u.LastName, u.Enabled,
			u.PasswordHash, u.PasswordChangedAt, u.LockedUntil, u.FederationLink, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})
}

// DirectRoles returns the roles assigned straight to a user.
func (s *Store) DirectRoles(userID uuid.UUID) ([]domain.Role, error) {
	var roles []domain.Role
	err := s.system(func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx(), `
			SELECT r.id, r.realm_id, r.client_id, r.name, r.description
			FROM roles r JOIN user_roles ur ON ur.role_id = r.id
			WHERE ur.user_id = $1`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r domain.Role
			if err := rows.Scan(&r.ID, &r.RealmID, &r.ClientID, &r.Name, &r.Description); err != nil {
				return err
			}
			roles = append(roles, r)
		}
		return rows.Err()
	})
	return roles, err
}

// GroupRoles returns the roles assigned directly to a group.
func (s *Store) GroupRoles(groupID uuid.UUID) ([]domain.Role, error) {
	var roles []domain.Role
	err := s.system(func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx(), `
			SELECT r.id, r.realm_id, r.client_id, r.name, r.description
			FROM roles r JOIN group_roles gr ON gr.role_id = r.id
			WHERE gr.group_id = $1`, groupID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r domain.Role
			if err := rows.Scan(&r.ID, &r.RealmID, &r.ClientID, &r.Name, &r.Description); err != nil {
				return err
			}
			roles = append(roles, r)
		}
		return rows.Err()
	})
	return roles, err
}

// UserGroups returns the groups a user directly belongs to.
func (s *Store) UserGroups(userID uuid.UUID) ([]domain.Group, error) {
	var groups []domain.Group
	err := s.system(func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx(), `
			SELECT g.id, g.realm_id, g.name, g.parent_id
			FROM groups g JOIN user_groups ug ON ug.group_id = g.id
			WHERE ug.user_id = $1`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var g domain.Group
			if err := rows.Scan(&g.ID, &g.RealmID, &g.Name, &g.ParentID); err != nil {
				return err
			}
			groups = append(groups, g)
		}
		return rows.Err()
	})
	return groups, err
}

// ParentGroup resolves a group's immediate parent, for walking the group
// tree upward during role resolution.
func (s *Store) ParentGroup(groupID uuid.UUID) (domain.Group, bool, error) {
	var g domain.Group
	err := s.system(func(tx pgx.Tx) error {
		return tx.QueryRow(ctx(), `
			SELECT p.id, p.realm_id, p.name, p.parent_id
			FROM groups c JOIN groups p ON p.id = c.parent_id
			WHERE c.id = $1`, groupID).Scan(&g.ID, &g.RealmID, &g.Name, &g.ParentID)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Group{}, false, nil
	}
	if err != nil {
		return domain.Group{}, false, err
	}
	return g, true, nil
}
