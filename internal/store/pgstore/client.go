package pgstore

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

func scanClient(row pgx.Row) (domain.Client, error) {
	var c domain.Client
	var grantTypes, redirectURIs, webOrigins, defaultScopes, optionalScopes []string
	err := row.Scan(
		&c.ID, &c.RealmID, &c.ClientID, &c.ClientType, &c.ClientSecretHash, &c.Enabled,
		&grantTypes, &redirectURIs, &webOrigins, &defaultScopes, &optionalScopes,
		&c.ServiceAccountUserID, &c.BackchannelLogoutURI, &c.BackchannelLogoutSessionRequired, &c.CreatedAt,
	)
	if err != nil {
		return domain.Client{}, err
	}
	c.GrantTypes = make([]domain.GrantType, len(grantTypes))
	for i, g := range grantTypes {
		c.GrantTypes[i] = domain.GrantType(g)
	}
	c.RedirectURIs = redirectURIs
	c.WebOrigins = webOrigins
	c.DefaultScopes = defaultScopes
	c.OptionalScopes = optionalScopes
	return c, nil
}

const clientColumns = `id, realm_id, client_id, client_type, client_secret_hash, enabled,
	grant_types, redirect_uris, web_origins, default_scopes, optional_scopes,
	service_account_user_id, backchannel_logout_uri, backchannel_logout_session_required, created_at`

// GetByClientID resolves a client by its public client_id within a realm.
func (s *Store) GetByClientID(realmID uuid.UUID, clientID string) (domain.Client, bool, error) {
	var c domain.Client
	err := s.realm(realmID, func(tx pgx.Tx) error {
		var scanErr error
		c, scanErr = scanClient(tx.QueryRow(ctx(), `SELECT `+clientColumns+` FROM clients WHERE realm_id = $1 AND client_id = $2`, realmID, clientID))
		return scanErr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Client{}, false, nil
	}
	if err != nil {
		return domain.Client{}, false, err
	}
	return c, true, nil
}

// GetClientByRowID resolves a client by its internal row ID, used when a
// caller already has the client's UUID rather than its client_id string
// (e.g. resolving a session's ClientID... no — see domain.Session.ClientID
// which stores the public client_id; this path serves lookups keyed on
// the row ID directly, such as a service-account client's own row).
func (s *Store) GetClientByRowID(id uuid.UUID) (domain.Client, bool, error) {
	var c domain.Client
	err := s.system(func(tx pgx.Tx) error {
		var scanErr error
		c, scanErr = scanClient(tx.QueryRow(ctx(), `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
		return scanErr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Client{}, false, nil
	}
	if err != nil {
		return domain.Client{}, false, err
	}
	return c, true, nil
}

// PutClient upserts a client by row ID.
func (s *Store) PutClient(c domain.Client) error {
	grantTypes := make([]string, len(c.GrantTypes))
	for i, g := range c.GrantTypes {
		grantTypes[i] = string(g)
	}
	return s.realm(c.RealmID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `
			INSERT INTO clients (
				id, realm_id, client_id, client_type, client_secret_hash, enabled,
				grant_types, redirect_uris, web_origins, default_scopes, optional_scopes,
				service_account_user_id, backchannel_logout_uri, backchannel_logout_session_required, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
			ON CONFLICT (id) DO UPDATE SET
				client_type = EXCLUDED.client_type, client_secret_hash = EXCLUDED.client_secret_hash,
				enabled = EXCLUDED.enabled, grant_types = EXCLUDED.grant_types,
				redirect_uris = EXCLUDED.redirect_uris, web_origins = EXCLUDED.web_origins,
				default_scopes = EXCLUDED.default_scopes, optional_scopes = EXCLUDED.optional_scopes,
				service_account_user_id = EXCLUDED.service_account_user_id,
				backchannel_logout_uri = EXCLUDED.backchannel_logout_uri,
				backchannel_logout_session_required = EXCLUDED.backchannel_logout_session_required`,
			c.ID, c.RealmID, c.ClientID, c.ClientType, c.ClientSecretHash, c.Enabled,
			grantTypes, c.RedirectURIs, c.WebOrigins, c.DefaultScopes, c.OptionalScopes,
			c.ServiceAccountUserID, c.BackchannelLogoutURI, c.BackchannelLogoutSessionRequired, c.CreatedAt,
		)
		return err
	})
}
