package pgstore

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

// GetByAlias resolves an identity-provider configuration by its realm-unique alias.
func (s *Store) GetByAlias(realmID uuid.UUID, alias string) (domain.IdentityProvider, bool, error) {
	var idp domain.IdentityProvider
	err := s.realm(realmID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx(), `
			SELECT id, realm_id, alias, enabled, authorization_url, token_url, userinfo_url,
			       client_id, client_secret_enc, default_scopes, trust_email, sync_user_profile, link_only
			FROM identity_providers WHERE realm_id = $1 AND alias = $2`, realmID, alias).Scan(
			&idp.ID, &idp.RealmID, &idp.Alias, &idp.Enabled, &idp.AuthorizationURL, &idp.TokenURL, &idp.UserInfoURL,
			&idp.ClientID, &idp.ClientSecretEnc, &idp.DefaultScopes, &idp.TrustEmail, &idp.SyncUserProfile, &idp.LinkOnly,
		)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.IdentityProvider{}, false, nil
	}
	if err != nil {
		return domain.IdentityProvider{}, false, err
	}
	return idp, true, nil
}

// GetByExternalID resolves the federated-identity link for an external IdP
// subject, step one of the broker's identity-fusion order.
func (s *Store) GetByExternalID(idpID uuid.UUID, externalUserID string) (domain.FederatedIdentity, bool, error) {
	var fi domain.FederatedIdentity
	err := s.system(func(tx pgx.Tx) error {
		return tx.QueryRow(ctx(), `
			SELECT user_id, identity_provider_id, external_user_id
			FROM federated_identities WHERE identity_provider_id = $1 AND external_user_id = $2`, idpID, externalUserID).Scan(
			&fi.UserID, &fi.IdentityProviderID, &fi.ExternalUserID,
		)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.FederatedIdentity{}, false, nil
	}
	if err != nil {
		return domain.FederatedIdentity{}, false, err
	}
	return fi, true, nil
}

// Link records a federated-identity link, unique by (IdentityProviderID, ExternalUserID).
func (s *Store) Link(fi domain.FederatedIdentity) error {
	return s.system(func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx(), `
			INSERT INTO federated_identities (user_id, identity_provider_id, external_user_id)
			VALUES ($1,$2,$3)
			ON CONFLICT (identity_provider_id, external_user_id) DO NOTHING`,
			fi.UserID, fi.IdentityProviderID, fi.ExternalUserID,
		)
		return err
	})
}
