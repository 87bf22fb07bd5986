package broker

import (
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Islamawad132/Authme-sub001/internal/domain"
	"github.com/Islamawad132/Authme-sub001/internal/oautherr"
	"github.com/Islamawad132/Authme-sub001/internal/store/memstore"
)

func newBrokerFixture(t *testing.T) (*memstore.Store, domain.Realm) {
	t.Helper()
	db := memstore.New()
	realm := domain.Realm{ID: uuid.New(), Name: "test", Enabled: true}
	require.NoError(t, db.PutRealm(realm))
	return db, realm
}

func TestResolveFederatedUserMatchesExistingLink(t *testing.T) {
	db, realm := newBrokerFixture(t)
	idp := domain.IdentityProvider{ID: uuid.New(), RealmID: realm.ID, Alias: "corp-idp"}

	existing := domain.User{ID: uuid.New(), RealmID: realm.ID, Username: "alice", Enabled: true}
	require.NoError(t, db.PutUser(existing))
	require.NoError(t, db.Link(domain.FederatedIdentity{UserID: existing.ID, IdentityProviderID: idp.ID, ExternalUserID: "ext-123"}))

	deps := Dependencies{FederatedIdentities: db, Users: db}
	user, err := resolveFederatedUser(deps, realm, idp, externalUserinfo{Sub: "ext-123"})
	require.NoError(t, err)
	require.Equal(t, existing.ID, user.ID, "expected the existing linked user")
}

func TestResolveFederatedUserSyncsProfileWhenConfigured(t *testing.T) {
	db, realm := newBrokerFixture(t)
	idp := domain.IdentityProvider{ID: uuid.New(), RealmID: realm.ID, Alias: "corp-idp", SyncUserProfile: true}

	existing := domain.User{ID: uuid.New(), RealmID: realm.ID, Username: "alice", Email: "old@example.com", Enabled: true}
	require.NoError(t, db.PutUser(existing))
	require.NoError(t, db.Link(domain.FederatedIdentity{UserID: existing.ID, IdentityProviderID: idp.ID, ExternalUserID: "ext-123"}))

	deps := Dependencies{FederatedIdentities: db, Users: db}
	user, err := resolveFederatedUser(deps, realm, idp, externalUserinfo{Sub: "ext-123", Email: "new@example.com", EmailVerified: true})
	require.NoError(t, err)
	require.Equal(t, "new@example.com", user.Email)
	require.True(t, user.EmailVerified)

	stored, _, _ := db.GetUserByID(existing.ID)
	require.Equal(t, "new@example.com", stored.Email, "expected the synced profile to be persisted")
}

func TestResolveFederatedUserMatchesByTrustedEmail(t *testing.T) {
	db, realm := newBrokerFixture(t)
	idp := domain.IdentityProvider{ID: uuid.New(), RealmID: realm.ID, Alias: "corp-idp", TrustEmail: true}

	existing := domain.User{ID: uuid.New(), RealmID: realm.ID, Username: "bob", Email: "bob@example.com", Enabled: true}
	require.NoError(t, db.PutUser(existing))

	deps := Dependencies{FederatedIdentities: db, Users: db}
	user, err := resolveFederatedUser(deps, realm, idp, externalUserinfo{Sub: "ext-999", Email: "bob@example.com"})
	require.NoError(t, err)
	require.Equal(t, existing.ID, user.ID, "expected email match to resolve to the existing user")

	fi, found, err := db.GetByExternalID(idp.ID, "ext-999")
	require.NoError(t, err)
	require.True(t, found, "expected a federated link to be created")
	require.Equal(t, existing.ID, fi.UserID)
}

func TestResolveFederatedUserCreatesNewUser(t *testing.T) {
	db, realm := newBrokerFixture(t)
	idp := domain.IdentityProvider{ID: uuid.New(), RealmID: realm.ID, Alias: "corp-idp"}

	deps := Dependencies{FederatedIdentities: db, Users: db}
	user, err := resolveFederatedUser(deps, realm, idp, externalUserinfo{
		Sub: "ext-new", Email: "carol@example.com", PreferredUsername: "carol",
	})
	require.NoError(t, err)
	require.Equal(t, "carol", user.Username)
	require.Equal(t, "carol@example.com", user.Email)

	stored, found, err := db.GetUserByID(user.ID)
	require.NoError(t, err)
	require.True(t, found, "expected the new user to be persisted")
	require.NotNil(t, stored.FederationLink)
	require.Equal(t, idp.Alias, *stored.FederationLink)
}

func TestResolveFederatedUserLinkOnlyRejectsUnmatched(t *testing.T) {
	db, realm := newBrokerFixture(t)
	idp := domain.IdentityProvider{ID: uuid.New(), RealmID: realm.ID, Alias: "corp-idp", LinkOnly: true}

	deps := Dependencies{FederatedIdentities: db, Users: db}
	_, err := resolveFederatedUser(deps, realm, idp, externalUserinfo{Sub: "ext-unknown"})

	oe, ok := oautherr.As(err)
	require.True(t, ok)
	require.Equal(t, oautherr.AccessDenied, oe.Kind, "expected access_denied for a link-only provider with no match")
}

func TestResolveFederatedUserFallsBackToEmailLocalPart(t *testing.T) {
	db, realm := newBrokerFixture(t)
	idp := domain.IdentityProvider{ID: uuid.New(), RealmID: realm.ID, Alias: "corp-idp"}

	deps := Dependencies{FederatedIdentities: db, Users: db}
	user, err := resolveFederatedUser(deps, realm, idp, externalUserinfo{Sub: "ext-no-username", Email: "dave@example.com"})
	require.NoError(t, err)
	require.Equal(t, "dave", user.Username, "expected username derived from email local-part")
}

func TestSubFromLegacyIDTokenExtractsSubject(t *testing.T) {
	secret := "shared-client-secret"
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "legacy-sub-1"})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err, "failed to sign fixture token")

	sub, ok := subFromLegacyIDToken(signed, secret)
	require.True(t, ok)
	require.Equal(t, "legacy-sub-1", sub)
}

func TestSubFromLegacyIDTokenRejectsWrongSecret(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "legacy-sub-1"})
	signed, err := token.SignedString([]byte("the-right-secret"))
	require.NoError(t, err, "failed to sign fixture token")

	_, ok := subFromLegacyIDToken(signed, "the-wrong-secret")
	require.False(t, ok, "expected a token signed with a different secret to be rejected")
}

func TestSyncProfileOnlyOverwritesNonEmptyFields(t *testing.T) {
	user := domain.User{FirstName: "Old", LastName: "Name", Email: "old@example.com"}
	updated := syncProfile(user, externalUserinfo{GivenName: "New"})

	require.Equal(t, "New", updated.FirstName)
	require.Equal(t, "Name", updated.LastName, "expected LastName to be left alone")
	require.Equal(t, "old@example.com", updated.Email, "expected Email to be left alone when info carries none")
}
