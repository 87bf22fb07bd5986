package backchannel

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Islamawad132/Authme-sub001/internal/domain"
	"github.com/Islamawad132/Authme-sub001/internal/store/memstore"
	"github.com/Islamawad132/Authme-sub001/internal/tokensvc"
)

func newRealmWithKey(t *testing.T) (*memstore.Store, domain.Realm) {
	t.Helper()
	db := memstore.New()
	realm := domain.Realm{ID: uuid.New(), Name: "test", Enabled: true}
	require.NoError(t, db.PutRealm(realm))
	_, publicPem, privatePem, err := tokensvc.GenerateRsaKeyPair()
	require.NoError(t, err)
	require.NoError(t, db.PutSigningKey(domain.SigningKey{
		ID: uuid.New(), RealmID: realm.ID, Kid: "test-kid", Algorithm: "RS256",
		PublicKey: publicPem, PrivateKey: privatePem, Active: true,
	}))
	return db, realm
}

func TestBuildLogoutTokenCarriesRequiredClaims(t *testing.T) {
	db, realm := newRealmWithKey(t)
	deps := Dependencies{Clients: db, Keys: db, BaseURL: "https://idp.example.com"}

	userID, sessionID := uuid.New(), uuid.New()
	token, err := BuildLogoutToken(deps, realm, userID, sessionID, "rp-client")
	require.NoError(t, err)

	key, found, err := db.ActiveKey(realm.ID)
	require.NoError(t, err)
	require.True(t, found)
	claimsMap, err := tokensvc.VerifyJwt(token, key.PublicKey)
	require.NoError(t, err, "logout token did not verify")

	require.Equal(t, userID.String(), claimsMap["sub"])
	require.Equal(t, sessionID.String(), claimsMap["sid"])
	require.Equal(t, "rp-client", claimsMap["aud"])

	events, ok := claimsMap["events"].(map[string]any)
	require.True(t, ok, "expected an events claim")
	_, ok = events["http://schemas.openid.net/event/backchannel-logout"]
	require.True(t, ok, "expected the backchannel-logout event member to be present")

	_, ok = claimsMap["nonce"]
	require.False(t, ok, "a logout token must never carry a nonce")
}

func TestNotifyClientsSkipsClientsWithoutLogoutURI(t *testing.T) {
	db, realm := newRealmWithKey(t)
	client := domain.Client{ID: uuid.New(), RealmID: realm.ID, ClientID: "no-logout-uri", Enabled: true}
	require.NoError(t, db.PutClient(client))
	deps := Dependencies{Clients: db, Keys: db, BaseURL: "https://idp.example.com"}

	results := NotifyClients(context.Background(), deps, realm, uuid.New(), uuid.New(), []string{client.ClientID})
	require.Empty(t, results, "expected no attempt for a client without a backchannel logout URI")
}

func TestNotifyClientsRejectsSSRFTargets(t *testing.T) {
	db, realm := newRealmWithKey(t)
	logoutURI := "http://127.0.0.1:9/backchannel-logout"
	client := domain.Client{
		ID: uuid.New(), RealmID: realm.ID, ClientID: "loopback-client", Enabled: true,
		BackchannelLogoutURI: &logoutURI,
	}
	require.NoError(t, db.PutClient(client))
	deps := Dependencies{Clients: db, Keys: db, BaseURL: "https://idp.example.com"}

	results := NotifyClients(context.Background(), deps, realm, uuid.New(), uuid.New(), []string{client.ClientID})
	require.Len(t, results, 1)
	require.Error(t, results[0].Err, "expected a loopback backchannel logout target to be rejected")
}

func TestNotifyClientsSkipsUnknownClient(t *testing.T) {
	db, realm := newRealmWithKey(t)
	deps := Dependencies{Clients: db, Keys: db, BaseURL: "https://idp.example.com"}

	results := NotifyClients(context.Background(), deps, realm, uuid.New(), uuid.New(), []string{"does-not-exist"})
	require.Empty(t, results, "expected no attempt for an unknown client")
}
