package introspect

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Islamawad132/Authme-sub001/internal/blacklist"
	"github.com/Islamawad132/Authme-sub001/internal/crypto"
	"github.com/Islamawad132/Authme-sub001/internal/domain"
	"github.com/Islamawad132/Authme-sub001/internal/grant"
	"github.com/Islamawad132/Authme-sub001/internal/store/memstore"
	"github.com/Islamawad132/Authme-sub001/internal/tokensvc"
)

// issuedFixture mints a live access/refresh token pair through the grant
// pipeline so introspection is exercised against a realistic token rather
// than one hand-assembled here.
type issuedFixture struct {
	deps     Dependencies
	realm    domain.Realm
	user     domain.User
	result   grant.IssueResult
	sessions *memstore.Store
}

func newIssuedFixture(t *testing.T) issuedFixture {
	t.Helper()
	db := memstore.New()

	realm := domain.Realm{
		ID:                   uuid.New(),
		Name:                 "test",
		Enabled:              true,
		AccessTokenLifespan:  5 * time.Minute,
		RefreshTokenLifespan: 30 * time.Minute,
	}
	require.NoError(t, db.PutRealm(realm))

	_, publicPem, privatePem, err := tokensvc.GenerateRsaKeyPair()
	require.NoError(t, err)
	require.NoError(t, db.PutSigningKey(domain.SigningKey{
		ID: uuid.New(), RealmID: realm.ID, Kid: "test-kid", Algorithm: "RS256",
		PublicKey: publicPem, PrivateKey: privatePem, Active: true,
	}))

	passwordHash, err := crypto.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	user := domain.User{
		ID: uuid.New(), RealmID: realm.ID, Username: "alice", Email: "alice@example.com",
		Enabled: true, PasswordHash: &passwordHash,
	}
	require.NoError(t, db.PutUser(user))

	client := domain.Client{
		ID: uuid.New(), RealmID: realm.ID, ClientID: "test-client",
		ClientType: domain.ClientPublic, Enabled: true,
		GrantTypes:     []domain.GrantType{domain.GrantPassword, domain.GrantRefreshToken},
		DefaultScopes:  []string{"openid"},
		OptionalScopes: []string{"profile", "email", "roles"},
	}
	require.NoError(t, db.PutClient(client))

	grantDeps := grant.Dependencies{
		Clients: db, Users: db, Roles: db, Keys: db, RefreshTokens: db,
		AuthCodes: db, DeviceCodes: db, Sessions: db, Mappers: db, BruteForce: db,
	}
	result, err := grant.HandleTokenRequest(context.Background(), grantDeps, realm, grant.Request{
		GrantType: domain.GrantPassword,
		ClientID:  client.ClientID,
		Username:  user.Username,
		Password:  "correct horse battery staple",
		Scope:     "openid profile email",
	}, grant.RequestContext{})
	require.NoError(t, err)

	return issuedFixture{
		deps:     Dependencies{Keys: db, Users: db, Sessions: db, RefreshTokens: db, Blacklist: blacklist.New()},
		realm:    realm,
		user:     user,
		result:   result,
		sessions: db,
	}
}

func TestIntrospectActiveToken(t *testing.T) {
	fx := newIssuedFixture(t)

	res, err := Introspect(fx.deps, fx.realm, fx.result.AccessToken)
	require.NoError(t, err)
	require.True(t, res.Active, "expected a freshly issued access token to be active")
	require.Equal(t, fx.user.ID.String(), res.Sub)
	require.Equal(t, "Bearer", res.TokenType)
}

func TestIntrospectMalformedToken(t *testing.T) {
	fx := newIssuedFixture(t)

	res, err := Introspect(fx.deps, fx.realm, "not-a-jwt-at-all")
	require.NoError(t, err)
	require.False(t, res.Active, "expected a malformed token to be reported inactive, not erroring")
}

func TestIntrospectRevokedAccessToken(t *testing.T) {
	fx := newIssuedFixture(t)

	require.NoError(t, Revoke(context.Background(), fx.deps, fx.realm, fx.result.AccessToken))

	res, err := Introspect(fx.deps, fx.realm, fx.result.AccessToken)
	require.NoError(t, err)
	require.False(t, res.Active, "expected a revoked access token to be inactive")
}

func TestRevokeRefreshTokenRevokesWholeSession(t *testing.T) {
	fx := newIssuedFixture(t)

	require.NoError(t, Revoke(context.Background(), fx.deps, fx.realm, fx.result.RefreshToken))

	rt, found, err := fx.sessions.GetByHash(crypto.SHA256(fx.result.RefreshToken))
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, rt.RevokedAt, "expected revoking the refresh token to mark it revoked")
}

func TestRevokeUnknownTokenIsSilentlyAccepted(t *testing.T) {
	fx := newIssuedFixture(t)

	require.NoError(t, Revoke(context.Background(), fx.deps, fx.realm, "totally-unknown-token"))
}

func TestUserinfoReturnsScopedClaims(t *testing.T) {
	fx := newIssuedFixture(t)

	out, err := Userinfo(fx.deps, fx.realm, fx.result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, fx.user.ID.String(), out["sub"])
	require.Equal(t, fx.user.Email, out["email"])
}

func TestUserinfoRejectsRevokedToken(t *testing.T) {
	fx := newIssuedFixture(t)

	require.NoError(t, Revoke(context.Background(), fx.deps, fx.realm, fx.result.AccessToken))

	_, err := Userinfo(fx.deps, fx.realm, fx.result.AccessToken)
	require.Error(t, err, "expected Userinfo to reject a revoked access token")
}

func TestLogoutClosesSessionAndRevokesTokens(t *testing.T) {
	fx := newIssuedFixture(t)

	rt, found, err := fx.sessions.GetByHash(crypto.SHA256(fx.result.RefreshToken))
	require.NoError(t, err)
	require.True(t, found)

	require.NoError(t, Logout(context.Background(), fx.deps, fx.realm, rt.SessionID))

	sess, found, err := fx.sessions.GetSession(rt.SessionID)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, sess.Closed(), "expected session to be closed after logout")

	rotated, found, err := fx.sessions.GetByHash(crypto.SHA256(fx.result.RefreshToken))
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, rotated.RevokedAt, "expected the session's refresh token to be revoked after logout")
}
