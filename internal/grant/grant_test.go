package grant

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Islamawad132/Authme-sub001/internal/crypto"
	"github.com/Islamawad132/Authme-sub001/internal/domain"
	"github.com/Islamawad132/Authme-sub001/internal/oautherr"
	"github.com/Islamawad132/Authme-sub001/internal/store"
	"github.com/Islamawad132/Authme-sub001/internal/store/memstore"
	"github.com/Islamawad132/Authme-sub001/internal/tokensvc"
)

const fixturePassword = "correct horse battery staple"

// fixture wires a realm, a confidential client, a signing key, and a
// password-holding user into a fresh memstore, returning everything a
// grant handler needs to run end to end.
type fixture struct {
	deps   Dependencies
	db     *memstore.Store
	realm  domain.Realm
	client domain.Client
	user   domain.User
}

func newFixture(t *testing.T, clientType domain.ClientType, grants ...domain.GrantType) fixture {
	t.Helper()
	db := memstore.New()

	realm := domain.Realm{
		ID:                   uuid.New(),
		Name:                 "test",
		Enabled:              true,
		AccessTokenLifespan:  5 * time.Minute,
		RefreshTokenLifespan: 30 * time.Minute,
		OfflineTokenLifespan: 30 * 24 * time.Hour,
	}
	require.NoError(t, db.PutRealm(realm))

	_, publicPem, privatePem, err := tokensvc.GenerateRsaKeyPair()
	require.NoError(t, err)
	key := domain.SigningKey{
		ID:         uuid.New(),
		RealmID:    realm.ID,
		Kid:        "test-kid",
		Algorithm:  "RS256",
		PublicKey:  publicPem,
		PrivateKey: privatePem,
		Active:     true,
	}
	require.NoError(t, db.PutSigningKey(key))

	var secretHash *string
	if clientType == domain.ClientConfidential {
		h, err := crypto.HashPassword("client-secret")
		require.NoError(t, err)
		secretHash = &h
	}
	client := domain.Client{
		ID:               uuid.New(),
		RealmID:          realm.ID,
		ClientID:         "test-client",
		ClientType:       clientType,
		ClientSecretHash: secretHash,
		Enabled:          true,
		GrantTypes:       grants,
		RedirectURIs:     []string{"https://app.example.com/callback"},
		DefaultScopes:    []string{"openid"},
		OptionalScopes:   []string{"profile", "email", "roles", "offline_access"},
	}
	require.NoError(t, db.PutClient(client))

	passwordHash, err := crypto.HashPassword(fixturePassword)
	require.NoError(t, err)
	user := domain.User{
		ID:           uuid.New(),
		RealmID:      realm.ID,
		Username:     "alice",
		Email:        "alice@example.com",
		Enabled:      true,
		PasswordHash: &passwordHash,
	}
	require.NoError(t, db.PutUser(user))

	return fixture{
		deps:   Dependencies{Clients: db, Users: db, Roles: db, Keys: db, RefreshTokens: db, AuthCodes: db, DeviceCodes: db, Sessions: db, Mappers: db, BruteForce: db, BaseURL: "https://idp.example.com"},
		db:     db,
		realm:  realm,
		client: client,
		user:   user,
	}
}

func (fx fixture) mustPublicKey(t *testing.T) string {
	t.Helper()
	key, found, err := fx.db.ActiveKey(fx.realm.ID)
	require.NoError(t, err)
	require.True(t, found)
	return key.PublicKey
}

func TestHandlePasswordGrantSuccess(t *testing.T) {
	fx := newFixture(t, domain.ClientConfidential, domain.GrantPassword)

	result, err := HandleTokenRequest(context.Background(), fx.deps, fx.realm, Request{
		GrantType:    domain.GrantPassword,
		ClientID:     fx.client.ClientID,
		ClientSecret: "client-secret",
		Username:     fx.user.Username,
		Password:     fixturePassword,
		Scope:        "openid profile",
	}, RequestContext{})
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)
	require.NotEmpty(t, result.IDToken)
	require.Equal(t, "Bearer", result.TokenType)

	claimsMap, err := tokensvc.VerifyJwt(result.AccessToken, fx.mustPublicKey(t))
	require.NoError(t, err)
	require.Equal(t, fx.user.ID.String(), claimsMap["sub"])
}

func TestHandlePasswordGrantWrongPassword(t *testing.T) {
	fx := newFixture(t, domain.ClientConfidential, domain.GrantPassword)

	_, err := HandleTokenRequest(context.Background(), fx.deps, fx.realm, Request{
		GrantType:    domain.GrantPassword,
		ClientID:     fx.client.ClientID,
		ClientSecret: "client-secret",
		Username:     fx.user.Username,
		Password:     "wrong password",
	}, RequestContext{})

	oe, ok := oautherr.As(err)
	require.True(t, ok)
	require.Equal(t, oautherr.InvalidGrant, oe.Kind)
}

func TestHandlePasswordGrantUnknownUser(t *testing.T) {
	fx := newFixture(t, domain.ClientConfidential, domain.GrantPassword)

	_, err := HandleTokenRequest(context.Background(), fx.deps, fx.realm, Request{
		GrantType:    domain.GrantPassword,
		ClientID:     fx.client.ClientID,
		ClientSecret: "client-secret",
		Username:     "nobody",
		Password:     fixturePassword,
	}, RequestContext{})

	oe, ok := oautherr.As(err)
	require.True(t, ok)
	require.Equal(t, oautherr.InvalidGrant, oe.Kind)
}

func TestHandlePasswordGrantDisallowedGrantType(t *testing.T) {
	// Client is only registered for client_credentials, not password.
	fx := newFixture(t, domain.ClientConfidential, domain.GrantClientCredentials)

	_, err := HandleTokenRequest(context.Background(), fx.deps, fx.realm, Request{
		GrantType:    domain.GrantPassword,
		ClientID:     fx.client.ClientID,
		ClientSecret: "client-secret",
		Username:     fx.user.Username,
		Password:     fixturePassword,
	}, RequestContext{})

	oe, ok := oautherr.As(err)
	require.True(t, ok)
	require.Equal(t, oautherr.UnauthorizedClient, oe.Kind)
}

func TestValidateClientRejectsMissingSecretForConfidential(t *testing.T) {
	fx := newFixture(t, domain.ClientConfidential, domain.GrantPassword)

	_, err := ValidateClient(fx.deps.Clients, fx.realm.ID, fx.client.ClientID, "", domain.GrantPassword)
	oe, ok := oautherr.As(err)
	require.True(t, ok)
	require.Equal(t, oautherr.InvalidClient, oe.Kind)
}

func TestValidateClientAllowsPublicClientWithNoSecret(t *testing.T) {
	fx := newFixture(t, domain.ClientPublic, domain.GrantAuthorizationCode)

	client, err := ValidateClient(fx.deps.Clients, fx.realm.ID, fx.client.ClientID, "", domain.GrantAuthorizationCode)
	require.NoError(t, err)
	require.Equal(t, fx.client.ClientID, client.ClientID)
}

func TestHandleClientCredentialsGrant(t *testing.T) {
	fx := newFixture(t, domain.ClientConfidential, domain.GrantClientCredentials)

	// Client credentials requires a service account user.
	client := fx.client
	client.ServiceAccountUserID = &fx.user.ID
	require.NoError(t, fx.db.PutClient(client))

	result, err := HandleTokenRequest(context.Background(), fx.deps, fx.realm, Request{
		GrantType:    domain.GrantClientCredentials,
		ClientID:     client.ClientID,
		ClientSecret: "client-secret",
		Scope:        "openid",
	}, RequestContext{})
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
}

func TestHandleClientCredentialsGrantWithoutServiceAccount(t *testing.T) {
	fx := newFixture(t, domain.ClientConfidential, domain.GrantClientCredentials)

	_, err := HandleTokenRequest(context.Background(), fx.deps, fx.realm, Request{
		GrantType:    domain.GrantClientCredentials,
		ClientID:     fx.client.ClientID,
		ClientSecret: "client-secret",
	}, RequestContext{})

	oe, ok := oautherr.As(err)
	require.True(t, ok)
	require.Equal(t, oautherr.UnauthorizedClient, oe.Kind)
}

func TestHandleRefreshTokenGrantRotates(t *testing.T) {
	fx := newFixture(t, domain.ClientConfidential, domain.GrantPassword, domain.GrantRefreshToken)

	first, err := HandleTokenRequest(context.Background(), fx.deps, fx.realm, Request{
		GrantType:    domain.GrantPassword,
		ClientID:     fx.client.ClientID,
		ClientSecret: "client-secret",
		Username:     fx.user.Username,
		Password:     fixturePassword,
		Scope:        "openid",
	}, RequestContext{})
	require.NoError(t, err)

	second, err := HandleTokenRequest(context.Background(), fx.deps, fx.realm, Request{
		GrantType:    domain.GrantRefreshToken,
		ClientID:     fx.client.ClientID,
		ClientSecret: "client-secret",
		RefreshToken: first.RefreshToken,
	}, RequestContext{})
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.NotEmpty(t, second.AccessToken)
}

func TestHandleRefreshTokenGrantRejectsReuse(t *testing.T) {
	fx := newFixture(t, domain.ClientConfidential, domain.GrantPassword, domain.GrantRefreshToken)

	first, err := HandleTokenRequest(context.Background(), fx.deps, fx.realm, Request{
		GrantType:    domain.GrantPassword,
		ClientID:     fx.client.ClientID,
		ClientSecret: "client-secret",
		Username:     fx.user.Username,
		Password:     fixturePassword,
	}, RequestContext{})
	require.NoError(t, err)

	// First use rotates the token away.
	_, err = HandleTokenRequest(context.Background(), fx.deps, fx.realm, Request{
		GrantType:    domain.GrantRefreshToken,
		ClientID:     fx.client.ClientID,
		ClientSecret: "client-secret",
		RefreshToken: first.RefreshToken,
	}, RequestContext{})
	require.NoError(t, err)

	// Reusing the already-rotated-away token must fail and revoke the session.
	_, err = HandleTokenRequest(context.Background(), fx.deps, fx.realm, Request{
		GrantType:    domain.GrantRefreshToken,
		ClientID:     fx.client.ClientID,
		ClientSecret: "client-secret",
		RefreshToken: first.RefreshToken,
	}, RequestContext{})

	oe, ok := oautherr.As(err)
	require.True(t, ok)
	require.Equal(t, oautherr.InvalidGrant, oe.Kind)
}

func TestHandleAuthorizationCodeGrant(t *testing.T) {
	fx := newFixture(t, domain.ClientPublic, domain.GrantAuthorizationCode)

	code := domain.AuthorizationCode{
		ID:          uuid.New(),
		RealmID:     fx.realm.ID,
		Code:        "test-auth-code",
		ClientID:    fx.client.ClientID,
		UserID:      fx.user.ID,
		RedirectURI: fx.client.RedirectURIs[0],
		Scope:       "openid",
		ExpiresAt:   time.Now().Add(time.Minute),
	}
	require.NoError(t, fx.db.InsertAuthCode(code))

	result, err := HandleTokenRequest(context.Background(), fx.deps, fx.realm, Request{
		GrantType:   domain.GrantAuthorizationCode,
		ClientID:    fx.client.ClientID,
		Code:        code.Code,
		RedirectURI: code.RedirectURI,
	}, RequestContext{})
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)

	// Reusing the same code must fail: it is marked used on first exchange.
	_, err = HandleTokenRequest(context.Background(), fx.deps, fx.realm, Request{
		GrantType:   domain.GrantAuthorizationCode,
		ClientID:    fx.client.ClientID,
		Code:        code.Code,
		RedirectURI: code.RedirectURI,
	}, RequestContext{})
	oe, ok := oautherr.As(err)
	require.True(t, ok)
	require.Equal(t, oautherr.InvalidGrant, oe.Kind)
}

func TestHandleAuthorizationCodeGrantWithPKCE(t *testing.T) {
	fx := newFixture(t, domain.ClientPublic, domain.GrantAuthorizationCode)

	verifier := "a-very-random-code-verifier-string-value"
	challenge := crypto.S256CodeChallenge(verifier)

	code := domain.AuthorizationCode{
		ID:                  uuid.New(),
		RealmID:             fx.realm.ID,
		Code:                "pkce-code",
		ClientID:            fx.client.ClientID,
		UserID:              fx.user.ID,
		RedirectURI:         fx.client.RedirectURIs[0],
		Scope:               "openid",
		CodeChallenge:       challenge,
		CodeChallengeMethod: "S256",
		ExpiresAt:           time.Now().Add(time.Minute),
	}
	require.NoError(t, fx.db.InsertAuthCode(code))

	_, err := HandleTokenRequest(context.Background(), fx.deps, fx.realm, Request{
		GrantType:    domain.GrantAuthorizationCode,
		ClientID:     fx.client.ClientID,
		Code:         code.Code,
		RedirectURI:  code.RedirectURI,
		CodeVerifier: "the-wrong-verifier",
	}, RequestContext{})
	oe, ok := oautherr.As(err)
	require.True(t, ok)
	require.Equal(t, oautherr.InvalidGrant, oe.Kind)
}

func TestHandleDeviceCodeGrantPending(t *testing.T) {
	fx := newFixture(t, domain.ClientPublic, domain.GrantDeviceCode)

	dc := domain.DeviceCode{
		RealmID:    fx.realm.ID,
		DeviceCode: "device-code-value",
		UserCode:   "ABCD-EFGH",
		ClientID:   fx.client.ClientID,
		Scope:      "openid",
		Interval:   5 * time.Second,
		ExpiresAt:  time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, fx.db.InsertDeviceCode(dc))

	_, err := HandleTokenRequest(context.Background(), fx.deps, fx.realm, Request{
		GrantType:  domain.GrantDeviceCode,
		ClientID:   fx.client.ClientID,
		DeviceCode: dc.DeviceCode,
	}, RequestContext{})
	oe, ok := oautherr.As(err)
	require.True(t, ok)
	require.Equal(t, oautherr.AuthorizationPending, oe.Kind)
}

func TestHandleDeviceCodeGrantApproved(t *testing.T) {
	fx := newFixture(t, domain.ClientPublic, domain.GrantDeviceCode)

	dc := domain.DeviceCode{
		RealmID:    fx.realm.ID,
		DeviceCode: "device-code-value",
		UserCode:   "ABCD-EFGH",
		ClientID:   fx.client.ClientID,
		Scope:      "openid",
		Interval:   5 * time.Second,
		ExpiresAt:  time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, fx.db.InsertDeviceCode(dc))
	require.NoError(t, fx.db.ApproveDeviceCode(fx.realm.ID, dc.UserCode, fx.user.ID))

	result, err := HandleTokenRequest(context.Background(), fx.deps, fx.realm, Request{
		GrantType:  domain.GrantDeviceCode,
		ClientID:   fx.client.ClientID,
		DeviceCode: dc.DeviceCode,
	}, RequestContext{})
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)

	_, found, err := fx.db.GetByDeviceCode(fx.realm.ID, dc.DeviceCode)
	require.NoError(t, err)
	require.False(t, found, "expected device code to be deleted after redemption")
}

func TestHandleDeviceCodeGrantDenied(t *testing.T) {
	fx := newFixture(t, domain.ClientPublic, domain.GrantDeviceCode)

	dc := domain.DeviceCode{
		RealmID:    fx.realm.ID,
		DeviceCode: "device-code-value",
		UserCode:   "ABCD-EFGH",
		ClientID:   fx.client.ClientID,
		Interval:   5 * time.Second,
		ExpiresAt:  time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, fx.db.InsertDeviceCode(dc))
	require.NoError(t, fx.db.DenyDeviceCode(fx.realm.ID, dc.UserCode))

	_, err := HandleTokenRequest(context.Background(), fx.deps, fx.realm, Request{
		GrantType:  domain.GrantDeviceCode,
		ClientID:   fx.client.ClientID,
		DeviceCode: dc.DeviceCode,
	}, RequestContext{})
	oe, ok := oautherr.As(err)
	require.True(t, ok)
	require.Equal(t, oautherr.AccessDenied, oe.Kind)
}

func TestHandleTokenRequestUnsupportedGrantType(t *testing.T) {
	fx := newFixture(t, domain.ClientConfidential, domain.GrantPassword)

	_, err := HandleTokenRequest(context.Background(), fx.deps, fx.realm, Request{
		GrantType: domain.GrantType("urn:ietf:params:oauth:grant-type:jwt-bearer"),
		ClientID:  fx.client.ClientID,
	}, RequestContext{})

	oe, ok := oautherr.As(err)
	require.True(t, ok)
	require.Equal(t, oautherr.UnsupportedGrantType, oe.Kind)
}

var _ store.ClientStore = (*memstore.Store)(nil)
