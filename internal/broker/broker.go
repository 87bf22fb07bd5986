// Package broker implements the C16 identity broker: initiating a login
// redirect to an external IdP, and fusing its callback into a local
// session by issuing an authorization code for this realm's own token
// endpoint.
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/Islamawad132/Authme-sub001/internal/audit"
	"github.com/Islamawad132/Authme-sub001/internal/crypto"
	"github.com/Islamawad132/Authme-sub001/internal/domain"
	"github.com/Islamawad132/Authme-sub001/internal/netguard"
	"github.com/Islamawad132/Authme-sub001/internal/oautherr"
	"github.com/Islamawad132/Authme-sub001/internal/store"
	"github.com/Islamawad132/Authme-sub001/internal/tokensvc"
)

// stateTTLSeconds bounds how long a broker redirect may take to come back;
// 10 minutes matches the authorization-code TTL ceiling it ultimately feeds.
const stateTTLSeconds = 600

// requestTimeout bounds outbound calls to the external IdP's token and
// userinfo endpoints.
const requestTimeout = 10 * time.Second

// codeTTL is how long the authorization code minted after a successful
// callback fusion remains redeemable at this realm's token endpoint.
const codeTTL = 60 * time.Second

// Dependencies bundles the collaborators the broker needs: IdP
// configuration, local user/federation records, this realm's signing key
// for the state JWT, and the authorization-code store that hands control
// back to the ordinary grant pipeline.
type Dependencies struct {
	IdentityProviders   store.IdentityProviderStore
	FederatedIdentities store.FederatedIdentityStore
	Clients             store.ClientStore
	Users               store.UserStore
	Keys                store.SigningKeyStore
	AuthCodes           store.AuthCodeStore
	BaseURL             string
	HTTPClient          *http.Client
	Audit               audit.Logger
}

func (d Dependencies) auditLogger() audit.Logger {
	if d.Audit != nil {
		return d.Audit
	}
	return audit.NoopLogger{}
}

func (d Dependencies) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return &http.Client{Timeout: requestTimeout}
}

// InitiateParams are the query parameters a client's browser redirect to
// /realms/{realm}/broker/{alias}/login arrives with.
type InitiateParams struct {
	ClientID    string
	RedirectURI string
	Scope       string
	State       string
	Nonce       string
}

// InitiateLogin validates the requesting client and builds the external
// IdP's authorize URL, carrying everything needed to resume the original
// request inside a signed, short-lived state JWT.
func InitiateLogin(deps Dependencies, realm domain.Realm, alias string, params InitiateParams) (string, error) {
	idp, found, err := deps.IdentityProviders.GetByAlias(realm.ID, alias)
	if err != nil {
		return "", err
	}
	if !found || !idp.Enabled {
		return "", oautherr.New(oautherr.InvalidRequest, "unknown or disabled identity provider")
	}

	client, found, err := deps.Clients.GetByClientID(realm.ID, params.ClientID)
	if err != nil {
		return "", err
	}
	if !found || !client.Enabled {
		return "", oautherr.New(oautherr.InvalidClient, "unknown client")
	}
	if !client.AllowsRedirectURI(params.RedirectURI) {
		return "", oautherr.New(oautherr.InvalidRequest, "redirect_uri not registered for client")
	}

	key, found, err := deps.Keys.ActiveKey(realm.ID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", tokensvc.ErrNoActiveSigningKey
	}

	statePayload := map[string]any{
		"typ":         "broker_state",
		"realmId":     realm.ID.String(),
		"realmName":   realm.Name,
		"alias":       alias,
		"clientId":    params.ClientID,
		"redirectUri": params.RedirectURI,
		"scope":       params.Scope,
		"state":       params.State,
		"nonce":       params.Nonce,
	}
	stateJWT, err := tokensvc.SignJwt(statePayload, key.PrivateKey, key.Kid, stateTTLSeconds)
	if err != nil {
		return "", err
	}

	if err := netguard.ValidateOutboundURL(idp.AuthorizationURL); err != nil {
		return "", oautherr.New(oautherr.InvalidRequest, "identity provider endpoint is not reachable")
	}

	callbackURI := fmt.Sprintf("%s/realms/%s/broker/%s/callback", deps.BaseURL, realm.Name, alias)
	q := url.Values{
		"response_type": {"code"},
		"client_id":     {idp.ClientID},
		"scope":         {idp.DefaultScopes},
		"state":         {stateJWT},
		"redirect_uri":  {callbackURI},
	}

	sep := "?"
	if strings.Contains(idp.AuthorizationURL, "?") {
		sep = "&"
	}
	return idp.AuthorizationURL + sep + q.Encode(), nil
}

// externalUserinfo is the subset of an external IdP's userinfo response
// the broker reads to federate identity.
type externalUserinfo struct {
	Sub               string `json:"sub"`
	Email             string `json:"email"`
	EmailVerified     bool   `json:"email_verified"`
	PreferredUsername string `json:"preferred_username"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
}

// HandleCallback verifies the returning state JWT, exchanges the external
// authorization code for tokens, resolves the external subject to a local
// user (per §4.13's three-step fusion), and mints a local authorization
// code so the caller can complete the ordinary authorization_code grant.
// It returns the final redirect URI, carrying that code and the caller's
// original state.
func HandleCallback(ctx context.Context, deps Dependencies, realm domain.Realm, alias, code, stateJWT string) (string, error) {
	key, found, err := deps.Keys.ActiveKey(realm.ID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", tokensvc.ErrNoActiveSigningKey
	}

	claims, err := tokensvc.VerifyJwt(stateJWT, key.PublicKey)
	if err != nil {
		return "", oautherr.New(oautherr.InvalidGrant, "invalid broker state")
	}
	if typ, _ := claims["typ"].(string); typ != "broker_state" {
		return "", oautherr.New(oautherr.InvalidGrant, "invalid broker state")
	}
	if realmID, _ := claims["realmId"].(string); realmID != realm.ID.String() {
		return "", oautherr.New(oautherr.InvalidGrant, "invalid broker state")
	}
	if stateAlias, _ := claims["alias"].(string); stateAlias != alias {
		return "", oautherr.New(oautherr.InvalidGrant, "invalid broker state")
	}

	clientID, _ := claims["clientId"].(string)
	redirectURI, _ := claims["redirectUri"].(string)
	reqScope, _ := claims["scope"].(string)
	nonce, _ := claims["nonce"].(string)
	originalState, _ := claims["state"].(string)

	idp, found, err := deps.IdentityProviders.GetByAlias(realm.ID, alias)
	if err != nil {
		return "", err
	}
	if !found || !idp.Enabled {
		return "", oautherr.New(oautherr.InvalidRequest, "unknown or disabled identity provider")
	}

	clientSecret, err := crypto.OpenIdPSecret(idp.ClientSecretEnc)
	if err != nil {
		return "", err
	}

	tokens, err := exchangeCode(ctx, deps, idp, clientSecret, code, realm.Name)
	if err != nil {
		return "", err
	}

	info, err := fetchUserinfo(ctx, deps, idp, tokens.AccessToken)
	if err != nil {
		return "", err
	}
	if info.Sub == "" {
		if sub, ok := subFromLegacyIDToken(tokens.IDToken, clientSecret); ok {
			info.Sub = sub
		}
	}
	if info.Sub == "" {
		return "", oautherr.New(oautherr.InvalidGrant, "identity provider returned no subject")
	}

	user, err := resolveFederatedUser(deps, realm, idp, info)
	if err != nil {
		if oe, ok := oautherr.As(err); ok && oe.Kind == oautherr.AccessDenied {
			deps.auditLogger().Log(ctx, realm.ID, uuid.Nil, audit.EventBrokerLoginFailed, alias, map[string]string{"reason": "link_only_no_match"})
		}
		return "", err
	}
	deps.auditLogger().Log(ctx, realm.ID, user.ID, audit.EventBrokerLoginSuccess, alias, nil)

	authCode := domain.AuthorizationCode{
		ID:          uuid.New(),
		RealmID:     realm.ID,
		Code:        mustRandomCode(),
		ClientID:    clientID,
		UserID:      user.ID,
		RedirectURI: redirectURI,
		Scope:       reqScope,
		Nonce:       nonce,
		ExpiresAt:   time.Now().Add(codeTTL),
	}
	if err := deps.AuthCodes.InsertAuthCode(authCode); err != nil {
		return "", err
	}

	out := url.Values{"code": {authCode.Code}}
	if originalState != "" {
		out.Set("state", originalState)
	}
	sep := "?"
	if strings.Contains(redirectURI, "?") {
		sep = "&"
	}
	return redirectURI + sep + out.Encode(), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
}

func exchangeCode(ctx context.Context, deps Dependencies, idp domain.IdentityProvider, clientSecret, code, realmName string) (tokenResponse, error) {
	if err := netguard.ValidateOutboundURL(idp.TokenURL); err != nil {
		return tokenResponse{}, oautherr.New(oautherr.InvalidGrant, "identity provider token endpoint unreachable")
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {fmt.Sprintf("%s/realms/%s/broker/%s/callback", deps.BaseURL, realmName, idp.Alias)},
		"client_id":     {idp.ClientID},
		"client_secret": {clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, idp.TokenURL, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return tokenResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := deps.httpClient().Do(req)
	if err != nil {
		return tokenResponse{}, oautherr.New(oautherr.InvalidGrant, "identity provider token exchange failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return tokenResponse{}, oautherr.New(oautherr.InvalidGrant, "identity provider rejected the authorization code")
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return tokenResponse{}, oautherr.New(oautherr.InvalidGrant, "malformed token response")
	}
	return tr, nil
}

func fetchUserinfo(ctx context.Context, deps Dependencies, idp domain.IdentityProvider, accessToken string) (externalUserinfo, error) {
	if err := netguard.ValidateOutboundURL(idp.UserInfoURL); err != nil {
		return externalUserinfo{}, oautherr.New(oautherr.InvalidGrant, "identity provider userinfo endpoint unreachable")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, idp.UserInfoURL, nil)
	if err != nil {
		return externalUserinfo{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := deps.httpClient().Do(req)
	if err != nil {
		return externalUserinfo{}, oautherr.New(oautherr.InvalidGrant, "identity provider userinfo call failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return externalUserinfo{}, oautherr.New(oautherr.InvalidGrant, "identity provider rejected the access token")
	}

	var info externalUserinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return externalUserinfo{}, oautherr.New(oautherr.InvalidGrant, "malformed userinfo response")
	}
	return info, nil
}

// subFromLegacyIDToken recovers the subject claim from an older IdP's
// HS256-signed id_token when the userinfo response omitted one. Current
// federations verify RS256 userinfo directly; this only exists for IdPs
// still issuing HMAC-signed tokens against the shared client secret.
func subFromLegacyIDToken(idToken, clientSecret string) (string, bool) {
	if idToken == "" {
		return "", false
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(idToken, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(clientSecret), nil
	})
	if err != nil {
		return "", false
	}
	sub, ok := claims["sub"].(string)
	return sub, ok && sub != ""
}

// resolveFederatedUser implements the §4.13 three-step identity fusion:
// match an existing federated link, else link an existing user found by
// trusted email, else create fresh (unless the provider is link-only).
func resolveFederatedUser(deps Dependencies, realm domain.Realm, idp domain.IdentityProvider, info externalUserinfo) (domain.User, error) {
	if fi, found, err := deps.FederatedIdentities.GetByExternalID(idp.ID, info.Sub); err != nil {
		return domain.User{}, err
	} else if found {
		user, found, err := deps.Users.GetUserByID(fi.UserID)
		if err != nil {
			return domain.User{}, err
		}
		if !found {
			return domain.User{}, oautherr.New(oautherr.InvalidGrant, "federated user no longer exists")
		}
		if idp.SyncUserProfile {
			user = syncProfile(user, info)
			if err := deps.Users.PutUser(user); err != nil {
				return domain.User{}, err
			}
		}
		return user, nil
	}

	if idp.TrustEmail && info.Email != "" {
		if user, found, err := deps.Users.GetByEmail(realm.ID, info.Email); err != nil {
			return domain.User{}, err
		} else if found {
			if err := deps.FederatedIdentities.Link(domain.FederatedIdentity{
				UserID:             user.ID,
				IdentityProviderID: idp.ID,
				ExternalUserID:     info.Sub,
			}); err != nil {
				return domain.User{}, err
			}
			return user, nil
		}
	}

	if idp.LinkOnly {
		return domain.User{}, oautherr.New(oautherr.AccessDenied, "no local account linked to this identity")
	}

	username := info.PreferredUsername
	if username == "" && info.Email != "" {
		username = strings.SplitN(info.Email, "@", 2)[0]
	}
	if username == "" {
		username = idp.Alias + "-" + info.Sub
	}

	user := domain.User{
		ID:             uuid.New(),
		RealmID:        realm.ID,
		Username:       username,
		Email:          info.Email,
		EmailVerified:  info.EmailVerified,
		FirstName:      info.GivenName,
		LastName:       info.FamilyName,
		Enabled:        true,
		FederationLink: &idp.Alias,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if err := deps.Users.PutUser(user); err != nil {
		return domain.User{}, err
	}
	if err := deps.FederatedIdentities.Link(domain.FederatedIdentity{
		UserID:             user.ID,
		IdentityProviderID: idp.ID,
		ExternalUserID:     info.Sub,
	}); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func syncProfile(user domain.User, info externalUserinfo) domain.User {
	if info.Email != "" {
		user.Email = info.Email
		user.EmailVerified = info.EmailVerified
	}
	if info.GivenName != "" {
		user.FirstName = info.GivenName
	}
	if info.FamilyName != "" {
		user.LastName = info.FamilyName
	}
	user.UpdatedAt = time.Now()
	return user
}

func mustRandomCode() string {
	secret, err := crypto.GenerateSecret(32)
	if err != nil {
		panic(err)
	}
	return secret
}
