// Package grant implements the C12 grant pipeline: HandleTokenRequest
// dispatches by grant_type, every grant flows through ValidateClient
// first, and all of them converge on IssueTokens (§4.10).
package grant

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Islamawad132/Authme-sub001/internal/audit"
	"github.com/Islamawad132/Authme-sub001/internal/bruteforce"
	"github.com/Islamawad132/Authme-sub001/internal/claims"
	"github.com/Islamawad132/Authme-sub001/internal/crypto"
	"github.com/Islamawad132/Authme-sub001/internal/domain"
	"github.com/Islamawad132/Authme-sub001/internal/mapper"
	"github.com/Islamawad132/Authme-sub001/internal/mfa"
	"github.com/Islamawad132/Authme-sub001/internal/notify"
	"github.com/Islamawad132/Authme-sub001/internal/oautherr"
	"github.com/Islamawad132/Authme-sub001/internal/scope"
	"github.com/Islamawad132/Authme-sub001/internal/store"
	"github.com/Islamawad132/Authme-sub001/internal/tokensvc"
)

// refreshSecretLen is the byte length fed to crypto.GenerateSecret for a
// new refresh token; hex-encoded this yields a 128-character opaque value.
const refreshSecretLen = 64

// Dependencies bundles every collaborator the grant pipeline touches. A
// single struct keeps HandleTokenRequest's signature manageable across
// six very different grant types that each need a different subset.
type Dependencies struct {
	Clients          store.ClientStore
	Users            store.UserStore
	Roles            store.RoleStore
	Keys             store.SigningKeyStore
	RefreshTokens    store.RefreshTokenStore
	AuthCodes        store.AuthCodeStore
	DeviceCodes      store.DeviceCodeStore
	Sessions         store.SessionStore
	Mappers          scope.MapperStore
	BruteForce       bruteforce.Store
	MFACreds         mfa.CredentialStore
	MFARecoveryCodes mfa.RecoveryCodeStore
	MFAChallenges    mfa.ChallengeStore
	BaseURL          string
	Audit            audit.Logger
	Mailer           notify.EmailSender
}

// auditLogger returns deps.Audit, or a no-op if the caller never wired
// one — tests and lightweight embeddings shouldn't be forced to supply
// an audit sink just to exercise the grant pipeline.
func (d Dependencies) auditLogger() audit.Logger {
	if d.Audit != nil {
		return d.Audit
	}
	return audit.NoopLogger{}
}

func (d Dependencies) mailer() notify.EmailSender {
	if d.Mailer != nil {
		return d.Mailer
	}
	return notify.NoopMailer{}
}

// keyStoreAdapter adapts store.SigningKeyStore (bool-found, domain type)
// to tokensvc.KeyStore (error-only, tokensvc's local SigningKey type).
type keyStoreAdapter struct {
	store.SigningKeyStore
}

func (a keyStoreAdapter) ActiveKey(realmID uuid.UUID) (tokensvc.SigningKey, error) {
	k, found, err := a.SigningKeyStore.ActiveKey(realmID)
	if err != nil {
		return tokensvc.SigningKey{}, err
	}
	if !found {
		return tokensvc.SigningKey{}, tokensvc.ErrNoActiveSigningKey
	}
	return tokensvc.SigningKey{Kid: k.Kid, PublicPem: k.PublicKey, PrivatePem: k.PrivateKey}, nil
}

func (a keyStoreAdapter) KeyByKid(realmID uuid.UUID, kid string) (tokensvc.SigningKey, error) {
	k, found, err := a.SigningKeyStore.KeyByKid(realmID, kid)
	if err != nil {
		return tokensvc.SigningKey{}, err
	}
	if !found {
		return tokensvc.SigningKey{}, tokensvc.ErrInvalidToken
	}
	return tokensvc.SigningKey{Kid: k.Kid, PublicPem: k.PublicKey, PrivatePem: k.PrivateKey}, nil
}

// ValidateClient implements §4.9's ValidateClient: existence, enablement,
// grant-type allowance, and (for CONFIDENTIAL clients only) Argon2id
// secret verification. PUBLIC clients never have their secret read, per
// design note §9 — not even to check it's absent.
func ValidateClient(clients store.ClientStore, realmID uuid.UUID, clientID, clientSecret string, grantType domain.GrantType) (domain.Client, error) {
	if clientID == "" {
		return domain.Client{}, oautherr.New(oautherr.InvalidRequest, "client_id is required")
	}

	client, found, err := clients.GetByClientID(realmID, clientID)
	if err != nil {
		return domain.Client{}, err
	}
	if !found || !client.Enabled {
		return domain.Client{}, oautherr.New(oautherr.InvalidClient, "unknown or disabled client")
	}

	if !client.AllowsGrant(grantType) {
		return domain.Client{}, oautherr.New(oautherr.UnauthorizedClient, "grant type not permitted for this client")
	}

	if client.ClientType == domain.ClientConfidential {
		if clientSecret == "" || client.ClientSecretHash == nil {
			return domain.Client{}, oautherr.New(oautherr.InvalidClient, "client secret required")
		}
		ok, err := crypto.VerifyPassword(*client.ClientSecretHash, clientSecret)
		if err != nil || !ok {
			return domain.Client{}, oautherr.New(oautherr.InvalidClient, "client authentication failed")
		}
	}

	return client, nil
}

// resolveRoles walks a user's direct roles plus every role inherited
// through group membership, following each group's parent chain with a
// visited-set so cyclic group data (which §3 forbids but the walker must
// not trust) cannot loop forever.
func resolveRoles(roles store.RoleStore, userID uuid.UUID) ([]domain.Role, error) {
	var all []domain.Role

	direct, err := roles.DirectRoles(userID)
	if err != nil {
		return nil, err
	}
	all = append(all, direct...)

	groups, err := roles.UserGroups(userID)
	if err != nil {
		return nil, err
	}

	visited := make(map[uuid.UUID]bool)
	queue := make([]uuid.UUID, 0, len(groups))
	for _, g := range groups {
		queue = append(queue, g.ID)
	}

	for len(queue) > 0 {
		gid := queue[0]
		queue = queue[1:]
		if visited[gid] {
			continue
		}
		visited[gid] = true

		groupRoles, err := roles.GroupRoles(gid)
		if err != nil {
			return nil, err
		}
		all = append(all, groupRoles...)

		parent, found, err := roles.ParentGroup(gid)
		if err != nil {
			return nil, err
		}
		if found && !visited[parent.ID] {
			queue = append(queue, parent.ID)
		}
	}
	return all, nil
}

// partitionRoles splits roles into realm-scoped names and a
// resource_access map keyed by client_id, resolving each client-scoped
// role's owning Client to its OAuth client_id string.
func partitionRoles(clients store.ClientStore, roles []domain.Role) (realmRoles []string, resourceAccess map[string][]string, err error) {
	seenRealm := make(map[string]bool)
	resourceAccess = make(map[string][]string)
	seenClientRole := make(map[string]map[string]bool)
	clientIDCache := make(map[uuid.UUID]string)

	for _, r := range roles {
		if r.ClientID == nil {
			if !seenRealm[r.Name] {
				seenRealm[r.Name] = true
				realmRoles = append(realmRoles, r.Name)
			}
			continue
		}

		clientID, cached := clientIDCache[*r.ClientID]
		if !cached {
			c, found, lookupErr := clients.GetClientByRowID(*r.ClientID)
			if lookupErr != nil {
				return nil, nil, lookupErr
			}
			if !found {
				continue
			}
			clientID = c.ClientID
			clientIDCache[*r.ClientID] = clientID
		}

		if seenClientRole[clientID] == nil {
			seenClientRole[clientID] = make(map[string]bool)
		}
		if !seenClientRole[clientID][r.Name] {
			seenClientRole[clientID][r.Name] = true
			resourceAccess[clientID] = append(resourceAccess[clientID], r.Name)
		}
	}
	return realmRoles, resourceAccess, nil
}

// IssueInput is the input to IssueTokens, shared by every grant that
// produces a token response.
type IssueInput struct {
	Realm     domain.Realm
	User      domain.User
	Client    domain.Client
	SessionID uuid.UUID
	Scope     string // raw requested scope string, filtered through Client's configured scopes
	Nonce     string
	AuthTime  *time.Time
}

// IssueResult is the TokenResponse shape of §6.
type IssueResult struct {
	AccessToken  string
	TokenType    string
	ExpiresIn    int64
	RefreshToken string
	Scope        string
	IDToken      string
}

// signedResult holds the access/ID token pair plus the scope bookkeeping
// signTokens resolved, short of minting a refresh token — separated from
// IssueTokens so the refresh_token grant can reuse the signing logic
// while supplying its own already-rotated refresh secret instead of
// minting a second one.
type signedResult struct {
	AccessToken     string
	IDToken         string
	ExpiresIn       int64
	ValidatedScope  string
	EffectiveScopes []string
}

// signTokens resolves the active signing key, validates and filters
// scope, resolves claims and roles, runs protocol mappers, signs the
// access token, and — if openid was granted — signs an ID token bound
// to the access token via at_hash. It does not touch refresh tokens.
func signTokens(deps Dependencies, in IssueInput) (signedResult, error) {
	key, found, err := deps.Keys.ActiveKey(in.Realm.ID)
	if err != nil {
		return signedResult{}, err
	}
	if !found {
		return signedResult{}, tokensvc.ErrNoActiveSigningKey
	}

	effectiveScopes := scope.ClientEffectiveScopes(in.Client, scope.ParseAndValidate(in.Scope))
	validatedScope := scope.ToString(effectiveScopes)

	allowed := scope.ClaimsForScopes(effectiveScopes)
	userClaims := claims.Resolve(in.User, allowed)

	roles, err := resolveRoles(deps.Roles, in.User.ID)
	if err != nil {
		return signedResult{}, err
	}
	realmRoleNames, resourceAccess, err := partitionRoles(deps.Clients, roles)
	if err != nil {
		return signedResult{}, err
	}

	includeRoleClaims := in.Scope == "" || allowed["realm_access"]

	now := time.Now()
	iss := deps.BaseURL + "/realms/" + in.Realm.Name

	payload := map[string]any{
		"iss":   iss,
		"sub":   in.User.ID.String(),
		"aud":   in.Client.ClientID,
		"azp":   in.Client.ClientID,
		"typ":   "Bearer",
		"scope": validatedScope,
		"sid":   in.SessionID.String(),
	}
	for k, v := range userClaims {
		payload[k] = v
	}
	if includeRoleClaims {
		payload["realm_access"] = map[string]any{"roles": realmRoleNames}
		resourceAccessPayload := make(map[string]any, len(resourceAccess))
		for clientID, names := range resourceAccess {
			resourceAccessPayload[clientID] = map[string]any{"roles": names}
		}
		payload["resource_access"] = resourceAccessPayload
	}

	mappers, err := deps.Mappers.ScopeMappers(in.Realm.ID, effectiveScopes)
	if err != nil {
		return signedResult{}, err
	}
	mapperCtx := mapper.Context{
		UserID:         in.User.ID,
		Username:       in.User.Username,
		Email:          in.User.Email,
		EmailVerified:  in.User.EmailVerified,
		FirstName:      in.User.FirstName,
		LastName:       in.User.LastName,
		RealmRoles:     realmRoleNames,
		ResourceAccess: resourceAccess,
	}
	mapper.Apply(mappers, mapperCtx, payload)

	accessTokenTTL := int64(in.Realm.AccessTokenLifespan.Seconds())
	accessToken, err := tokensvc.SignJwt(payload, key.PrivateKey, key.Kid, accessTokenTTL)
	if err != nil {
		return signedResult{}, err
	}

	out := signedResult{
		AccessToken:     accessToken,
		ExpiresIn:       accessTokenTTL,
		ValidatedScope:  validatedScope,
		EffectiveScopes: effectiveScopes,
	}

	if scope.HasOpenid(effectiveScopes) {
		authTime := now
		if in.AuthTime != nil {
			authTime = *in.AuthTime
		}
		idPayload := map[string]any{
			"iss":       iss,
			"sub":       in.User.ID.String(),
			"aud":       in.Client.ClientID,
			"azp":       in.Client.ClientID,
			"typ":       "ID",
			"sid":       in.SessionID.String(),
			"at_hash":   tokensvc.ComputeAtHash(accessToken),
			"auth_time": authTime.Unix(),
			"acr":       "1",
		}
		for k, v := range userClaims {
			idPayload[k] = v
		}
		if in.Nonce != "" {
			idPayload["nonce"] = in.Nonce
		}

		idToken, err := tokensvc.SignJwt(idPayload, key.PrivateKey, key.Kid, accessTokenTTL)
		if err != nil {
			return signedResult{}, err
		}
		out.IDToken = idToken
	}

	return out, nil
}

// mintRefreshToken inserts a new rotation record in sessionID, honoring
// the realm's offline-vs-online lifespan, and returns the opaque secret
// handed to the client.
func mintRefreshToken(deps Dependencies, realm domain.Realm, sessionID uuid.UUID, effectiveScopes []string) (string, error) {
	refreshSecret, err := crypto.GenerateSecret(refreshSecretLen)
	if err != nil {
		return "", err
	}
	isOffline := containsScope(effectiveScopes, scope.OfflineAccess)
	refreshLifespan := realm.RefreshTokenLifespan
	if isOffline {
		refreshLifespan = realm.OfflineTokenLifespan
	}
	refreshToken := domain.RefreshToken{
		ID:        uuid.New(),
		SessionID: sessionID,
		TokenHash: crypto.SHA256(refreshSecret),
		ExpiresAt: time.Now().Add(refreshLifespan),
		IsOffline: isOffline,
		Scope:     scope.ToString(effectiveScopes),
	}
	if err := deps.RefreshTokens.InsertRefreshToken(refreshToken); err != nil {
		return "", err
	}
	return refreshSecret, nil
}

// IssueTokens implements §4.10 end to end for grants that start a fresh
// session: it signs the access/ID token pair via signTokens and mints a
// brand new refresh token in in.SessionID.
func IssueTokens(deps Dependencies, in IssueInput) (IssueResult, error) {
	signed, err := signTokens(deps, in)
	if err != nil {
		return IssueResult{}, err
	}

	refreshSecret, err := mintRefreshToken(deps, in.Realm, in.SessionID, signed.EffectiveScopes)
	if err != nil {
		return IssueResult{}, err
	}

	return IssueResult{
		AccessToken:  signed.AccessToken,
		TokenType:    "Bearer",
		ExpiresIn:    signed.ExpiresIn,
		RefreshToken: refreshSecret,
		Scope:        signed.ValidatedScope,
		IDToken:      signed.IDToken,
	}, nil
}

// alertTokenReuse runs after store.RotateRefreshToken has already revoked
// the whole session in response to reuse; it is purely best-effort
// forensics, so any lookup failure here is swallowed rather than turned
// into a second error on top of the one the caller already has.
func (d Dependencies) alertTokenReuse(ctx context.Context, realm domain.Realm, tokenHash string) {
	rt, found, err := d.RefreshTokens.GetByHash(tokenHash)
	if err != nil || !found {
		return
	}
	sess, found, err := d.Sessions.GetSession(rt.SessionID)
	if err != nil || !found {
		return
	}
	user, found, err := d.Users.GetUserByID(sess.UserID)
	if err != nil || !found {
		return
	}
	d.auditLogger().Log(ctx, realm.ID, user.ID, audit.EventTokenReuseDetected, "refresh_token_grant", map[string]string{"session_id": sess.ID.String()})
	if user.Email != "" {
		_ = d.mailer().SendTokenReuseAlert(ctx, user.Email, sess.IPAddress.String())
	}
}

func containsScope(scopes []string, name string) bool {
	for _, s := range scopes {
		if s == name {
			return true
		}
	}
	return false
}
