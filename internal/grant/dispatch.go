package grant

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/Islamawad132/Authme-sub001/internal/audit"
	"github.com/Islamawad132/Authme-sub001/internal/bruteforce"
	"github.com/Islamawad132/Authme-sub001/internal/crypto"
	"github.com/Islamawad132/Authme-sub001/internal/domain"
	"github.com/Islamawad132/Authme-sub001/internal/mfa"
	"github.com/Islamawad132/Authme-sub001/internal/oautherr"
	"github.com/Islamawad132/Authme-sub001/internal/scope"
	"github.com/Islamawad132/Authme-sub001/internal/session"
	"github.com/Islamawad132/Authme-sub001/internal/store"
)

// Request is the parsed token-endpoint request body (§6), covering every
// grant type's parameters; each handler reads only the fields it needs.
type Request struct {
	GrantType    domain.GrantType
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Scope        string
	Nonce        string
	RefreshToken string
	MFAToken     string
	MFACode      string
	Code         string
	CodeVerifier string
	RedirectURI  string
	DeviceCode   string
}

// RequestContext carries the connection metadata a freshly opened
// session records.
type RequestContext struct {
	IP        net.IP
	UserAgent string
}

// MFAChallengeRequired is returned by the password grant instead of a
// token response when the realm requires MFA and the user has a
// verified credential: the client must resubmit as an mfa_otp grant
// with ChallengeToken as mfa_token.
type MFAChallengeRequired struct {
	ChallengeToken string
}

func (e *MFAChallengeRequired) Error() string { return "mfa challenge required" }

// HandleTokenRequest dispatches req to the handler for its grant type.
// Every path first runs ValidateClient; unsupported or disabled grant
// types never reach a handler.
func HandleTokenRequest(ctx context.Context, deps Dependencies, realm domain.Realm, req Request, rc RequestContext) (IssueResult, error) {
	switch req.GrantType {
	case domain.GrantPassword:
		return handlePassword(ctx, deps, realm, req, rc)
	case domain.GrantMFAOTP:
		return handleMFAOTP(ctx, deps, realm, req, rc)
	case domain.GrantClientCredentials:
		return handleClientCredentials(deps, realm, req, rc)
	case domain.GrantRefreshToken:
		return handleRefreshTokenGrant(ctx, deps, realm, req)
	case domain.GrantAuthorizationCode:
		return handleAuthorizationCode(deps, realm, req, rc)
	case domain.GrantDeviceCode:
		return handleDeviceCodeGrant(deps, realm, req)
	default:
		return IssueResult{}, oautherr.New(oautherr.UnsupportedGrantType, "unsupported grant_type")
	}
}

func handlePassword(ctx context.Context, deps Dependencies, realm domain.Realm, req Request, rc RequestContext) (IssueResult, error) {
	client, err := ValidateClient(deps.Clients, realm.ID, req.ClientID, req.ClientSecret, domain.GrantPassword)
	if err != nil {
		return IssueResult{}, err
	}

	user, found, err := deps.Users.GetByUsername(realm.ID, req.Username)
	if err != nil {
		return IssueResult{}, err
	}
	if !found || !user.Enabled {
		return IssueResult{}, oautherr.New(oautherr.InvalidGrant, "invalid username or password")
	}

	lock, err := bruteforce.CheckLocked(deps.BruteForce, realm, user.ID)
	if err != nil {
		return IssueResult{}, err
	}
	if lock.Locked {
		deps.auditLogger().Log(ctx, realm.ID, user.ID, audit.EventAccountLocked, "password_grant", nil)
		return IssueResult{}, oautherr.New(oautherr.AccessDenied, "account is temporarily locked")
	}

	if user.PasswordHash == nil {
		return IssueResult{}, oautherr.New(oautherr.InvalidGrant, "invalid username or password")
	}
	ok, err := crypto.VerifyPassword(*user.PasswordHash, req.Password)
	if err != nil || !ok {
		_ = bruteforce.RecordFailure(deps.BruteForce, realm, user.ID)
		deps.auditLogger().Log(ctx, realm.ID, user.ID, audit.EventLoginFailed, "password_grant", map[string]string{"client_id": req.ClientID})
		return IssueResult{}, oautherr.New(oautherr.InvalidGrant, "invalid username or password")
	}
	_ = bruteforce.ResetFailures(deps.BruteForce, realm.ID, user.ID)

	if realm.MFARequired {
		cred, found, err := deps.MFACreds.Get(user.ID, "totp")
		if err != nil {
			return IssueResult{}, err
		}
		if found && cred.Verified {
			token, err := mfa.CreateChallenge(deps.MFAChallenges, user.ID, realm.ID, map[string]string{
				"client_id": req.ClientID,
				"scope":     req.Scope,
				"nonce":     req.Nonce,
			})
			if err != nil {
				return IssueResult{}, err
			}
			return IssueResult{}, &MFAChallengeRequired{ChallengeToken: token}
		}
		return IssueResult{}, oautherr.New(oautherr.InvalidGrant, "MFA setup required")
	}

	deps.auditLogger().Log(ctx, realm.ID, user.ID, audit.EventLoginSuccess, "password_grant", map[string]string{"client_id": req.ClientID})
	return openSessionAndIssue(deps, realm, user, client, req.Scope, req.Nonce, rc)
}

func handleMFAOTP(ctx context.Context, deps Dependencies, realm domain.Realm, req Request, rc RequestContext) (IssueResult, error) {
	if _, err := ValidateClient(deps.Clients, realm.ID, req.ClientID, req.ClientSecret, domain.GrantMFAOTP); err != nil {
		return IssueResult{}, err
	}

	data, err := mfa.PeekChallenge(deps.MFAChallenges, req.MFAToken)
	if err != nil {
		return IssueResult{}, oautherr.New(oautherr.InvalidGrant, "invalid or expired mfa challenge")
	}

	ok, err := mfa.VerifyTotp(deps.MFACreds, data.UserID, req.MFACode)
	if err != nil {
		return IssueResult{}, err
	}
	if !ok {
		ok, err = mfa.VerifyRecoveryCode(deps.MFARecoveryCodes, data.UserID, req.MFACode)
		if err != nil {
			return IssueResult{}, err
		}
	}

	if !ok {
		touchErr := mfa.TouchChallengeFailure(deps.MFAChallenges, req.MFAToken)
		if errors.Is(touchErr, mfa.ErrChallengeExhausted) {
			deps.auditLogger().Log(ctx, realm.ID, data.UserID, audit.EventMFAChallengeLocked, "mfa_otp_grant", nil)
			return IssueResult{}, oautherr.New(oautherr.InvalidGrant, "mfa challenge retry limit exceeded")
		}
		deps.auditLogger().Log(ctx, realm.ID, data.UserID, audit.EventMFAChallengeFailed, "mfa_otp_grant", nil)
		return IssueResult{}, oautherr.New(oautherr.InvalidGrant, "invalid mfa code")
	}

	if _, err := mfa.ConsumeChallenge(deps.MFAChallenges, req.MFAToken); err != nil {
		return IssueResult{}, err
	}

	user, found, err := deps.Users.GetUserByID(data.UserID)
	if err != nil {
		return IssueResult{}, err
	}
	if !found || !user.Enabled {
		return IssueResult{}, oautherr.New(oautherr.InvalidGrant, "user no longer available")
	}

	clientID := data.OauthParams["client_id"]
	client, found, err := deps.Clients.GetByClientID(realm.ID, clientID)
	if err != nil {
		return IssueResult{}, err
	}
	if !found {
		return IssueResult{}, oautherr.New(oautherr.InvalidClient, "unknown client")
	}

	deps.auditLogger().Log(ctx, realm.ID, user.ID, audit.EventLoginSuccess, "mfa_otp_grant", map[string]string{"client_id": clientID})
	return openSessionAndIssue(deps, realm, user, client, data.OauthParams["scope"], data.OauthParams["nonce"], rc)
}

func handleClientCredentials(deps Dependencies, realm domain.Realm, req Request, rc RequestContext) (IssueResult, error) {
	client, err := ValidateClient(deps.Clients, realm.ID, req.ClientID, req.ClientSecret, domain.GrantClientCredentials)
	if err != nil {
		return IssueResult{}, err
	}
	if client.ServiceAccountUserID == nil {
		return IssueResult{}, oautherr.New(oautherr.UnauthorizedClient, "client has no service account")
	}

	user, found, err := deps.Users.GetUserByID(*client.ServiceAccountUserID)
	if err != nil {
		return IssueResult{}, err
	}
	if !found || !user.Enabled {
		return IssueResult{}, oautherr.New(oautherr.UnauthorizedClient, "service account disabled")
	}

	return openSessionAndIssue(deps, realm, user, client, req.Scope, "", rc)
}

func handleRefreshTokenGrant(ctx context.Context, deps Dependencies, realm domain.Realm, req Request) (IssueResult, error) {
	client, err := ValidateClient(deps.Clients, realm.ID, req.ClientID, req.ClientSecret, domain.GrantRefreshToken)
	if err != nil {
		return IssueResult{}, err
	}
	if req.RefreshToken == "" {
		return IssueResult{}, oautherr.New(oautherr.InvalidRequest, "refresh_token is required")
	}

	newSecret, err := crypto.GenerateSecret(refreshSecretLen)
	if err != nil {
		return IssueResult{}, err
	}

	rotated, err := store.RotateRefreshToken(
		deps.RefreshTokens,
		crypto.SHA256(req.RefreshToken),
		crypto.SHA256(newSecret),
		realm.RefreshTokenLifespan,
		realm.OfflineTokenLifespan,
		func(existingScope string) string {
			if req.Scope == "" {
				return existingScope
			}
			return scope.ToString(scope.IntersectRequested(scope.ParseAndValidate(req.Scope), scope.ParseAndValidate(existingScope)))
		},
	)
	if err != nil {
		if errors.Is(err, store.ErrRefreshTokenReused) {
			deps.alertTokenReuse(ctx, realm, crypto.SHA256(req.RefreshToken))
		}
		if errors.Is(err, store.ErrRefreshTokenInvalid) || errors.Is(err, store.ErrRefreshTokenReused) {
			return IssueResult{}, oautherr.New(oautherr.InvalidGrant, "refresh token is invalid, expired, or revoked")
		}
		return IssueResult{}, err
	}

	sess, found, err := deps.Sessions.GetSession(rotated.SessionID)
	if err != nil {
		return IssueResult{}, err
	}
	if !found || sess.Closed() {
		return IssueResult{}, oautherr.New(oautherr.InvalidGrant, "session no longer active")
	}

	user, found, err := deps.Users.GetUserByID(sess.UserID)
	if err != nil {
		return IssueResult{}, err
	}
	if !found || !user.Enabled {
		return IssueResult{}, oautherr.New(oautherr.InvalidGrant, "user no longer available")
	}
	deps.auditLogger().Log(ctx, realm.ID, user.ID, audit.EventTokenRefreshed, "refresh_token_grant", map[string]string{"client_id": sess.ClientID})

	signed, err := signTokens(deps, IssueInput{
		Realm:     realm,
		User:      user,
		Client:    client,
		SessionID: sess.ID,
		Scope:     rotated.Scope,
	})
	if err != nil {
		return IssueResult{}, err
	}

	return IssueResult{
		AccessToken:  signed.AccessToken,
		TokenType:    "Bearer",
		ExpiresIn:    signed.ExpiresIn,
		RefreshToken: newSecret,
		Scope:        signed.ValidatedScope,
		IDToken:      signed.IDToken,
	}, nil
}

func handleAuthorizationCode(deps Dependencies, realm domain.Realm, req Request, rc RequestContext) (IssueResult, error) {
	client, err := ValidateClient(deps.Clients, realm.ID, req.ClientID, req.ClientSecret, domain.GrantAuthorizationCode)
	if err != nil {
		return IssueResult{}, err
	}

	code, found, err := deps.AuthCodes.GetByCode(realm.ID, req.Code)
	if err != nil {
		return IssueResult{}, err
	}
	if !found || code.Used || code.Expired(time.Now()) {
		return IssueResult{}, oautherr.New(oautherr.InvalidGrant, "authorization code is invalid, expired, or already used")
	}
	if code.ClientID != client.ClientID {
		return IssueResult{}, oautherr.New(oautherr.InvalidGrant, "authorization code was not issued to this client")
	}
	if code.RedirectURI != req.RedirectURI {
		return IssueResult{}, oautherr.New(oautherr.InvalidGrant, "redirect_uri does not match the authorization request")
	}

	if code.CodeChallenge != "" {
		if !verifyPKCE(code.CodeChallengeMethod, req.CodeVerifier, code.CodeChallenge) {
			return IssueResult{}, oautherr.New(oautherr.InvalidGrant, "PKCE verification failed")
		}
	}

	won, err := deps.AuthCodes.MarkCodeUsed(code.ID)
	if err != nil {
		return IssueResult{}, err
	}
	if !won {
		return IssueResult{}, oautherr.New(oautherr.InvalidGrant, "authorization code is invalid, expired, or already used")
	}

	user, found, err := deps.Users.GetUserByID(code.UserID)
	if err != nil {
		return IssueResult{}, err
	}
	if !found || !user.Enabled {
		return IssueResult{}, oautherr.New(oautherr.InvalidGrant, "user no longer available")
	}

	return openSessionAndIssue(deps, realm, user, client, code.Scope, code.Nonce, rc)
}

func handleDeviceCodeGrant(deps Dependencies, realm domain.Realm, req Request) (IssueResult, error) {
	client, err := ValidateClient(deps.Clients, realm.ID, req.ClientID, req.ClientSecret, domain.GrantDeviceCode)
	if err != nil {
		return IssueResult{}, err
	}

	dc, found, err := deps.DeviceCodes.GetByDeviceCode(realm.ID, req.DeviceCode)
	if err != nil {
		return IssueResult{}, err
	}
	if !found {
		return IssueResult{}, oautherr.New(oautherr.InvalidGrant, "invalid device code")
	}

	now := time.Now()
	if dc.Expired(now) {
		_ = deps.DeviceCodes.DeleteDeviceCode(realm.ID, dc.DeviceCode)
		return IssueResult{}, oautherr.New(oautherr.ExpiredToken, "device code has expired")
	}

	// Update lastPolledAt unconditionally, before computing slow_down, so
	// a client racing the clock can never be starved into a permanent
	// slow_down by comparing against a stale polled-at value.
	tooSoon := !dc.LastPolledAt.IsZero() && now.Sub(dc.LastPolledAt) < dc.Interval
	if err := deps.DeviceCodes.UpdateLastPolledAt(realm.ID, dc.DeviceCode, now); err != nil {
		return IssueResult{}, err
	}
	if tooSoon {
		return IssueResult{}, oautherr.New(oautherr.SlowDown, "polling too frequently")
	}

	if dc.Denied {
		_ = deps.DeviceCodes.DeleteDeviceCode(realm.ID, dc.DeviceCode)
		return IssueResult{}, oautherr.New(oautherr.AccessDenied, "user denied the device authorization request")
	}
	if !dc.Approved || dc.UserID == nil {
		return IssueResult{}, oautherr.New(oautherr.AuthorizationPending, "authorization is still pending")
	}

	user, found, err := deps.Users.GetUserByID(*dc.UserID)
	if err != nil {
		return IssueResult{}, err
	}
	if !found || !user.Enabled {
		return IssueResult{}, oautherr.New(oautherr.InvalidGrant, "user no longer available")
	}

	result, err := openSessionAndIssue(deps, realm, user, client, dc.Scope, "", RequestContext{})
	if err != nil {
		return IssueResult{}, err
	}

	if err := deps.DeviceCodes.DeleteDeviceCode(realm.ID, dc.DeviceCode); err != nil {
		return IssueResult{}, err
	}
	return result, nil
}

// openSessionAndIssue opens a fresh OAuth session and issues its first
// token pair — the convergence point for every grant that establishes a
// brand-new session rather than rotating an existing one.
func openSessionAndIssue(deps Dependencies, realm domain.Realm, user domain.User, client domain.Client, rawScope, nonce string, rc RequestContext) (IssueResult, error) {
	sess, err := session.Open(deps.Sessions, realm.ID, user.ID, client.ClientID, realm.RefreshTokenLifespan, rc.IP, rc.UserAgent)
	if err != nil {
		return IssueResult{}, err
	}

	return IssueTokens(deps, IssueInput{
		Realm:     realm,
		User:      user,
		Client:    client,
		SessionID: sess.ID,
		Scope:     rawScope,
		Nonce:     nonce,
	})
}

// verifyPKCE recomputes the code challenge from verifier under method
// and compares it to challenge. Only S256 (and the explicit "plain"
// passthrough some public clients still use) are supported.
func verifyPKCE(method, verifier, challenge string) bool {
	switch method {
	case "", "plain":
		return verifier == challenge
	case "S256":
		return crypto.S256CodeChallenge(verifier) == challenge
	default:
		return false
	}
}
