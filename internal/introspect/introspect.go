// Package introspect implements the C14 token-introspection surface:
// RFC 7662 introspection, revocation, the OIDC userinfo endpoint, and
// logout. Every operation here resolves an already-issued token back to
// its owning session rather than minting anything new.
package introspect

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Islamawad132/Authme-sub001/internal/audit"
	"github.com/Islamawad132/Authme-sub001/internal/blacklist"
	"github.com/Islamawad132/Authme-sub001/internal/claims"
	"github.com/Islamawad132/Authme-sub001/internal/crypto"
	"github.com/Islamawad132/Authme-sub001/internal/domain"
	"github.com/Islamawad132/Authme-sub001/internal/scope"
	"github.com/Islamawad132/Authme-sub001/internal/store"
	"github.com/Islamawad132/Authme-sub001/internal/tokensvc"
)

// Dependencies bundles the collaborators introspection, revocation,
// userinfo and logout need to resolve a token back to its session.
type Dependencies struct {
	Keys          store.SigningKeyStore
	Users         store.UserStore
	Sessions      store.SessionStore
	RefreshTokens store.RefreshTokenStore
	Blacklist     blacklist.Interface
	Audit         audit.Logger
}

func (d Dependencies) auditLogger() audit.Logger {
	if d.Audit != nil {
		return d.Audit
	}
	return audit.NoopLogger{}
}

// IntrospectionResult is the RFC 7662 response shape (§6); Active false
// collapses every inactive reason (expired, revoked, blacklisted,
// malformed, unknown key) into a single boolean per the spec's
// information-minimization requirement — the caller must not learn why.
type IntrospectionResult struct {
	Active    bool
	Sub       string
	ClientID  string
	Scope     string
	Exp       int64
	Iat       int64
	TokenType string
}

// Introspect validates token as an access token signed by realm's active
// or retired signing keys, checks it against the blacklist, and reports
// its liveness.
func Introspect(deps Dependencies, realm domain.Realm, token string) (IntrospectionResult, error) {
	claimsMap, ok, err := verifyAccessToken(deps, realm, token)
	if err != nil {
		return IntrospectionResult{}, err
	}
	if !ok {
		return IntrospectionResult{Active: false}, nil
	}

	result := IntrospectionResult{Active: true, TokenType: "Bearer"}
	if sub, ok := claimsMap["sub"].(string); ok {
		result.Sub = sub
	}
	if azp, ok := claimsMap["azp"].(string); ok {
		result.ClientID = azp
	}
	if sc, ok := claimsMap["scope"].(string); ok {
		result.Scope = sc
	}
	if exp, ok := asUnixTime(claimsMap["exp"]); ok {
		result.Exp = exp
	}
	if iat, ok := asUnixTime(claimsMap["iat"]); ok {
		result.Iat = iat
	}
	return result, nil
}

// Revoke implements RFC 7009: revoking a refresh token revokes the whole
// session (cascading to every refresh token issued within it); revoking
// an access token adds its jti to the blacklist until its own exp.
// Unknown tokens are reported as successfully revoked (no oracle).
func Revoke(ctx context.Context, deps Dependencies, realm domain.Realm, token string) error {
	if rt, found, err := deps.RefreshTokens.GetByHash(crypto.SHA256(token)); err == nil && found {
		if err := deps.RefreshTokens.RevokeAllInSession(rt.SessionID); err != nil {
			return err
		}
		if sess, found, _ := deps.Sessions.GetSession(rt.SessionID); found {
			deps.auditLogger().Log(ctx, realm.ID, sess.UserID, audit.EventTokenRevoked, "revoke", map[string]string{"session_id": sess.ID.String()})
		}
		return nil
	} else if err != nil {
		return err
	}

	claimsMap, ok, err := verifyAccessToken(deps, realm, token)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	jti, _ := claimsMap["jti"].(string)
	exp, _ := asUnixTime(claimsMap["exp"])
	if jti != "" {
		deps.Blacklist.Add(jti, time.Unix(exp, 0))
	}
	return nil
}

// UserinfoResult is the OIDC userinfo response (§6): the standard claims
// allowed by the token's own granted scope, nothing more.
type UserinfoResult map[string]any

// Userinfo resolves the subject of a bearer access token and returns the
// standard claims its own scope grants, re-derived from the live user
// record rather than trusting the token's embedded copy.
func Userinfo(deps Dependencies, realm domain.Realm, token string) (UserinfoResult, error) {
	claimsMap, ok, err := verifyAccessToken(deps, realm, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, tokensvc.ErrInvalidToken
	}

	subStr, _ := claimsMap["sub"].(string)
	userID, err := uuid.Parse(subStr)
	if err != nil {
		return nil, tokensvc.ErrInvalidToken
	}

	user, found, err := deps.Users.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if !found || !user.Enabled {
		return nil, tokensvc.ErrInvalidToken
	}

	grantedScope, _ := claimsMap["scope"].(string)
	allowed := scope.ClaimsForScopes(scope.ParseAndValidate(grantedScope))
	out := claims.Resolve(user, allowed)
	out["sub"] = user.ID.String()
	return UserinfoResult(out), nil
}

// Logout closes sessionID and revokes every refresh token issued within
// it, per §4.11's end-session contract.
func Logout(ctx context.Context, deps Dependencies, realm domain.Realm, sessionID uuid.UUID) error {
	if err := deps.RefreshTokens.RevokeAllInSession(sessionID); err != nil {
		return err
	}
	if err := deps.Sessions.CloseSession(sessionID); err != nil {
		return err
	}
	if sess, found, _ := deps.Sessions.GetSession(sessionID); found {
		deps.auditLogger().Log(ctx, realm.ID, sess.UserID, audit.EventSessionClosed, "logout", nil)
	}
	return nil
}

// verifyAccessToken resolves the token's kid, verifies its signature
// against the realm's keys, checks exp/jti blacklist, and returns its
// claim set. The bool return is false (err nil) for every "not a live
// access token" reason, collapsing them per RFC 7662's active=false
// contract.
func verifyAccessToken(deps Dependencies, realm domain.Realm, token string) (map[string]any, bool, error) {
	kid, err := tokensvc.KidFromCompact(token)
	if err != nil {
		return nil, false, nil
	}

	key, found, err := deps.Keys.KeyByKid(realm.ID, kid)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	claimsMap, err := tokensvc.VerifyJwt(token, key.PublicKey)
	if err != nil {
		return nil, false, nil
	}

	if typ, _ := claimsMap["typ"].(string); typ != "Bearer" {
		return nil, false, nil
	}

	jti, _ := claimsMap["jti"].(string)
	if jti != "" && deps.Blacklist.IsBlacklisted(jti) {
		return nil, false, nil
	}

	return claimsMap, true, nil
}

func asUnixTime(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}
