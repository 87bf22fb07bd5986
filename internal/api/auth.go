package api

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/Islamawad132/Authme-sub001/internal/api/helpers"
	"github.com/Islamawad132/Authme-sub001/internal/api/middleware"
	"github.com/Islamawad132/Authme-sub001/internal/crypto"
	"github.com/Islamawad132/Authme-sub001/internal/domain"
	"github.com/Islamawad132/Authme-sub001/internal/oautherr"
)

const ssoCookiePrefix = "authme_sso_"

// authParams is the set of authorization-request parameters carried
// through the login form as hidden fields, since the form's own POST
// body is what the browser actually submits back to this endpoint.
type authParams struct {
	ClientID            string
	RedirectURI         string
	Scope               string
	State               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string
}

func parseAuthParams(v url.Values) authParams {
	return authParams{
		ClientID:            v.Get("client_id"),
		RedirectURI:         v.Get("redirect_uri"),
		Scope:               v.Get("scope"),
		State:               v.Get("state"),
		Nonce:               v.Get("nonce"),
		CodeChallenge:       v.Get("code_challenge"),
		CodeChallengeMethod: v.Get("code_challenge_method"),
	}
}

// validateAuthRequest resolves the requesting client and checks it's
// enabled, registered for the authorization_code grant, and redirecting
// to a URI it owns. Unlike grant.ValidateClient (used at the token
// endpoint), it never asks for a client secret: a CONFIDENTIAL client
// authenticates when it redeems the code, not when it sends the browser
// here.
func (s *Server) validateAuthRequest(realm domain.Realm, p authParams) (domain.Client, error) {
	if p.ClientID == "" {
		return domain.Client{}, oautherr.New(oautherr.InvalidRequest, "client_id is required")
	}
	client, found, err := s.deps.Clients.GetByClientID(realm.ID, p.ClientID)
	if err != nil {
		return domain.Client{}, err
	}
	if !found || !client.Enabled {
		return domain.Client{}, oautherr.New(oautherr.InvalidClient, "unknown or disabled client")
	}
	if !client.AllowsGrant(domain.GrantAuthorizationCode) {
		return domain.Client{}, oautherr.New(oautherr.UnauthorizedClient, "client is not registered for the authorization code grant")
	}
	if !client.AllowsRedirectURI(p.RedirectURI) {
		return domain.Client{}, oautherr.New(oautherr.InvalidRequest, "redirect_uri not registered for client")
	}
	return client, nil
}

// handleAuthorize initiates the authorization-code flow: a live SSO
// cookie skips straight to code issuance, otherwise it renders the
// minimal login form this repository carries in place of a themed UI
// (explicitly out of scope per the Non-goals).
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	realm, err := middleware.GetRealm(r.Context())
	if err != nil {
		http.Error(w, "realm not resolved", http.StatusInternalServerError)
		return
	}
	if r.URL.Query().Get("response_type") != "code" {
		helpers.RespondError(w, http.StatusBadRequest, "unsupported_response_type", "only response_type=code is supported")
		return
	}

	p := parseAuthParams(r.URL.Query())
	client, err := s.validateAuthRequest(realm, p)
	if err != nil {
		renderError(w, err)
		return
	}

	if cookie, err := r.Cookie(ssoCookiePrefix + realm.Name); err == nil {
		if ls, found, err := s.deps.LoginSessions.GetLoginSession(crypto.SHA256(cookie.Value)); err == nil && found && ls.ExpiresAt.After(time.Now()) {
			s.issueCodeAndRedirect(w, r, realm, client, ls.UserID, p)
			return
		}
	}

	s.renderLoginForm(w, r, "")
}

func (s *Server) renderLoginForm(w http.ResponseWriter, r *http.Request, errMsg string) {
	csrf, _ := r.Cookie("csrf_token")
	var csrfToken string
	if csrf != nil {
		csrfToken = csrf.Value
	}

	errHTML := ""
	if errMsg != "" {
		errHTML = "<p>" + html.EscapeString(errMsg) + "</p>"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!doctype html>
<html><body>
%s
<form method="post" action="?%s">
<input type="hidden" name="csrf_token" value="%s">
<label>Username <input type="text" name="username"></label>
<label>Password <input type="password" name="password"></label>
<button type="submit">Sign in</button>
</form>
</body></html>`, errHTML, html.EscapeString(r.URL.RawQuery), html.EscapeString(csrfToken))
}

// handleAuthorizeSubmit verifies the submitted credentials and, on
// success, opens a browser SSO session and issues the authorization
// code. It treats query and form authorization parameters the same way
// so a form re-post after a failed login still carries the original
// request.
func (s *Server) handleAuthorizeSubmit(w http.ResponseWriter, r *http.Request) {
	realm, err := middleware.GetRealm(r.Context())
	if err != nil {
		http.Error(w, "realm not resolved", http.StatusInternalServerError)
		return
	}
	if err := r.ParseForm(); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	p := parseAuthParams(r.Form)
	client, err := s.validateAuthRequest(realm, p)
	if err != nil {
		renderError(w, err)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	user, found, err := s.deps.Users.GetByUsername(realm.ID, username)
	if err != nil {
		renderError(w, err)
		return
	}
	if !found || !user.Enabled || user.PasswordHash == nil {
		s.renderLoginForm(w, r, "invalid username or password")
		return
	}
	ok, err := crypto.VerifyPassword(*user.PasswordHash, password)
	if err != nil || !ok {
		s.renderLoginForm(w, r, "invalid username or password")
		return
	}

	secret, err := crypto.GenerateSecret(32)
	if err != nil {
		renderError(w, err)
		return
	}
	ls := domain.LoginSession{
		ID:        uuid.New(),
		RealmID:   realm.ID,
		UserID:    user.ID,
		TokenHash: crypto.SHA256(secret),
		IPAddress: helpers.GetRealIP(r),
		UserAgent: r.UserAgent(),
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if err := s.deps.LoginSessions.PutLoginSession(ls); err != nil {
		renderError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     ssoCookiePrefix + realm.Name,
		Value:    secret,
		Path:     "/realms/" + realm.Name,
		HttpOnly: true,
		Secure:   s.deps.Config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
		Expires:  ls.ExpiresAt,
	})

	s.issueCodeAndRedirect(w, r, realm, client, user.ID, p)
}

func (s *Server) issueCodeAndRedirect(w http.ResponseWriter, r *http.Request, realm domain.Realm, client domain.Client, userID uuid.UUID, p authParams) {
	secret, err := crypto.GenerateSecret(32)
	if err != nil {
		renderError(w, err)
		return
	}
	code := domain.AuthorizationCode{
		ID:                  uuid.New(),
		RealmID:             realm.ID,
		Code:                secret,
		ClientID:            client.ClientID,
		UserID:              userID,
		RedirectURI:         p.RedirectURI,
		Scope:               p.Scope,
		Nonce:               p.Nonce,
		CodeChallenge:       p.CodeChallenge,
		CodeChallengeMethod: p.CodeChallengeMethod,
		ExpiresAt:           time.Now().Add(60 * time.Second),
	}
	if err := s.deps.AuthCodes.InsertAuthCode(code); err != nil {
		renderError(w, err)
		return
	}

	out := url.Values{"code": {code.Code}}
	if p.State != "" {
		out.Set("state", p.State)
	}
	sep := "?"
	if containsQuery(p.RedirectURI) {
		sep = "&"
	}
	http.Redirect(w, r, p.RedirectURI+sep+out.Encode(), http.StatusFound)
}

func containsQuery(uri string) bool {
	u, err := url.Parse(uri)
	return err == nil && u.RawQuery != ""
}
