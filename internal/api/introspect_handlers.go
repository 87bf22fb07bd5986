package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/Islamawad132/Authme-sub001/internal/api/helpers"
	"github.com/Islamawad132/Authme-sub001/internal/api/middleware"
	"github.com/Islamawad132/Authme-sub001/internal/backchannel"
	"github.com/Islamawad132/Authme-sub001/internal/crypto"
	"github.com/Islamawad132/Authme-sub001/internal/introspect"
)

// introspectionResponse is the RFC 7662 response shape: active:false
// collapses every inactive reason into a single boolean, so only the
// active branch carries the rest of the fields.
type introspectionResponse struct {
	Active    bool   `json:"active"`
	Sub       string `json:"sub,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Scope     string `json:"scope,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
	TokenType string `json:"token_type,omitempty"`
}

func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	realm, err := middleware.GetRealm(r.Context())
	if err != nil {
		http.Error(w, "realm not resolved", http.StatusInternalServerError)
		return
	}
	if err := r.ParseForm(); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	token := r.FormValue("token")
	if token == "" {
		helpers.RespondError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	result, err := introspect.Introspect(s.deps.Introspect, realm, token)
	if err != nil {
		renderError(w, err)
		return
	}

	helpers.RespondJSON(w, http.StatusOK, introspectionResponse{
		Active:    result.Active,
		Sub:       result.Sub,
		ClientID:  result.ClientID,
		Scope:     result.Scope,
		Exp:       result.Exp,
		Iat:       result.Iat,
		TokenType: result.TokenType,
	})
}

// handleRevoke implements RFC 7009: always 200, even for an unknown
// token, so the response is never an oracle for which tokens exist.
func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	realm, err := middleware.GetRealm(r.Context())
	if err != nil {
		http.Error(w, "realm not resolved", http.StatusInternalServerError)
		return
	}
	if err := r.ParseForm(); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	token := r.FormValue("token")
	if token == "" {
		helpers.RespondError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	if err := introspect.Revoke(r.Context(), s.deps.Introspect, realm, token); err != nil {
		renderError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleUserinfo(w http.ResponseWriter, r *http.Request) {
	realm, err := middleware.GetRealm(r.Context())
	if err != nil {
		http.Error(w, "realm not resolved", http.StatusInternalServerError)
		return
	}

	token := bearerToken(r)
	if token == "" {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		helpers.RespondError(w, http.StatusUnauthorized, "invalid_token", "bearer token required")
		return
	}

	claims, err := introspect.Userinfo(s.deps.Introspect, realm, token)
	if err != nil {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		renderError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, claims)
}

// handleLogout closes the session behind refresh_token, revokes every
// refresh token issued within it, and best-effort notifies the session's
// client via backchannel logout — a slow or failing RP must never block
// the calling session's own logout from completing (§4.12).
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	realm, err := middleware.GetRealm(r.Context())
	if err != nil {
		http.Error(w, "realm not resolved", http.StatusInternalServerError)
		return
	}
	if err := r.ParseForm(); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	refreshToken := r.FormValue("refresh_token")
	if refreshToken == "" {
		helpers.RespondError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	rt, found, err := s.deps.RefreshTokens.GetByHash(crypto.SHA256(refreshToken))
	if err != nil {
		renderError(w, err)
		return
	}
	if !found {
		helpers.RespondError(w, http.StatusBadRequest, "invalid_grant", "unknown refresh token")
		return
	}

	sess, found, err := s.deps.Sessions.GetSession(rt.SessionID)
	if err != nil {
		renderError(w, err)
		return
	}

	if err := introspect.Logout(r.Context(), s.deps.Introspect, realm, rt.SessionID); err != nil {
		renderError(w, err)
		return
	}

	if found {
		go backchannel.NotifyClients(context.Background(), s.deps.Backchannel, realm, sess.UserID, sess.ID, []string{sess.ClientID})
	}

	w.WriteHeader(http.StatusNoContent)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return h[len(prefix):]
	}
	return ""
}
