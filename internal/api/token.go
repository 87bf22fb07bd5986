package api

import (
	"errors"
	"net/http"

	"github.com/Islamawad132/Authme-sub001/internal/api/helpers"
	"github.com/Islamawad132/Authme-sub001/internal/api/middleware"
	"github.com/Islamawad132/Authme-sub001/internal/domain"
	"github.com/Islamawad132/Authme-sub001/internal/grant"
)

// tokenResponse is the §6 TokenResponse JSON shape.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope"`
	IDToken      string `json:"id_token,omitempty"`
}

// handleToken dispatches every grant_type through grant.HandleTokenRequest
// and renders its result, or the §6 mfa_required branch, or an RFC 6749
// error body.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	realm, err := middleware.GetRealm(r.Context())
	if err != nil {
		http.Error(w, "realm not resolved", http.StatusInternalServerError)
		return
	}

	if err := r.ParseForm(); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	req := grant.Request{
		GrantType:    domain.GrantType(r.FormValue("grant_type")),
		ClientID:     r.FormValue("client_id"),
		ClientSecret: r.FormValue("client_secret"),
		Username:     r.FormValue("username"),
		Password:     r.FormValue("password"),
		Scope:        r.FormValue("scope"),
		Nonce:        r.FormValue("nonce"),
		RefreshToken: r.FormValue("refresh_token"),
		MFAToken:     r.FormValue("mfa_token"),
		MFACode:      r.FormValue("otp"),
		Code:         r.FormValue("code"),
		CodeVerifier: r.FormValue("code_verifier"),
		RedirectURI:  r.FormValue("redirect_uri"),
		DeviceCode:   r.FormValue("device_code"),
	}
	rc := grant.RequestContext{
		IP:        helpers.GetRealIP(r),
		UserAgent: r.UserAgent(),
	}

	result, err := grant.HandleTokenRequest(r.Context(), s.deps.Grant, realm, req, rc)
	if err != nil {
		var mfaErr *grant.MFAChallengeRequired
		if errors.As(err, &mfaErr) {
			helpers.RespondJSON(w, http.StatusOK, map[string]string{
				"error":     "mfa_required",
				"mfa_token": mfaErr.ChallengeToken,
			})
			return
		}
		renderError(w, err)
		return
	}

	helpers.RespondJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  result.AccessToken,
		TokenType:    result.TokenType,
		ExpiresIn:    result.ExpiresIn,
		RefreshToken: result.RefreshToken,
		Scope:        result.Scope,
		IDToken:      result.IDToken,
	})
}
