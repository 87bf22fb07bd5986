package api

import (
	"html"
	"net/http"

	"github.com/Islamawad132/Authme-sub001/internal/api/helpers"
	"github.com/Islamawad132/Authme-sub001/internal/api/middleware"
	"github.com/Islamawad132/Authme-sub001/internal/crypto"
	"github.com/Islamawad132/Authme-sub001/internal/devicecode"
)

// deviceAuthorizationResponse is the RFC 8628 §3.2 response shape.
type deviceAuthorizationResponse struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	ExpiresIn               int64  `json:"expires_in"`
	Interval                int64  `json:"interval"`
}

// handleDeviceAuthorization is the machine-to-machine device-authorization
// request a device makes before prompting its user to visit the
// verification page.
func (s *Server) handleDeviceAuthorization(w http.ResponseWriter, r *http.Request) {
	realm, err := middleware.GetRealm(r.Context())
	if err != nil {
		http.Error(w, "realm not resolved", http.StatusInternalServerError)
		return
	}
	if err := r.ParseForm(); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	result, err := devicecode.RequestDeviceCode(s.deps.DeviceCode, realm, s.deps.Config.BaseURL, devicecode.Request{
		ClientID: r.FormValue("client_id"),
		Scope:    r.FormValue("scope"),
	})
	if err != nil {
		renderError(w, err)
		return
	}

	helpers.RespondJSON(w, http.StatusOK, deviceAuthorizationResponse{
		DeviceCode:              result.DeviceCode,
		UserCode:                result.UserCode,
		VerificationURI:         result.VerificationURI,
		VerificationURIComplete: result.VerificationURIComplete,
		ExpiresIn:               result.ExpiresIn,
		Interval:                result.Interval,
	})
}

// handleDeviceVerify renders the verification page: a user_code field
// (prefilled from ?user_code, the RFC 8628 "complete" verification URI
// form factor) plus the same minimal credential fields as the
// authorization-code login form, since no browser session is guaranteed
// to exist yet when a user arrives here directly.
func (s *Server) handleDeviceVerify(w http.ResponseWriter, r *http.Request) {
	s.renderDeviceForm(w, r, r.URL.Query().Get("user_code"), "")
}

func (s *Server) renderDeviceForm(w http.ResponseWriter, r *http.Request, userCode, errMsg string) {
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
	w.Write([]byte(`<!doctype html>
<html><body>
` + errHTML + `
<form method="post">
<input type="hidden" name="csrf_token" value="` + html.EscapeString(csrfToken) + `">
<label>Code <input type="text" name="user_code" value="` + html.EscapeString(userCode) + `"></label>
<label>Username <input type="text" name="username"></label>
<label>Password <input type="password" name="password"></label>
<button type="submit" name="action" value="approve">Approve</button>
<button type="submit" name="action" value="deny">Deny</button>
</form>
</body></html>`))
}

// handleDeviceVerifySubmit authenticates the submitted credentials inline
// (there is no prerequisite login step in this flow) and then approves
// or denies the device code per the submitted action.
func (s *Server) handleDeviceVerifySubmit(w http.ResponseWriter, r *http.Request) {
	realm, err := middleware.GetRealm(r.Context())
	if err != nil {
		http.Error(w, "realm not resolved", http.StatusInternalServerError)
		return
	}
	if err := r.ParseForm(); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	userCode := r.FormValue("user_code")
	username := r.FormValue("username")
	password := r.FormValue("password")
	action := r.FormValue("action")

	user, found, err := s.deps.Users.GetByUsername(realm.ID, username)
	if err != nil {
		renderError(w, err)
		return
	}
	if !found || !user.Enabled || user.PasswordHash == nil {
		s.renderDeviceForm(w, r, userCode, "invalid username or password")
		return
	}
	ok, err := crypto.VerifyPassword(*user.PasswordHash, password)
	if err != nil || !ok {
		s.renderDeviceForm(w, r, userCode, "invalid username or password")
		return
	}

	if action == "deny" {
		if err := devicecode.Deny(s.deps.DeviceCode, realm, userCode); err != nil {
			s.renderDeviceForm(w, r, userCode, err.Error())
			return
		}
	} else {
		if err := devicecode.Approve(s.deps.DeviceCode, realm, userCode, user.ID); err != nil {
			s.renderDeviceForm(w, r, userCode, err.Error())
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(`<!doctype html><html><body><p>You may now return to your device.</p></body></html>`))
}
