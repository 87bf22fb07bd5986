package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Islamawad132/Authme-sub001/internal/api/middleware"
	"github.com/Islamawad132/Authme-sub001/internal/broker"
)

// handleBrokerLogin redirects the browser to the external identity
// provider named by {alias}, carrying the original client request inside
// a signed state JWT so HandleCallback can resume it.
func (s *Server) handleBrokerLogin(w http.ResponseWriter, r *http.Request) {
	realm, err := middleware.GetRealm(r.Context())
	if err != nil {
		http.Error(w, "realm not resolved", http.StatusInternalServerError)
		return
	}
	alias := chi.URLParam(r, "alias")

	q := r.URL.Query()
	redirectURL, err := broker.InitiateLogin(s.deps.Broker, realm, alias, broker.InitiateParams{
		ClientID:    q.Get("client_id"),
		RedirectURI: q.Get("redirect_uri"),
		Scope:       q.Get("scope"),
		State:       q.Get("state"),
		Nonce:       q.Get("nonce"),
	})
	if err != nil {
		renderError(w, err)
		return
	}

	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// handleBrokerCallback completes the external IdP's redirect back,
// fusing the federated identity into a local user and handing control
// back to the client's original redirect_uri with a freshly minted
// authorization code.
func (s *Server) handleBrokerCallback(w http.ResponseWriter, r *http.Request) {
	realm, err := middleware.GetRealm(r.Context())
	if err != nil {
		http.Error(w, "realm not resolved", http.StatusInternalServerError)
		return
	}
	alias := chi.URLParam(r, "alias")
	q := r.URL.Query()

	redirectURL, err := broker.HandleCallback(r.Context(), s.deps.Broker, realm, alias, q.Get("code"), q.Get("state"))
	if err != nil {
		renderError(w, err)
		return
	}

	http.Redirect(w, r, redirectURL, http.StatusFound)
}
