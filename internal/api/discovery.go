package api

import (
	"net/http"

	"github.com/Islamawad132/Authme-sub001/internal/api/helpers"
	"github.com/Islamawad132/Authme-sub001/internal/api/middleware"
	"github.com/Islamawad132/Authme-sub001/internal/tokensvc"
)

// handleCerts serves the realm's active signing key as a JWKS. The
// SigningKeyStore interface resolves a realm's current key and any
// single named key by kid, not an enumeration of every retired one, so
// this JWKS carries only the key presently minting tokens; a client
// verifying a token signed by a just-rotated-out key instead resolves it
// directly via KeyByKid the way introspection does, not via this
// document.
func (s *Server) handleCerts(w http.ResponseWriter, r *http.Request) {
	realm, err := middleware.GetRealm(r.Context())
	if err != nil {
		http.Error(w, "realm not resolved", http.StatusInternalServerError)
		return
	}

	key, found, err := s.deps.Grant.Keys.ActiveKey(realm.ID)
	if err != nil {
		renderError(w, err)
		return
	}
	if !found {
		helpers.RespondJSON(w, http.StatusOK, tokensvc.JWKS{Keys: []tokensvc.JWK{}})
		return
	}

	jwk, err := tokensvc.PublicKeyToJwk(key.PublicKey, key.Kid)
	if err != nil {
		renderError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, tokensvc.JWKS{Keys: []tokensvc.JWK{jwk}})
}

// discoveryDocument is the subset of an OIDC discovery document this
// realm can back end to end.
type discoveryDocument struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	UserinfoEndpoint                  string   `json:"userinfo_endpoint"`
	IntrospectionEndpoint             string   `json:"introspection_endpoint"`
	RevocationEndpoint                string   `json:"revocation_endpoint"`
	EndSessionEndpoint                string   `json:"end_session_endpoint"`
	JwksURI                           string   `json:"jwks_uri"`
	DeviceAuthorizationEndpoint       string   `json:"device_authorization_endpoint"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	ScopesSupported                   []string `json:"scopes_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	realm, err := middleware.GetRealm(r.Context())
	if err != nil {
		http.Error(w, "realm not resolved", http.StatusInternalServerError)
		return
	}

	base := s.deps.Config.BaseURL + "/realms/" + realm.Name
	doc := discoveryDocument{
		Issuer:                            base,
		AuthorizationEndpoint:             base + "/protocol/openid-connect/auth",
		TokenEndpoint:                     base + "/protocol/openid-connect/token",
		UserinfoEndpoint:                  base + "/protocol/openid-connect/userinfo",
		IntrospectionEndpoint:             base + "/protocol/openid-connect/token/introspect",
		RevocationEndpoint:                base + "/protocol/openid-connect/revoke",
		EndSessionEndpoint:                base + "/protocol/openid-connect/logout",
		JwksURI:                           base + "/protocol/openid-connect/certs",
		DeviceAuthorizationEndpoint:       base + "/protocol/openid-connect/auth/device",
		ResponseTypesSupported:            []string{"code"},
		SubjectTypesSupported:             []string{"public"},
		IDTokenSigningAlgValuesSupported:  []string{"RS256"},
		ScopesSupported:                   []string{"openid", "profile", "email", "offline_access"},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_post", "none"},
		GrantTypesSupported: []string{
			"password", "client_credentials", "refresh_token",
			"authorization_code", "urn:ietf:params:oauth:grant-type:device_code",
		},
		CodeChallengeMethodsSupported: []string{"S256", "plain"},
	}
	helpers.RespondJSON(w, http.StatusOK, doc)
}
