// Package backchannel implements the C15 backchannel logout: building
// and signing OIDC logout tokens, and fanning them out as POSTs to every
// client registered for a session with bounded concurrency.
package backchannel

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/Islamawad132/Authme-sub001/internal/audit"
	"github.com/Islamawad132/Authme-sub001/internal/domain"
	"github.com/Islamawad132/Authme-sub001/internal/netguard"
	"github.com/Islamawad132/Authme-sub001/internal/store"
	"github.com/Islamawad132/Authme-sub001/internal/tokensvc"
)

// maxConcurrentPosts bounds how many backchannel-logout POSTs run at
// once, so one session spanning many clients can't open an unbounded
// number of outbound connections.
const maxConcurrentPosts = 8

// requestTimeout bounds a single client's backchannel-logout call; a
// slow or hanging RP must not stall the others.
const requestTimeout = 5 * time.Second

// Dependencies bundles the collaborators backchannel logout needs to
// resolve which clients to notify and sign the logout token.
type Dependencies struct {
	Clients store.ClientStore
	Keys    store.SigningKeyStore
	BaseURL string
	// HTTPClient is overridable for tests; a zero value falls back to a
	// client with requestTimeout.
	HTTPClient *http.Client
	Audit      audit.Logger
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

// Result records the outcome of notifying a single client.
type Result struct {
	ClientID string
	Err      error
}

// BuildLogoutToken signs an OIDC backchannel logout token (a JWT with
// "events" carrying the http://schemas.openid.net/event/backchannel-logout
// member, sub, sid, and no nonce, per the OIDC Back-Channel Logout spec).
func BuildLogoutToken(deps Dependencies, realm domain.Realm, userID, sessionID uuid.UUID, audience string) (string, error) {
	key, found, err := deps.Keys.ActiveKey(realm.ID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", tokensvc.ErrNoActiveSigningKey
	}

	payload := map[string]any{
		"iss": deps.BaseURL + "/realms/" + realm.Name,
		"sub": userID.String(),
		"aud": audience,
		"sid": sessionID.String(),
		"events": map[string]any{
			"http://schemas.openid.net/event/backchannel-logout": map[string]any{},
		},
	}

	return tokensvc.SignJwt(payload, key.PrivateKey, key.Kid, 60)
}

// NotifyClients signs one logout token per client in clientIDs and POSTs
// it to each client's BackchannelLogoutURI, up to maxConcurrentPosts at
// a time. Clients with no configured URI are skipped. Results are
// returned for every attempted client; callers decide whether a partial
// failure should surface to the logout caller (per §4.12 it should not
// block the calling session's own logout from completing).
func NotifyClients(ctx context.Context, deps Dependencies, realm domain.Realm, userID, sessionID uuid.UUID, clientIDs []string) []Result {
	sem := make(chan struct{}, maxConcurrentPosts)
	results := make(chan Result, len(clientIDs))

	pending := 0
	for _, clientID := range clientIDs {
		client, found, err := deps.Clients.GetByClientID(realm.ID, clientID)
		if err != nil || !found || client.BackchannelLogoutURI == nil || *client.BackchannelLogoutURI == "" {
			continue
		}

		pending++
		sem <- struct{}{}
		go func(client domain.Client) {
			defer func() { <-sem }()
			err := postLogoutToken(ctx, deps, realm, userID, sessionID, client)
			if err != nil {
				deps.auditLogger().Log(ctx, realm.ID, userID, audit.EventBackchannelFailure, client.ClientID, map[string]string{"error": err.Error()})
			} else {
				deps.auditLogger().Log(ctx, realm.ID, userID, audit.EventBackchannelLogout, client.ClientID, nil)
			}
			results <- Result{ClientID: client.ClientID, Err: err}
		}(client)
	}

	out := make([]Result, 0, pending)
	for i := 0; i < pending; i++ {
		out = append(out, <-results)
	}
	return out
}

func postLogoutToken(ctx context.Context, deps Dependencies, realm domain.Realm, userID, sessionID uuid.UUID, client domain.Client) error {
	uri := *client.BackchannelLogoutURI
	if err := netguard.ValidateOutboundURL(uri); err != nil {
		return err
	}

	token, err := BuildLogoutToken(deps, realm, userID, sessionID, client.ClientID)
	if err != nil {
		return err
	}

	form := url.Values{"logout_token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := deps.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return &LogoutFailure{ClientID: client.ClientID, StatusCode: resp.StatusCode}
	}
	return nil
}

// LogoutFailure reports a non-200 response from a client's backchannel
// logout endpoint.
type LogoutFailure struct {
	ClientID   string
	StatusCode int
}

func (e *LogoutFailure) Error() string {
	return "backchannel logout rejected by client " + e.ClientID
}
