package domain

import (
	"time"

	"github.com/google/uuid"
)

// ClientType distinguishes clients that hold a secret from those that don't.
type ClientType string

const (
	ClientConfidential ClientType = "CONFIDENTIAL"
	ClientPublic       ClientType = "PUBLIC"
)

// GrantType is one of the OAuth2 grants a client may be permitted to use.
type GrantType string

const (
	GrantPassword          GrantType = "password"
	GrantClientCredentials GrantType = "client_credentials"
	GrantRefreshToken      GrantType = "refresh_token"
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantDeviceCode        GrantType = "urn:ietf:params:oauth:grant-type:device_code"
	GrantMFAOTP            GrantType = "mfa_otp"
)

// Client is an application that obtains tokens from a realm.
type Client struct {
	ID                               uuid.UUID
	RealmID                          uuid.UUID
	ClientID                         string
	ClientType                       ClientType
	ClientSecretHash                 *string
	Enabled                          bool
	GrantTypes                       []GrantType
	RedirectURIs                     []string
	WebOrigins                       []string
	DefaultScopes                    []string
	OptionalScopes                   []string
	ServiceAccountUserID             *uuid.UUID
	BackchannelLogoutURI             *string
	BackchannelLogoutSessionRequired bool
	CreatedAt                        time.Time
}

// AllowsGrant reports whether grantType is in the client's configured set.
func (c Client) AllowsGrant(grantType GrantType) bool {
	for _, g := range c.GrantTypes {
		if g == grantType {
			return true
		}
	}
	return false
}

// AllowsRedirectURI reports whether uri is registered for this client.
func (c Client) AllowsRedirectURI(uri string) bool {
	for _, r := range c.RedirectURIs {
		if r == uri {
			return true
		}
	}
	return false
}
