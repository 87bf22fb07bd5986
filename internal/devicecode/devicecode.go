// Package devicecode implements the C18 device-authorization request: the
// endpoint a device hits to obtain a device_code/user_code pair, and the
// end-user approve/deny actions the verification page drives. Polling
// and token issuance for an approved code live in internal/grant, which
// consumes the same store.DeviceCodeStore this package writes to.
package devicecode

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/Islamawad132/Authme-sub001/internal/domain"
	"github.com/Islamawad132/Authme-sub001/internal/oautherr"
	"github.com/Islamawad132/Authme-sub001/internal/store"
)

// codeTTL bounds how long an unclaimed device code stays pollable.
const codeTTL = 10 * time.Minute

// defaultInterval is the minimum gap between polls a client must honor
// absent a slow_down response, per RFC 8628 §3.2.
const defaultInterval = 5 * time.Second

// Dependencies bundles the collaborators a device-authorization request
// needs: the client registry (to validate the request) and the
// device-code store it writes the new pending code to.
type Dependencies struct {
	Clients     store.ClientStore
	DeviceCodes store.DeviceCodeStore
}

// Request is the device-authorization-request payload (RFC 8628 §3.1):
// just the requesting client and the scope it wants.
type Request struct {
	ClientID string
	Scope    string
}

// Result is the device-authorization response (RFC 8628 §3.2).
type Result struct {
	DeviceCode              string
	UserCode                string
	VerificationURI         string
	VerificationURIComplete string
	ExpiresIn               int64
	Interval                int64
}

// RequestDeviceCode validates the client and mints a fresh device_code /
// user_code pair, pending user approval at the verification URI.
func RequestDeviceCode(deps Dependencies, realm domain.Realm, baseURL string, req Request) (Result, error) {
	client, found, err := deps.Clients.GetByClientID(realm.ID, req.ClientID)
	if err != nil {
		return Result{}, err
	}
	if !found || !client.Enabled {
		return Result{}, oautherr.New(oautherr.InvalidClient, "unknown or disabled client")
	}
	if !client.AllowsGrant(domain.GrantDeviceCode) {
		return Result{}, oautherr.New(oautherr.UnauthorizedClient, "client is not registered for the device code grant")
	}

	deviceCode, err := randomToken(32)
	if err != nil {
		return Result{}, err
	}
	userCode, err := randomUserCode()
	if err != nil {
		return Result{}, err
	}

	now := time.Now()
	dc := domain.DeviceCode{
		RealmID:    realm.ID,
		DeviceCode: deviceCode,
		UserCode:   userCode,
		ClientID:   req.ClientID,
		Scope:      req.Scope,
		Interval:   defaultInterval,
		ExpiresAt:  now.Add(codeTTL),
		CreatedAt:  now,
	}
	if err := deps.DeviceCodes.InsertDeviceCode(dc); err != nil {
		return Result{}, err
	}

	verificationURI := fmt.Sprintf("%s/realms/%s/device", baseURL, realm.Name)
	return Result{
		DeviceCode:              deviceCode,
		UserCode:                userCode,
		VerificationURI:         verificationURI,
		VerificationURIComplete: verificationURI + "?user_code=" + userCode,
		ExpiresIn:               int64(codeTTL.Seconds()),
		Interval:                int64(defaultInterval.Seconds()),
	}, nil
}

// Approve marks the device code behind userCode as approved for userID,
// once the user, signing in with username and password on the
// verification page, confirms it. The next poll against the matching device_code then succeeds.
func Approve(deps Dependencies, realm domain.Realm, userCode string, userID uuid.UUID) error {
	dc, found, err := deps.DeviceCodes.GetByUserCode(realm.ID, userCode)
	if err != nil {
		return err
	}
	if !found {
		return oautherr.New(oautherr.InvalidRequest, "unknown user code")
	}
	if dc.Expired(time.Now()) {
		return oautherr.New(oautherr.ExpiredToken, "user code has expired")
	}
	if dc.Denied {
		return oautherr.New(oautherr.AccessDenied, "user code was already denied")
	}
	return deps.DeviceCodes.ApproveDeviceCode(realm.ID, userCode, userID)
}

// Deny marks the device code behind userCode as denied; the device's
// next poll receives access_denied and its flow terminates.
func Deny(deps Dependencies, realm domain.Realm, userCode string) error {
	dc, found, err := deps.DeviceCodes.GetByUserCode(realm.ID, userCode)
	if err != nil {
		return err
	}
	if !found {
		return oautherr.New(oautherr.InvalidRequest, "unknown user code")
	}
	return deps.DeviceCodes.DenyDeviceCode(realm.ID, userCode)
}

func randomToken(nBytes int) (string, error) {
	const chars = "abcdefghijklmnopqrstuvwxyz0123456789"
	buf := make([]byte, nBytes)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate device code: %w", err)
		}
		buf[i] = chars[n.Int64()]
	}
	return string(buf), nil
}

// randomUserCode produces an 8-character, visually unambiguous code
// grouped as XXXX-XXXX, the way RFC 8628 examples render it for a human
// to type in.
func randomUserCode() (string, error) {
	const chars = "BCDFGHJKLMNPQRSTVWXZ0123456789" // no vowels, no 1/I/O/0 confusion beyond the fixed zero
	buf := make([]byte, 8)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate user code: %w", err)
		}
		buf[i] = chars[n.Int64()]
	}
	return string(buf[:4]) + "-" + string(buf[4:]), nil
}
