package devicecode

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Islamawad132/Authme-sub001/internal/domain"
	"github.com/Islamawad132/Authme-sub001/internal/oautherr"
	"github.com/Islamawad132/Authme-sub001/internal/store/memstore"
)

func newFixture(t *testing.T, grants ...domain.GrantType) (*memstore.Store, domain.Realm, domain.Client) {
	t.Helper()
	db := memstore.New()
	realm := domain.Realm{ID: uuid.New(), Name: "test", Enabled: true}
	require.NoError(t, db.PutRealm(realm))
	client := domain.Client{
		ID: uuid.New(), RealmID: realm.ID, ClientID: "tv-app", ClientType: domain.ClientPublic,
		Enabled: true, GrantTypes: grants,
	}
	require.NoError(t, db.PutClient(client))
	return db, realm, client
}

func TestRequestDeviceCodeProducesPollablePair(t *testing.T) {
	db, realm, client := newFixture(t, domain.GrantDeviceCode)
	deps := Dependencies{Clients: db, DeviceCodes: db}

	result, err := RequestDeviceCode(deps, realm, "https://idp.example.com", Request{ClientID: client.ClientID, Scope: "openid"})
	require.NoError(t, err)
	require.NotEmpty(t, result.DeviceCode)
	require.NotEmpty(t, result.UserCode)
	require.Contains(t, result.VerificationURIComplete, result.UserCode)
	require.Positive(t, result.Interval)
	require.Positive(t, result.ExpiresIn)

	dc, found, err := db.GetByDeviceCode(realm.ID, result.DeviceCode)
	require.NoError(t, err)
	require.True(t, found)
	require.False(t, dc.Approved)
	require.False(t, dc.Denied)
}

func TestRequestDeviceCodeRejectsClientWithoutGrant(t *testing.T) {
	db, realm, client := newFixture(t, domain.GrantPassword)
	deps := Dependencies{Clients: db, DeviceCodes: db}

	_, err := RequestDeviceCode(deps, realm, "https://idp.example.com", Request{ClientID: client.ClientID})
	oe, ok := oautherr.As(err)
	require.True(t, ok)
	require.Equal(t, oautherr.UnauthorizedClient, oe.Kind)
}

func TestApproveMarksDeviceCodeApproved(t *testing.T) {
	db, realm, client := newFixture(t, domain.GrantDeviceCode)
	deps := Dependencies{Clients: db, DeviceCodes: db}

	result, err := RequestDeviceCode(deps, realm, "https://idp.example.com", Request{ClientID: client.ClientID})
	require.NoError(t, err)

	userID := uuid.New()
	require.NoError(t, Approve(deps, realm, result.UserCode, userID))

	dc, found, err := db.GetByDeviceCode(realm.ID, result.DeviceCode)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, dc.Approved)
	require.NotNil(t, dc.UserID)
	require.Equal(t, userID, *dc.UserID)
}

func TestDenyMarksDeviceCodeDenied(t *testing.T) {
	db, realm, client := newFixture(t, domain.GrantDeviceCode)
	deps := Dependencies{Clients: db, DeviceCodes: db}

	result, err := RequestDeviceCode(deps, realm, "https://idp.example.com", Request{ClientID: client.ClientID})
	require.NoError(t, err)

	require.NoError(t, Deny(deps, realm, result.UserCode))

	dc, found, err := db.GetByDeviceCode(realm.ID, result.DeviceCode)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, dc.Denied)
}

func TestApproveRejectsUnknownUserCode(t *testing.T) {
	db, realm, _ := newFixture(t, domain.GrantDeviceCode)
	deps := Dependencies{Clients: db, DeviceCodes: db}

	err := Approve(deps, realm, "ZZZZ-ZZZZ", uuid.New())
	oe, ok := oautherr.As(err)
	require.True(t, ok)
	require.Equal(t, oautherr.InvalidRequest, oe.Kind)
}

func TestApproveRejectsExpiredCode(t *testing.T) {
	db, realm, client := newFixture(t, domain.GrantDeviceCode)
	deps := Dependencies{Clients: db, DeviceCodes: db}

	result, err := RequestDeviceCode(deps, realm, "https://idp.example.com", Request{ClientID: client.ClientID})
	require.NoError(t, err)

	dc, _, _ := db.GetByDeviceCode(realm.ID, result.DeviceCode)
	dc.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, db.InsertDeviceCode(dc), "failed to force-expire the device code")

	err = Approve(deps, realm, result.UserCode, uuid.New())
	oe, ok := oautherr.As(err)
	require.True(t, ok)
	require.Equal(t, oautherr.ExpiredToken, oe.Kind)
}
