// Package memstore is an in-memory implementation of every repository
// interface in internal/store (plus the narrower store interfaces owned
// by internal/scope, internal/passwordpolicy, internal/mfa, and
// internal/bruteforce). It exists so the grant pipeline and its
// collaborators can be exercised by ordinary *testing.T tests without a
// database — the interface-based design the teacher's own tests show it
// lacked.
package memstore

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Islamawad132/Authme-sub001/internal/bruteforce"
	"github.com/Islamawad132/Authme-sub001/internal/domain"
	"github.com/Islamawad132/Authme-sub001/internal/mfa"
	"github.com/Islamawad132/Authme-sub001/internal/passwordpolicy"
	"github.com/Islamawad132/Authme-sub001/internal/scope"
	"github.com/Islamawad132/Authme-sub001/internal/store"
)

// Store is a single in-process, mutex-guarded backing for every entity
// kind the grant pipeline and its collaborators touch.
type Store struct {
	mu sync.RWMutex

	realms       map[uuid.UUID]domain.Realm
	realmsByName map[string]uuid.UUID

	signingKeys map[uuid.UUID][]domain.SigningKey // by realm

	clients        map[string]domain.Client    // key: realmID/clientID
	clientsByRowID map[uuid.UUID]domain.Client // key: client.ID

	users           map[uuid.UUID]domain.User
	usersByUsername map[string]uuid.UUID // key: realmID/username

	roles      map[uuid.UUID]domain.Role
	userRoles  map[uuid.UUID][]uuid.UUID // userID -> roleIDs
	groups     map[uuid.UUID]domain.Group
	groupRoles map[uuid.UUID][]uuid.UUID // groupID -> roleIDs
	userGroups map[uuid.UUID][]uuid.UUID // userID -> groupIDs

	mappers map[uuid.UUID][]domain.ProtocolMapper // by realm

	sessions      map[uuid.UUID]domain.Session
	refreshTokens map[string]domain.RefreshToken // by hash
	rtByID        map[uuid.UUID]string           // id -> hash

	authCodes   map[string]domain.AuthorizationCode // key: realmID/code
	deviceCodes map[string]domain.DeviceCode        // key: realmID/deviceCode
	userCodes   map[string]string                   // key: realmID/userCode -> deviceCode

	passwordHistory map[string][]domain.PasswordHistory // key: realmID/userID, newest first

	credentials    map[string]domain.UserCredential // key: userID/type
	recoveryCodes  map[uuid.UUID][]domain.RecoveryCode
	pendingActions map[string]domain.PendingAction // by token hash

	bruteForce map[uuid.UUID]bruteforce.State // userID

	identityProviders   map[string]domain.IdentityProvider  // key: realmID/alias
	federatedIdentities map[string]domain.FederatedIdentity // key: idpID/externalUserID

	loginSessions map[string]domain.LoginSession // by token hash
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		realms:              make(map[uuid.UUID]domain.Realm),
		realmsByName:        make(map[string]uuid.UUID),
		signingKeys:         make(map[uuid.UUID][]domain.SigningKey),
		clients:             make(map[string]domain.Client),
		clientsByRowID:      make(map[uuid.UUID]domain.Client),
		users:               make(map[uuid.UUID]domain.User),
		usersByUsername:     make(map[string]uuid.UUID),
		roles:               make(map[uuid.UUID]domain.Role),
		userRoles:           make(map[uuid.UUID][]uuid.UUID),
		groups:              make(map[uuid.UUID]domain.Group),
		groupRoles:          make(map[uuid.UUID][]uuid.UUID),
		userGroups:          make(map[uuid.UUID][]uuid.UUID),
		mappers:             make(map[uuid.UUID][]domain.ProtocolMapper),
		sessions:            make(map[uuid.UUID]domain.Session),
		refreshTokens:       make(map[string]domain.RefreshToken),
		rtByID:              make(map[uuid.UUID]string),
		authCodes:           make(map[string]domain.AuthorizationCode),
		deviceCodes:         make(map[string]domain.DeviceCode),
		userCodes:           make(map[string]string),
		passwordHistory:     make(map[string][]domain.PasswordHistory),
		credentials:         make(map[string]domain.UserCredential),
		recoveryCodes:       make(map[uuid.UUID][]domain.RecoveryCode),
		pendingActions:      make(map[string]domain.PendingAction),
		bruteForce:          make(map[uuid.UUID]bruteforce.State),
		identityProviders:   make(map[string]domain.IdentityProvider),
		federatedIdentities: make(map[string]domain.FederatedIdentity),
		loginSessions:       make(map[string]domain.LoginSession),
	}
}

func clientKey(realmID uuid.UUID, clientID string) string { return realmID.String() + "/" + clientID }

func usernameKey(realmID uuid.UUID, username string) string {
	return realmID.String() + "/" + username
}

// --- store.RealmStore ---

func (s *Store) GetByName(name string) (domain.Realm, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.realmsByName[name]
	if !ok {
		return domain.Realm{}, false, nil
	}
	r, ok := s.realms[id]
	return r, ok, nil
}

func (s *Store) GetRealmByID(id uuid.UUID) (domain.Realm, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.realms[id]
	return r, ok, nil
}

func (s *Store) PutRealm(realm domain.Realm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.realms[realm.ID] = realm
	s.realmsByName[realm.Name] = realm.ID
	return nil
}

// --- store.SigningKeyStore ---

func (s *Store) ActiveKey(realmID uuid.UUID) (domain.SigningKey, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.signingKeys[realmID]
	var best *domain.SigningKey
	for i := range keys {
		k := keys[i]
		if !k.Active {
			continue
		}
		if best == nil || k.CreatedAt.After(best.CreatedAt) {
			best = &keys[i]
		}
	}
	if best == nil {
		return domain.SigningKey{}, false, nil
	}
	return *best, true, nil
}

func (s *Store) KeyByKid(realmID uuid.UUID, kid string) (domain.SigningKey, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.signingKeys[realmID] {
		if k.Kid == kid {
			return k, true, nil
		}
	}
	return domain.SigningKey{}, false, nil
}

func (s *Store) PutSigningKey(key domain.SigningKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signingKeys[key.RealmID] = append(s.signingKeys[key.RealmID], key)
	return nil
}

// --- store.ClientStore ---

func (s *Store) GetByClientID(realmID uuid.UUID, clientID string) (domain.Client, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[clientKey(realmID, clientID)]
	return c, ok, nil
}

func (s *Store) GetClientByRowID(id uuid.UUID) (domain.Client, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clientsByRowID[id]
	return c, ok, nil
}

func (s *Store) PutClient(client domain.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[clientKey(client.RealmID, client.ClientID)] = client
	s.clientsByRowID[client.ID] = client
	return nil
}

// --- store.UserStore ---

func (s *Store) GetByUsername(realmID uuid.UUID, username string) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByUsername[usernameKey(realmID, username)]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *Store) GetByEmail(realmID uuid.UUID, email string) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.RealmID == realmID && u.Email == email {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

func (s *Store) GetUserByID(id uuid.UUID) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *Store) PutUser(user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	s.usersByUsername[usernameKey(user.RealmID, user.Username)] = user.ID
	return nil
}

// --- store.RoleStore ---

func (s *Store) DirectRoles(userID uuid.UUID) ([]domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Role
	for _, roleID := range s.userRoles[userID] {
		if r, ok := s.roles[roleID]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) GroupRoles(groupID uuid.UUID) ([]domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Role
	for _, roleID := range s.groupRoles[groupID] {
		if r, ok := s.roles[roleID]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) UserGroups(userID uuid.UUID) ([]domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Group
	for _, groupID := range s.userGroups[userID] {
		if g, ok := s.groups[groupID]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *Store) ParentGroup(groupID uuid.UUID) (domain.Group, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID]
	if !ok || g.ParentID == nil {
		return domain.Group{}, false, nil
	}
	parent, ok := s.groups[*g.ParentID]
	return parent, ok, nil
}

// Seed helpers below are not part of any store interface; grant-pipeline
// tests use them to build fixtures directly against the concrete Store.

func (s *Store) AssignRole(userID uuid.UUID, role domain.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[role.ID] = role
	s.userRoles[userID] = append(s.userRoles[userID], role.ID)
}

func (s *Store) AssignGroupRole(groupID uuid.UUID, role domain.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[role.ID] = role
	s.groupRoles[groupID] = append(s.groupRoles[groupID], role.ID)
}

func (s *Store) PutGroup(group domain.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[group.ID] = group
}

func (s *Store) AddUserToGroup(userID, groupID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userGroups[userID] = append(s.userGroups[userID], groupID)
}

// --- scope.MapperStore ---

func (s *Store) ScopeMappers(realmID uuid.UUID, scopeNames []string) ([]domain.ProtocolMapper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[string]bool, len(scopeNames))
	for _, n := range scopeNames {
		wanted[n] = true
	}
	var out []domain.ProtocolMapper
	for _, m := range s.mappers[realmID] {
		if wanted[m.ScopeName] {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) PutMapper(m domain.ProtocolMapper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappers[m.RealmID] = append(s.mappers[m.RealmID], m)
}

// --- store.SessionStore ---

func (s *Store) GetSession(id uuid.UUID) (domain.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok, nil
}

func (s *Store) PutSession(session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *Store) CloseSession(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	now := time.Now()
	sess.ClosedAt = &now
	s.sessions[id] = sess
	return nil
}

// --- store.RefreshTokenStore ---

func (s *Store) GetByHash(tokenHash string) (domain.RefreshToken, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rt, ok := s.refreshTokens[tokenHash]
	return rt, ok, nil
}

func (s *Store) InsertRefreshToken(token domain.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens[token.TokenHash] = token
	s.rtByID[token.ID] = token.TokenHash
	return nil
}

func (s *Store) MarkRevoked(id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.rtByID[id]
	if !ok {
		return false, nil
	}
	rt := s.refreshTokens[hash]
	if rt.Revoked {
		return false, nil
	}
	rt.Revoked = true
	now := time.Now()
	rt.RevokedAt = &now
	s.refreshTokens[hash] = rt
	return true, nil
}

func (s *Store) RevokeAllInSession(sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for hash, rt := range s.refreshTokens {
		if rt.SessionID == sessionID {
			rt.Revoked = true
			rt.RevokedAt = &now
			s.refreshTokens[hash] = rt
		}
	}
	return nil
}

// --- store.AuthCodeStore ---

func authCodeKey(realmID uuid.UUID, code string) string { return realmID.String() + "/" + code }

func (s *Store) GetByCode(realmID uuid.UUID, code string) (domain.AuthorizationCode, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.authCodes[authCodeKey(realmID, code)]
	return c, ok, nil
}

func (s *Store) InsertAuthCode(code domain.AuthorizationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authCodes[authCodeKey(code.RealmID, code.Code)] = code
	return nil
}

func (s *Store) MarkCodeUsed(id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, c := range s.authCodes {
		if c.ID == id {
			if c.Used {
				return false, nil
			}
			c.Used = true
			s.authCodes[key] = c
			return true, nil
		}
	}
	return false, nil
}

// --- store.DeviceCodeStore ---

func deviceCodeKey(realmID uuid.UUID, deviceCode string) string {
	return realmID.String() + "/" + deviceCode
}

func userCodeKey(realmID uuid.UUID, userCode string) string {
	return realmID.String() + "/" + userCode
}

func (s *Store) GetByDeviceCode(realmID uuid.UUID, deviceCode string) (domain.DeviceCode, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dc, ok := s.deviceCodes[deviceCodeKey(realmID, deviceCode)]
	return dc, ok, nil
}

func (s *Store) GetByUserCode(realmID uuid.UUID, userCode string) (domain.DeviceCode, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	deviceCode, ok := s.userCodes[userCodeKey(realmID, userCode)]
	if !ok {
		return domain.DeviceCode{}, false, nil
	}
	dc, ok := s.deviceCodes[deviceCodeKey(realmID, deviceCode)]
	return dc, ok, nil
}

func (s *Store) InsertDeviceCode(dc domain.DeviceCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceCodes[deviceCodeKey(dc.RealmID, dc.DeviceCode)] = dc
	s.userCodes[userCodeKey(dc.RealmID, dc.UserCode)] = dc.DeviceCode
	return nil
}

func (s *Store) UpdateLastPolledAt(realmID uuid.UUID, deviceCode string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := deviceCodeKey(realmID, deviceCode)
	dc, ok := s.deviceCodes[key]
	if !ok {
		return nil
	}
	dc.LastPolledAt = at
	s.deviceCodes[key] = dc
	return nil
}

func (s *Store) ApproveDeviceCode(realmID uuid.UUID, userCode string, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	deviceCode, ok := s.userCodes[userCodeKey(realmID, userCode)]
	if !ok {
		return nil
	}
	key := deviceCodeKey(realmID, deviceCode)
	dc := s.deviceCodes[key]
	dc.Approved = true
	dc.UserID = &userID
	s.deviceCodes[key] = dc
	return nil
}

func (s *Store) DenyDeviceCode(realmID uuid.UUID, userCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	deviceCode, ok := s.userCodes[userCodeKey(realmID, userCode)]
	if !ok {
		return nil
	}
	key := deviceCodeKey(realmID, deviceCode)
	dc := s.deviceCodes[key]
	dc.Denied = true
	s.deviceCodes[key] = dc
	return nil
}

func (s *Store) DeleteDeviceCode(realmID uuid.UUID, deviceCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := deviceCodeKey(realmID, deviceCode)
	if dc, ok := s.deviceCodes[key]; ok {
		delete(s.userCodes, userCodeKey(realmID, dc.UserCode))
	}
	delete(s.deviceCodes, key)
	return nil
}

// --- passwordpolicy.HistoryStore ---

func historyKey(realmID, userID uuid.UUID) string { return realmID.String() + "/" + userID.String() }

func (s *Store) RecentHistory(userID, realmID uuid.UUID, n int) ([]domain.PasswordHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.passwordHistory[historyKey(realmID, userID)]
	if n > len(entries) {
		n = len(entries)
	}
	out := make([]domain.PasswordHistory, n)
	copy(out, entries[:n])
	return out, nil
}

func (s *Store) InsertHistory(entry domain.PasswordHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := historyKey(entry.RealmID, entry.UserID)
	s.passwordHistory[key] = append([]domain.PasswordHistory{entry}, s.passwordHistory[key]...)
	return nil
}

func (s *Store) TrimHistory(userID, realmID uuid.UUID, keepNewest int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := historyKey(realmID, userID)
	if entries, ok := s.passwordHistory[key]; ok && len(entries) > keepNewest {
		s.passwordHistory[key] = entries[:keepNewest]
	}
	return nil
}

// --- mfa.CredentialStore ---

func credentialKey(userID uuid.UUID, credType string) string {
	return userID.String() + "/" + credType
}

func (s *Store) Get(userID uuid.UUID, credType string) (domain.UserCredential, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[credentialKey(userID, credType)]
	return c, ok, nil
}

func (s *Store) DeleteUnverified(userID uuid.UUID, credType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := credentialKey(userID, credType)
	if c, ok := s.credentials[key]; ok && !c.Verified {
		delete(s.credentials, key)
	}
	return nil
}

func (s *Store) Put(cred domain.UserCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[credentialKey(cred.UserID, cred.Type)] = cred
	return nil
}

// --- mfa.RecoveryCodeStore ---

func (s *Store) ReplaceAll(userID uuid.UUID, codes []domain.RecoveryCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recoveryCodes[userID] = codes
	return nil
}

func (s *Store) FirstUnused(userID uuid.UUID) (domain.RecoveryCode, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.recoveryCodes[userID] {
		if !c.Used {
			return c, true, nil
		}
	}
	return domain.RecoveryCode{}, false, nil
}

func (s *Store) MarkUsed(userID uuid.UUID, codeHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes := s.recoveryCodes[userID]
	for i, c := range codes {
		if c.CodeHash == codeHash {
			codes[i].Used = true
			return nil
		}
	}
	return nil
}

// --- mfa.ChallengeStore ---

func (s *Store) GetChallenge(tokenHash string) (domain.PendingAction, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.pendingActions[tokenHash]
	return a, ok, nil
}

func (s *Store) PutChallenge(action domain.PendingAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingActions[action.TokenHash] = action
	return nil
}

func (s *Store) DeleteChallenge(tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pendingActions, tokenHash)
	return nil
}

// SweepPendingActions removes pending actions expired as of now and returns
// how many it removed. Nothing in this repository calls it on a timer.
func (s *Store) SweepPendingActions(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for hash, a := range s.pendingActions {
		if now.After(a.ExpiresAt) {
			delete(s.pendingActions, hash)
			removed++
		}
	}
	return removed
}

// --- bruteforce.Store ---

func (s *Store) GetBruteForce(realmID, userID uuid.UUID) (bruteforce.State, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.bruteForce[userID]
	return st, ok, nil
}

func (s *Store) PutBruteForce(st bruteforce.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bruteForce[st.UserID] = st
	return nil
}

// --- identity provider / federation / login sessions ---

func idpKey(realmID uuid.UUID, alias string) string { return realmID.String() + "/" + alias }

func (s *Store) GetByAlias(realmID uuid.UUID, alias string) (domain.IdentityProvider, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idp, ok := s.identityProviders[idpKey(realmID, alias)]
	return idp, ok, nil
}

func (s *Store) PutIdentityProvider(idp domain.IdentityProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identityProviders[idpKey(idp.RealmID, idp.Alias)] = idp
}

func federationKey(idpID uuid.UUID, externalUserID string) string {
	return idpID.String() + "/" + externalUserID
}

func (s *Store) GetByExternalID(idpID uuid.UUID, externalUserID string) (domain.FederatedIdentity, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fi, ok := s.federatedIdentities[federationKey(idpID, externalUserID)]
	return fi, ok, nil
}

func (s *Store) Link(fi domain.FederatedIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.federatedIdentities[federationKey(fi.IdentityProviderID, fi.ExternalUserID)] = fi
	return nil
}

func (s *Store) GetLoginSession(tokenHash string) (domain.LoginSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ls, ok := s.loginSessions[tokenHash]
	return ls, ok, nil
}

func (s *Store) PutLoginSession(ls domain.LoginSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginSessions[ls.TokenHash] = ls
	return nil
}

func (s *Store) DeleteLoginSession(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, ls := range s.loginSessions {
		if ls.ID == id {
			delete(s.loginSessions, hash)
			return nil
		}
	}
	return nil
}

func (s *Store) LoginSessionsByUser(realmID, userID uuid.UUID) ([]domain.LoginSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.LoginSession
	for _, ls := range s.loginSessions {
		if ls.RealmID == realmID && ls.UserID == userID {
			out = append(out, ls)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

var _ store.RealmStore = (*Store)(nil)
var _ store.SigningKeyStore = (*Store)(nil)
var _ store.ClientStore = (*Store)(nil)
var _ store.UserStore = (*Store)(nil)
var _ store.RoleStore = (*Store)(nil)
var _ store.SessionStore = (*Store)(nil)
var _ store.RefreshTokenStore = (*Store)(nil)
var _ store.AuthCodeStore = (*Store)(nil)
var _ store.DeviceCodeStore = (*Store)(nil)
var _ store.IdentityProviderStore = (*Store)(nil)
var _ store.FederatedIdentityStore = (*Store)(nil)
var _ store.LoginSessionStore = (*Store)(nil)
var _ scope.MapperStore = (*Store)(nil)
var _ passwordpolicy.HistoryStore = (*Store)(nil)
var _ mfa.CredentialStore = (*Store)(nil)
var _ mfa.RecoveryCodeStore = (*Store)(nil)
var _ mfa.ChallengeStore = (*Store)(nil)
var _ bruteforce.Store = (*Store)(nil)
