package pgstore

import (
	"github.com/Islamawad132/Authme-sub001/internal/bruteforce"
	"github.com/Islamawad132/Authme-sub001/internal/mfa"
	"github.com/Islamawad132/Authme-sub001/internal/passwordpolicy"
	"github.com/Islamawad132/Authme-sub001/internal/scope"
	"github.com/Islamawad132/Authme-sub001/internal/store"
)

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
