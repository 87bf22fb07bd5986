package mfa

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

// redisPendingKeyPrefix namespaces MFA challenge records within a shared
// Redis instance, separating them from the token blacklist's keyspace.
const redisPendingKeyPrefix = "authme:pending:"

// RedisChallengeStore is the multi-replica alternate backing for
// ChallengeStore: an MFA challenge must be consumable from whichever
// replica receives the mfa_otp grant, not just the one that issued it.
type RedisChallengeStore struct {
	client *redis.Client
}

// NewRedisChallengeStore wraps an existing *redis.Client as a
// ChallengeStore backing.
func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{client: client}
}

func (r *RedisChallengeStore) GetChallenge(tokenHash string) (domain.PendingAction, bool, error) {
	raw, err := r.client.Get(context.Background(), redisPendingKeyPrefix+tokenHash).Bytes()
	if err == redis.Nil {
		return domain.PendingAction{}, false, nil
	}
	if err != nil {
		return domain.PendingAction{}, false, err
	}

	var action domain.PendingAction
	if err := json.Unmarshal(raw, &action); err != nil {
		return domain.PendingAction{}, false, err
	}
	return action, true, nil
}

func (r *RedisChallengeStore) PutChallenge(action domain.PendingAction) error {
	raw, err := json.Marshal(action)
	if err != nil {
		return err
	}

	ttl := time.Until(action.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	return r.client.Set(context.Background(), redisPendingKeyPrefix+action.TokenHash, raw, ttl).Err()
}

func (r *RedisChallengeStore) DeleteChallenge(tokenHash string) error {
	return r.client.Del(context.Background(), redisPendingKeyPrefix+tokenHash).Err()
}
