package blacklist

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces blacklist entries within a shared Redis instance.
const keyPrefix = "authme:blacklist:"

// RedisBlacklist is the multi-replica alternate backing for Interface: a
// SET with a TTL equal to the token's own remaining lifetime takes the
// place of the in-memory map's periodic sweep — Redis expires the key
// itself, so Sweep has no Redis-side equivalent.
type RedisBlacklist struct {
	client *redis.Client
}

// NewRedis wraps an existing *redis.Client as a blacklist backing.
func NewRedis(client *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{client: client}
}

// Add blacklists jti with a TTL equal to its remaining lifetime. A jti
// whose exp has already passed is not written (it would expire instantly
// anyway and isn't worth a round trip).
func (r *RedisBlacklist) Add(jti string, exp time.Time) {
	ttl := time.Until(exp)
	if ttl <= 0 {
		return
	}
	r.client.Set(context.Background(), keyPrefix+jti, "1", ttl)
}

// IsBlacklisted reports whether jti has a live entry in Redis.
func (r *RedisBlacklist) IsBlacklisted(jti string) bool {
	n, err := r.client.Exists(context.Background(), keyPrefix+jti).Result()
	if err != nil {
		return false
	}
	return n > 0
}
