package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "collecte:lock:"

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis leases keys on a shared Redis so several server instances agree.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	token := uuid.NewString()
	fullKey := keyPrefix + key

	err := r.client.SetArgs(ctx, fullKey, token, redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	if errors.Is(err, redis.Nil) {
		return nil, ErrLocked
	}
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, r.client, []string{fullKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release %s: %w", key, err)
		}
		return nil
	}, nil
}
