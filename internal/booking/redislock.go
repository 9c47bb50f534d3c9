package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ryankall/clipprmobile-sub007/pkg/logging"
)

// releaseScript deletes the lock key only when the caller still owns it, so a
// lock that expired and was re-acquired by someone else is never stolen back.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is the multi-process Locker, backed by SET NX with a TTL. The
// TTL bounds how long a crashed holder can block a provider.
type RedisLocker struct {
	client        *redis.Client
	ttl           time.Duration
	retryInterval time.Duration
	logger        *logging.Logger
}

// NewRedisLocker creates a distributed per-provider locker.
func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *logging.Logger) *RedisLocker {
	if client == nil {
		panic("booking: redis client required")
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisLocker{
		client:        client,
		ttl:           ttl,
		retryInterval: 25 * time.Millisecond,
		logger:        logger,
	}
}

func lockKey(providerID uuid.UUID) string {
	return "booking:lock:" + providerID.String()
}

// Acquire polls SET NX until the lock is won or ctx expires.
func (l *RedisLocker) Acquire(ctx context.Context, providerID uuid.UUID) (func(), error) {
	key := lockKey(providerID)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("booking: redis lock %s: %w", key, err)
		}
		if ok {
			return func() {
				// Release on a background context so a cancelled request
				// still frees the lock; the TTL covers redis failures.
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
					l.logger.Warn("failed to release booking lock", "key", key, "error", err)
				}
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
