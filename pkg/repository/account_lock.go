package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis lock defaults.
const (
	DefaultLockTTL       = 10 * time.Second
	DefaultLockRetryWait = 25 * time.Millisecond
)

// ErrLockNotAcquired is returned when the lock is still held when ctx is done.
var ErrLockNotAcquired = errors.New("account lock not acquired")

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisAccountLocker serializes account mutations across processes with SET NX PX.
type RedisAccountLocker struct {
	client    *redis.Client
	prefix    string
	ttl       time.Duration
	retryWait time.Duration
}

// NewRedisAccountLocker creates a Redis-backed account locker.
func NewRedisAccountLocker(client *redis.Client, ttl time.Duration) *RedisAccountLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisAccountLocker{
		client:    client,
		prefix:    "sgm:account-lock:",
		ttl:       ttl,
		retryWait: DefaultLockRetryWait,
	}
}

// Lock blocks until the lock for key is acquired or ctx is done.
// The lock expires after the configured TTL if it is never released.
func (l *RedisAccountLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire account lock: %w", err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.retryWait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %v", ErrLockNotAcquired, ctx.Err())
		case <-timer.C:
		}
	}

	return func() {
		// Release with a fresh context so a cancelled request still frees the key.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
	}, nil
}
