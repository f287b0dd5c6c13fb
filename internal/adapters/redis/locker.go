package redis

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
)

var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker holds keys across processes. A lock expires after ttl so a crashed
// holder cannot block a key forever.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	return &Locker{client: client, ttl: ttl, wait: ttl, retry: 25 * time.Millisecond}
}

func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := "lock:" + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "lock %s", key)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, errors.Wrapf(domain.ErrLockTimeout, "lock %s", key)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// Only the holder's token is deleted; an expired lock taken over by
		// another holder stays.
		unlockScript.Run(context.Background(), l.client, []string{fullKey}, token)
	}, nil
}
