package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robertarktes/pet-services-marketplace/internal/idempotency"
)

const (
	idempotencyPrefix = "idemp:"
	pendingMarker     = "pending"
)

// Replaces a pending marker (or a missing key) with the final response.
var storeResponseScript = redis.NewScript(`
local v = redis.call("get", KEYS[1])
if v == false or v == ARGV[2] then
	return redis.call("set", KEYS[1], ARGV[1], "px", ARGV[3])
end
return 0
`)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Idempotency stores replayable responses under "idemp:<user id>:<key>".
// A request first reserves its key with a pending marker; the first final
// response stored for a key wins.
type Idempotency struct {
	client *redis.Client
}

func NewIdempotency(client *redis.Client) *Idempotency {
	return &Idempotency{client: client}
}

func (i *Idempotency) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return i.client.SetNX(ctx, idempotencyPrefix+key, pendingMarker, ttl).Result()
}

// Get returns the entry for a user-scoped key. A pending reservation comes
// back as a response with status 0.
func (i *Idempotency) Get(ctx context.Context, key string) (*idempotency.Response, error) {
	val, err := i.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if string(val) == pendingMarker {
		return &idempotency.Response{}, nil
	}
	var resp idempotency.Response
	if err := json.Unmarshal(val, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (i *Idempotency) Set(ctx context.Context, key string, resp idempotency.Response, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return storeResponseScript.Run(ctx, i.client, []string{idempotencyPrefix + key},
		data, pendingMarker, ttl.Milliseconds()).Err()
}

func (i *Idempotency) Release(ctx context.Context, key string) error {
	return releaseScript.Run(ctx, i.client, []string{idempotencyPrefix + key}, pendingMarker).Err()
}
