package broker

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/injectfactory/errors"
)

// DefaultRedisKey is the hash holding reference counts when no key is given.
const DefaultRedisKey = "injectfactory:refcounts"

// decrementScript releases one reference and removes the field at zero.
var decrementScript = redis.NewScript(`
local n = redis.call('HINCRBY', KEYS[1], ARGV[1], -1)
if n <= 0 then
  redis.call('HDEL', KEYS[1], ARGV[1])
  return 0
end
return n
`)

// Redis keeps attribute id reference counts in a Redis hash so several
// processes serving the same application share them.
type Redis struct {
	client redis.UniversalClient
	key    string
}

// NewRedis creates a broker storing counts in the hash at key.
func NewRedis(client redis.UniversalClient, key string) (*Redis, error) {
	if client == nil {
		return nil, errors.ErrConfigError("redis broker", errors.New("client cannot be nil"))
	}
	if key == "" {
		key = DefaultRedisKey
	}

	return &Redis{client: client, key: key}, nil
}

func (r *Redis) IncrementAttributeIDRefCount(ctx context.Context, attributeID string) (int, error) {
	n, err := r.client.HIncrBy(ctx, r.key, attributeID, 1).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *Redis) DecrementAttributeIDRefCount(ctx context.Context, attributeID string) (int, error) {
	n, err := decrementScript.Run(ctx, r.client, []string{r.key}, attributeID).Int()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// RefCount returns the current count for attributeID.
func (r *Redis) RefCount(ctx context.Context, attributeID string) (int, error) {
	n, err := r.client.HGet(ctx, r.key, attributeID).Int()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// Reset drops every count.
func (r *Redis) Reset(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}
