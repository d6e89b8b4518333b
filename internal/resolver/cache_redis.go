package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"namespaces/pkg/domain"
)

const displayNameKeyPrefix = "ns:resolve:"

// RedisCache stores resolved display names with a TTL.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(identity domain.Identity) string {
	return displayNameKeyPrefix + identity.String()
}

// Get returns the cached display name. ok is false on a miss.
func (c *RedisCache) Get(ctx context.Context, identity domain.Identity) (name string, ok bool, err error) {
	name, err = c.client.Get(ctx, cacheKey(identity)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

// GetMany returns the cached names for identities; misses are absent from
// the result.
func (c *RedisCache) GetMany(ctx context.Context, identities []domain.Identity) (map[domain.Identity]string, error) {
	if len(identities) == 0 {
		return map[domain.Identity]string{}, nil
	}
	keys := make([]string, len(identities))
	for i, id := range identities {
		keys[i] = cacheKey(id)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Identity]string, len(identities))
	for i, v := range values {
		if s, ok := v.(string); ok {
			out[identities[i]] = s
		}
	}
	return out, nil
}

func (c *RedisCache) Set(ctx context.Context, identity domain.Identity, name string) error {
	return c.client.Set(ctx, cacheKey(identity), name, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, identity domain.Identity) error {
	return c.client.Del(ctx, cacheKey(identity)).Err()
}
