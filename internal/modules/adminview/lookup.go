package adminview

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"tourmarket/internal/domain"
)

const (
	serviceNameKeyPrefix   = "svc:name:"
	requesterNameKeyPrefix = "user:name:"
	lookupOpTimeout        = 200 * time.Millisecond
)

// RedisLookupCache resolves display names from Redis. A nil client, a
// timeout or any error is a cache miss; the mirror degrades to placeholder
// labels and never blocks on this path.
type RedisLookupCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLookupCache(client *redis.Client, ttl time.Duration) *RedisLookupCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisLookupCache{client: client, ttl: ttl}
}

func (c *RedisLookupCache) ServiceName(ctx context.Context, id int64) (string, bool) {
	return c.get(ctx, serviceNameKeyPrefix+strconv.FormatInt(id, 10))
}

func (c *RedisLookupCache) RequesterName(ctx context.Context, id int64) (string, bool) {
	return c.get(ctx, requesterNameKeyPrefix+strconv.FormatInt(id, 10))
}

func (c *RedisLookupCache) get(ctx context.Context, key string) (string, bool) {
	if c.client == nil {
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, lookupOpTimeout)
	defer cancel()

	v, err := c.client.Get(ctx, key).Result()
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

// PrimeServices loads service display names into the cache, typically at
// startup from the catalog table. Errors are ignored; the cache is an
// optimization, not a source of truth.
func (c *RedisLookupCache) PrimeServices(ctx context.Context, services []domain.TourService) {
	if c.client == nil {
		return
	}
	for _, s := range services {
		key := serviceNameKeyPrefix + strconv.FormatInt(s.ID, 10)
		_ = c.client.Set(ctx, key, s.Name, c.ttl).Err()
	}
}
