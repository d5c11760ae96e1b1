package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Cache is a small JSON-over-redis wrapper shared by the dashboard
// counters and the token generator. Keys are namespaced by prefix.
type Cache struct {
	redis  *redis.Client
	prefix string
}

// ErrCacheMiss is returned by Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

func NewCache(redis *redis.Client, prefix string) *Cache {
	return &Cache{
		redis:  redis,
		prefix: prefix,
	}
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.redis.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return errors.Wrap(err, "failed to get from cache")
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, "failed to unmarshal cached data")
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to marshal data for cache")
	}

	if err := c.redis.Set(ctx, c.prefix+key, data, expiration).Err(); err != nil {
		return errors.Wrap(err, "failed to set cache")
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.redis.Del(ctx, c.prefix+key).Err(); err != nil {
		return errors.Wrap(err, "failed to delete from cache")
	}
	return nil
}

// Remember returns the cached value for key, computing and storing it
// via fill on a miss. Cache errors other than a miss fall through to
// fill so redis trouble never blocks a request.
func (c *Cache) Remember(ctx context.Context, key string, dest interface{}, expiration time.Duration, fill func() (interface{}, error)) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	}

	value, err := fill()
	if err != nil {
		return err
	}

	if err := c.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	return c.Get(ctx, key, dest)
}

func (c *Cache) Clear(ctx context.Context) error {
	iter := c.redis.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			return errors.Wrap(err, "failed to clear cache")
		}
	}
	return errors.Wrap(iter.Err(), "failed to iterate over cache keys")
}
