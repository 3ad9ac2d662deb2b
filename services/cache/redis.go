// Package cachesvc stores small encoded lists under one namespace that can be dropped at once.
package cachesvc

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/Shyamyemuka/goldenspire-learn/core"
)

// RedisCache keeps every entry in one redis hash, so invalidation is a single DEL.
type RedisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

func NewRedisCache(client *redis.Client, namespace string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, key: namespace, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, field string) ([]byte, bool, error) {
	val, err := c.client.HGet(ctx, c.key, field).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "redis HGET")
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, field string, val []byte) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, c.key, field, val)
		if c.ttl > 0 {
			pipe.Expire(ctx, c.key, c.ttl)
		}
		return nil
	})
	return errors.Wrap(err, "redis HSET")
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	return errors.Wrap(c.client.Del(ctx, c.key).Err(), "redis DEL")
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
