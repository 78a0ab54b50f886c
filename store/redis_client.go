package store

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisClient adapts a *redis.Client (go-redis/v8, the teacher's own
// dependency) to the Client interface.
type RedisClient struct {
	rdb *redis.Client
}

// NewRedisClient wraps rdb.
func NewRedisClient(rdb *redis.Client) *RedisClient {
	return &RedisClient{rdb: rdb}
}

// Dial builds a RedisClient from a connection string (spec.md §6.4's
// redis_url / store_endpoint configuration option).
func Dial(endpoint string) (*RedisClient, error) {
	opt, err := redis.ParseURL(endpoint)
	if err != nil {
		return nil, err
	}
	return NewRedisClient(redis.NewClient(opt)), nil
}

func (c *RedisClient) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	return c.rdb.Eval(ctx, script, keys, args...).Result()
}

func (c *RedisClient) EvalSha(ctx context.Context, sha string, keys []string, args ...interface{}) (interface{}, error) {
	return c.rdb.EvalSha(ctx, sha, keys, args...).Result()
}

func (c *RedisClient) ScriptLoad(ctx context.Context, script string) (string, error) {
	return c.rdb.ScriptLoad(ctx, script).Result()
}

func (c *RedisClient) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *RedisClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.rdb.TTL(ctx, key).Result()
}

func (c *RedisClient) ZCard(ctx context.Context, key string) (int64, error) {
	return c.rdb.ZCard(ctx, key).Result()
}

// Close releases the underlying connection pool.
func (c *RedisClient) Close() error {
	return c.rdb.Close()
}
