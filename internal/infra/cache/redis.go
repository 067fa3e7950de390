package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache 通过 Redis 实现 domain.Cache，用作图片代理的字节缓存。
type RedisCache struct {
	client *redis.Client
}

// NewRedis 创建缓存。
func NewRedis(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get 返回键对应的字节，键不存在时返回 redis.Nil 错误。
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	return c.client.Get(ctx, key).Bytes()
}

// Set 写入带 TTL 的值。
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}
