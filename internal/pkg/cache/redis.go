package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"transgate/internal/config"
)

// RedisCache Redis 封装
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache 创建 Redis 客户端
func NewRedisCache(cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{client: client}, nil
}

// Incr 计数加一；ttl 大于 0 时同时设置过期时间
func (c *RedisCache) Incr(ctx context.Context, key string, ttl time.Duration) error {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, key)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Int 读取计数，key 不存在时返回 0
func (c *RedisCache) Int(ctx context.Context, key string) (int64, error) {
	n, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Ping 检查连接是否可用
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close 关闭连接
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// 统计计数 key
const (
	StatsTotalKey       = "transgate:stats:total"
	StatsDailyKeyPrefix = "transgate:stats:daily:"
	StatsDailyTTL       = 48 * time.Hour
)

// StatsDailyKey 生成按天计数的 key
func StatsDailyKey(day time.Time) string {
	return StatsDailyKeyPrefix + day.Format("20060102")
}
