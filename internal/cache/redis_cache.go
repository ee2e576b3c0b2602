package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the avatar cache.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RedisAvatarCache struct {
	client *redis.Client
	prefix string
}

func NewRedisAvatarCache(cfg RedisConfig, prefix string) (*RedisAvatarCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisAvatarCache{
		client: client,
		prefix: prefix,
	}, nil
}

func (c *RedisAvatarCache) BuildKey(realmID, userID int64, medium bool) string {
	if medium {
		return fmt.Sprintf("%s:avatar:%d:%d:medium", c.prefix, realmID, userID)
	}
	return fmt.Sprintf("%s:avatar:%d:%d", c.prefix, realmID, userID)
}

func (c *RedisAvatarCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", fmt.Errorf("failed to get from redis: %w", err)
	}
	return val, nil
}

func (c *RedisAvatarCache) Set(ctx context.Context, key, avatarURL string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, avatarURL, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (c *RedisAvatarCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}

	return nil
}

func (c *RedisAvatarCache) Close() error {
	return c.client.Close()
}
