package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryAvatarCache is a per-instance LRU cache with a fixed TTL.
// The ttl passed to Set is ignored in favour of the cache-wide TTL.
type MemoryAvatarCache struct {
	lru    *expirable.LRU[string, string]
	prefix string
}

func NewMemoryAvatarCache(maxEntries int, ttl time.Duration, prefix string) *MemoryAvatarCache {
	return &MemoryAvatarCache{
		lru:    expirable.NewLRU[string, string](maxEntries, nil, ttl),
		prefix: prefix,
	}
}

func (c *MemoryAvatarCache) BuildKey(realmID, userID int64, medium bool) string {
	if medium {
		return fmt.Sprintf("%s:avatar:%d:%d:medium", c.prefix, realmID, userID)
	}
	return fmt.Sprintf("%s:avatar:%d:%d", c.prefix, realmID, userID)
}

func (c *MemoryAvatarCache) Get(_ context.Context, key string) (string, error) {
	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}
	return "", ErrCacheMiss
}

func (c *MemoryAvatarCache) Set(_ context.Context, key, avatarURL string, _ time.Duration) error {
	c.lru.Add(key, avatarURL)
	return nil
}

func (c *MemoryAvatarCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.lru.Remove(k)
	}
	return nil
}

func (c *MemoryAvatarCache) Close() error {
	c.lru.Purge()
	return nil
}
