package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

// AvatarCache stores resolved avatar URLs per user and size.
type AvatarCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, avatarURL string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// BuildKey scopes keys by realm so a lookup never crosses tenants.
	BuildKey(realmID, userID int64, medium bool) string
	Close() error
}

// NopCache never stores anything. It is used when caching is disabled.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (string, error) { return "", ErrCacheMiss }
func (NopCache) Set(context.Context, string, string, time.Duration) error { return nil }
func (NopCache) Delete(context.Context, ...string) error { return nil }
func (NopCache) BuildKey(int64, int64, bool) string { return "" }
func (NopCache) Close() error { return nil }
