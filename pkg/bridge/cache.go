package bridge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/sessionkit/pkg/cache"
	"github.com/dmitrymomot/sessionkit/pkg/identity"
	"github.com/dmitrymomot/sessionkit/pkg/logger"
	"github.com/dmitrymomot/sessionkit/pkg/redis"
)

// UserCache remembers which user an access token resolved to for a short
// while, so a burst of page loads costs one identity service round trip.
// Implementations must be safe for concurrent use and never fail loudly:
// a cache error is a miss.
type UserCache interface {
	Get(ctx context.Context, key string) (*identity.User, bool)
	Set(ctx context.Context, key string, user *identity.User)
	Delete(ctx context.Context, key string)
}

// cacheKey hashes the access token so raw tokens never become cache keys.
func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// MemoryUserCache is a process-local UserCache.
type MemoryUserCache struct {
	lru *cache.LRU[string, identity.User]
}

func NewMemoryUserCache(capacity int, ttl time.Duration, opts ...cache.Option) *MemoryUserCache {
	return &MemoryUserCache{lru: cache.NewLRU[string, identity.User](capacity, ttl, opts...)}
}

func (c *MemoryUserCache) Get(_ context.Context, key string) (*identity.User, bool) {
	user, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return &user, true
}

func (c *MemoryUserCache) Set(_ context.Context, key string, user *identity.User) {
	if user == nil {
		return
	}
	c.lru.Put(key, *user)
}

func (c *MemoryUserCache) Delete(_ context.Context, key string) {
	c.lru.Remove(key)
}

// RedisUserCache shares resolved users between gateway replicas.
type RedisUserCache struct {
	store  *redis.Store[identity.User]
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisUserCache keeps users under "<prefix>:<key>" for ttl.
func NewRedisUserCache(client goredis.UniversalClient, prefix string, ttl time.Duration, l *slog.Logger) *RedisUserCache {
	if l == nil {
		l = logger.Discard()
	}
	return &RedisUserCache{
		store:  redis.NewStore[identity.User](client, prefix),
		ttl:    ttl,
		logger: l,
	}
}

func (c *RedisUserCache) Get(ctx context.Context, key string) (*identity.User, bool) {
	user, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.warn(ctx, "get", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return &user, true
}

func (c *RedisUserCache) Set(ctx context.Context, key string, user *identity.User) {
	if user == nil {
		return
	}
	if err := c.store.Set(ctx, key, *user, c.ttl); err != nil {
		c.warn(ctx, "set", err)
	}
}

func (c *RedisUserCache) Delete(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.warn(ctx, "delete", err)
	}
}

func (c *RedisUserCache) warn(ctx context.Context, op string, err error) {
	c.logger.WarnContext(ctx, "user cache unavailable",
		logger.Component("bridge"),
		logger.Event("cache."+op),
		logger.Error(err),
	)
}
