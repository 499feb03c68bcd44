// Package cache provides the shared cache used for rate-limit counters,
// unread-count hints, and hot thread snapshots. A memory provider backs
// single-node deployments; redis backs everything else.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"threadhub/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ===============================
// CACHE INTERFACE
// ===============================

// Cache defines the caching operations the engine relies on.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) bool
	DeletePattern(ctx context.Context, pattern string) error

	SetTTL(ctx context.Context, key string, ttl time.Duration) error

	// Increment and Decrement are atomic; rate limiting depends on that.
	Increment(ctx context.Context, key string, delta int64) (int64, error)
	Decrement(ctx context.Context, key string, delta int64) (int64, error)

	Health(ctx context.Context) error
	Close() error
}

// ===============================
// FACTORY
// ===============================

// New creates a cache instance based on the configured provider.
func New(cfg *config.CacheConfig, logger *zap.Logger) (Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(cfg.Provider) {
	case "redis":
		return newRedisCache(cfg, logger)
	case "memory", "":
		logger.Info("using in-memory cache")
		return NewMemoryCache(cfg.DefaultTTL, logger), nil
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// ===============================
// MEMORY CACHE IMPLEMENTATION
// ===============================

type memoryCache struct {
	mu         sync.Mutex
	items      map[string]*cacheItem
	defaultTTL time.Duration
	logger     *zap.Logger
	stopCh     chan struct{}
	closeOnce  sync.Once
}

type cacheItem struct {
	value     interface{}
	expiresAt time.Time
}

func (i *cacheItem) expired(now time.Time) bool {
	return now.After(i.expiresAt)
}

// NewMemoryCache creates an in-memory cache with background expiry sweeps.
func NewMemoryCache(defaultTTL time.Duration, logger *zap.Logger) Cache {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	c := &memoryCache{
		items:      make(map[string]*cacheItem),
		defaultTTL: defaultTTL,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
	go c.sweep()
	return c
}

func (c *memoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists {
		return nil, false
	}
	if item.expired(time.Now()) {
		delete(c.items, key)
		return nil, false
	}
	return item.value, true
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &cacheItem{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}

func (c *memoryCache) Exists(ctx context.Context, key string) bool {
	_, found := c.Get(ctx, key)
	return found
}

func (c *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.items {
		if matchPattern(key, pattern) {
			delete(c.items, key)
		}
	}
	return nil
}

func (c *memoryCache) SetTTL(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if item, exists := c.items[key]; exists {
		item.expiresAt = time.Now().Add(ttl)
	}
	return nil
}

func (c *memoryCache) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	item, exists := c.items[key]
	if !exists || item.expired(now) {
		c.items[key] = &cacheItem{
			value:     delta,
			expiresAt: now.Add(c.defaultTTL),
		}
		return delta, nil
	}

	switch v := item.value.(type) {
	case int64:
		item.value = v + delta
		return v + delta, nil
	case int:
		newValue := int64(v) + delta
		item.value = newValue
		return newValue, nil
	default:
		return 0, fmt.Errorf("value at %q is not numeric", key)
	}
}

func (c *memoryCache) Decrement(ctx context.Context, key string, delta int64) (int64, error) {
	return c.Increment(ctx, key, -delta)
}

func (c *memoryCache) Health(ctx context.Context) error {
	return nil
}

func (c *memoryCache) Close() error {
	c.closeOnce.Do(func() { close(c.stopCh) })
	return nil
}

func (c *memoryCache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *memoryCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, item := range c.items {
		if item.expired(now) {
			delete(c.items, key)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug("swept expired cache items",
			zap.Int("removed", removed),
			zap.Int("remaining", len(c.items)),
		)
	}
}

// matchPattern supports the trailing-wildcard form the engine uses for
// keys like "thread:42:*".
func matchPattern(key, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(key, strings.TrimSuffix(pattern, "*"))
	}
	if strings.HasPrefix(pattern, "*") {
		return strings.HasSuffix(key, strings.TrimPrefix(pattern, "*"))
	}
	return key == pattern
}

// ===============================
// REDIS CACHE IMPLEMENTATION
// ===============================

type redisCache struct {
	client     *redis.Client
	defaultTTL time.Duration
	logger     *zap.Logger
}

func newRedisCache(cfg *config.CacheConfig, logger *zap.Logger) (Cache, error) {
	var options *redis.Options
	if cfg.RedisURL != "" {
		var err error
		options, err = redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
	} else {
		options = &redis.Options{
			Addr:     "localhost:6379",
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
	}
	if cfg.PoolSize > 0 {
		options.PoolSize = cfg.PoolSize
	}

	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis cache initialized",
		zap.String("addr", options.Addr),
		zap.Int("db", options.DB),
	)

	return &redisCache{
		client:     client,
		defaultTTL: cfg.DefaultTTL,
		logger:     logger,
	}, nil
}

func (r *redisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		r.logger.Error("redis get failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	var result interface{}
	if err := json.Unmarshal([]byte(val), &result); err == nil {
		return result, true
	}
	return val, true
}

func (r *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	var val string
	switch v := value.(type) {
	case string:
		val = v
	case []byte:
		val = string(v)
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal value: %w", err)
		}
		val = string(data)
	}

	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	return r.client.Set(ctx, key, val, ttl).Err()
}

func (r *redisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *redisCache) Exists(ctx context.Context, key string) bool {
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		r.logger.Error("redis exists failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return exists > 0
}

func (r *redisCache) DeletePattern(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		// Delete in batches to avoid holding redis for too long.
		if len(keys) >= 1000 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}
	return nil
}

func (r *redisCache) SetTTL(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	return r.client.Expire(ctx, key, ttl).Err()
}

func (r *redisCache) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	return r.client.IncrBy(ctx, key, delta).Result()
}

func (r *redisCache) Decrement(ctx context.Context, key string, delta int64) (int64, error) {
	return r.client.DecrBy(ctx, key, delta).Result()
}

func (r *redisCache) Health(ctx context.Context) error {
	_, err := r.client.Ping(ctx).Result()
	return err
}

func (r *redisCache) Close() error {
	return r.client.Close()
}
