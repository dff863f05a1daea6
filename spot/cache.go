package spot

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/warp/bullion-desk/bullion"
	"github.com/warp/bullion-desk/logger"
)

const (
	currentKey = "spot:current"
	lastKey    = "spot:last"
)

// Cache stores spot prices. A ttl of 0 means no expiry.
type Cache interface {
	Get(ctx context.Context, key string) (bullion.SpotPrices, bool, error)
	Set(ctx context.Context, key string, prices bullion.SpotPrices, ttl time.Duration) error
}

// =============================================================================
// MEMORY CACHE
// =============================================================================

// MemoryCache is a process-local cache.
type MemoryCache struct {
	c *gocache.Cache
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{c: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (bullion.SpotPrices, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return bullion.SpotPrices{}, false, nil
	}
	return v.(bullion.SpotPrices), true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, prices bullion.SpotPrices, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.c.Set(key, prices, ttl)
	return nil
}

// =============================================================================
// REDIS CACHE
// =============================================================================

// RedisCache shares spot prices between server instances.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr, password string, db int) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{client: client}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Get(ctx context.Context, key string) (bullion.SpotPrices, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return bullion.SpotPrices{}, false, nil
	}
	if err != nil {
		return bullion.SpotPrices{}, false, err
	}

	var prices bullion.SpotPrices
	if err := json.Unmarshal([]byte(val), &prices); err != nil {
		return bullion.SpotPrices{}, false, err
	}
	return prices, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, prices bullion.SpotPrices, ttl time.Duration) error {
	payload, err := json.Marshal(prices)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

// =============================================================================
// CACHED SOURCE
// =============================================================================

// CachedSource serves prices from a cache and refreshes them from the
// wrapped source once they expire. When the source fails, the last
// successful quote is served instead. Cache failures are logged and
// otherwise ignored.
type CachedSource struct {
	source Source
	cache  Cache
	ttl    time.Duration
}

func NewCachedSource(source Source, cache Cache, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedSource{source: source, cache: cache, ttl: ttl}
}

func (s *CachedSource) Prices(ctx context.Context) (bullion.SpotPrices, error) {
	log := logger.FromContext(ctx)

	prices, ok, err := s.cache.Get(ctx, currentKey)
	if err != nil {
		log.Warn("spot cache read failed", "error", err)
	}
	if ok {
		return prices, nil
	}

	prices, err = s.source.Prices(ctx)
	if err != nil {
		last, ok, cacheErr := s.cache.Get(ctx, lastKey)
		if cacheErr == nil && ok {
			log.Warn("spot source failed, serving last known prices", "error", err)
			return last, nil
		}
		return bullion.SpotPrices{}, err
	}

	if err := s.cache.Set(ctx, currentKey, prices, s.ttl); err != nil {
		log.Warn("spot cache write failed", "error", err)
	}
	if err := s.cache.Set(ctx, lastKey, prices, 0); err != nil {
		log.Warn("spot cache write failed", "error", err)
	}
	return prices, nil
}
