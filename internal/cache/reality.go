package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"tripcore/internal/config"
	"tripcore/internal/model"
)

const keyPrefix = "reality:"

// RealityCache keeps recent per-city reality signals in Redis
type RealityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a Redis client from config
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
}

// NewRealityCache creates a cache over an existing client
func NewRealityCache(client *redis.Client, ttl time.Duration) *RealityCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RealityCache{client: client, ttl: ttl}
}

// Ping checks Redis connectivity
func (c *RealityCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RealityCache) Close() error {
	return c.client.Close()
}

// Get returns the cached context for a city.
// A miss returns (nil, false, nil).
func (c *RealityCache) Get(ctx context.Context, city string) (*model.RealityContext, bool, error) {
	data, err := c.client.Get(ctx, key(city)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reality cache get: %w", err)
	}

	var reality model.RealityContext
	if err := json.Unmarshal(data, &reality); err != nil {
		return nil, false, fmt.Errorf("reality cache decode: %w", err)
	}
	return &reality, true, nil
}

// Set stores a city's context for the configured TTL
func (c *RealityCache) Set(ctx context.Context, reality *model.RealityContext) error {
	data, err := json.Marshal(reality)
	if err != nil {
		return fmt.Errorf("reality cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key(reality.City), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("reality cache set: %w", err)
	}
	return nil
}

// Invalidate drops a city's cached context
func (c *RealityCache) Invalidate(ctx context.Context, city string) error {
	return c.client.Del(ctx, key(city)).Err()
}

func key(city string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(city))
}
