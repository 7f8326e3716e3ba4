package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smartfill/smartfill/internal/config"
)

// Cache provides Redis-backed profile storage, rate limiting and pub/sub
type Cache struct {
	client *redis.Client
}

// Key prefixes for different entry types
const (
	PrefixProfile   = "smartfill:profile:"
	PrefixRateLimit = "smartfill:ratelimit:"
)

// RateLimitWindow is the fixed window for request counters
const RateLimitWindow = 1 * time.Minute

// New creates a new Redis client and verifies the connection
func New(cfg config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// NewFromClient wraps an existing client
func NewFromClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Health checks Redis connectivity
func (c *Cache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Client returns the underlying Redis client for advanced operations
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Profiles returns the profile store for profileID
func (c *Cache) Profiles(profileID string) *ProfileStore {
	return &ProfileStore{client: c.client, key: PrefixProfile + profileID}
}

// Rate limiting

// CheckRateLimit checks and increments rate limit counter
func (c *Cache) CheckRateLimit(ctx context.Context, key string, limit int) (bool, int, error) {
	fullKey := PrefixRateLimit + key

	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, RateLimitWindow)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, 0, err
	}

	count := int(incr.Val())
	return count <= limit, count, nil
}

// GetRateLimitRemaining returns remaining rate limit
func (c *Cache) GetRateLimitRemaining(ctx context.Context, key string, limit int) (int, error) {
	fullKey := PrefixRateLimit + key
	count, err := c.client.Get(ctx, fullKey).Int()
	if err != nil {
		if err == redis.Nil {
			return limit, nil
		}
		return 0, err
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	return remaining, nil
}

// Pub/Sub for inbound messages

// Publish publishes a message to a channel
func (c *Cache) Publish(ctx context.Context, channel string, message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, channel, data).Err()
}

// Subscribe subscribes to a channel
func (c *Cache) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return c.client.Subscribe(ctx, channel)
}
