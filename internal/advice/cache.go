package advice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// cachePrefix namespaces cached answers in Redis
const cachePrefix = "smartfill:advice:"

// CacheConfig holds response cache configuration
type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
}

// CacheStats tracks cache statistics
type CacheStats struct {
	MemoryHits int64 `json:"memory_hits"`
	RedisHits  int64 `json:"redis_hits"`
	Misses     int64 `json:"misses"`
}

type cacheEntry struct {
	resp      Response
	createdAt time.Time
}

// Cached answers repeated questions about the same page and profile from a
// memory cache, then Redis, before asking the wrapped advisor. Only
// successful answers are cached.
type Cached struct {
	next   Advisor
	redis  *redis.Client
	config CacheConfig
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	mem   map[string]*cacheEntry
	order []string
	stats CacheStats
}

// NewCached wraps next. rdb may be nil for a memory-only cache.
func NewCached(next Advisor, rdb *redis.Client, cfg CacheConfig, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 256
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	return &Cached{
		next:   next,
		redis:  rdb,
		config: cfg,
		logger: logger,
		now:    time.Now,
		mem:    make(map[string]*cacheEntry),
	}
}

// Advise implements Advisor.
func (c *Cached) Advise(ctx context.Context, req Request) (*Response, error) {
	key := cacheKey(req)

	if resp, ok := c.get(ctx, key); ok {
		c.logger.Debug("advice cache hit", zap.String("key", key[:16]))
		return resp, nil
	}

	resp, err := c.next.Advise(ctx, req)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, resp)
	return resp, nil
}

// Stats returns cache statistics
func (c *Cached) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Clear drops every cached answer
func (c *Cached) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.mem = make(map[string]*cacheEntry)
	c.order = nil
	c.mu.Unlock()

	if c.redis == nil {
		return nil
	}
	iter := c.redis.Scan(ctx, 0, cachePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		c.redis.Del(ctx, iter.Val())
	}
	return iter.Err()
}

func (c *Cached) get(ctx context.Context, key string) (*Response, bool) {
	c.mu.Lock()
	if e, ok := c.mem[key]; ok && c.now().Sub(e.createdAt) < c.config.TTL {
		c.stats.MemoryHits++
		resp := e.resp
		c.mu.Unlock()
		return &resp, true
	}
	c.mu.Unlock()

	if c.redis != nil {
		data, err := c.redis.Get(ctx, cachePrefix+key).Bytes()
		if err == nil {
			var resp Response
			if err := json.Unmarshal(data, &resp); err == nil {
				c.mu.Lock()
				c.stats.RedisHits++
				c.setMemoryLocked(key, resp)
				c.mu.Unlock()
				return &resp, true
			}
		} else if err != redis.Nil {
			c.logger.Debug("advice cache lookup failed", zap.Error(err))
		}
	}

	c.mu.Lock()
	c.stats.Misses++
	c.mu.Unlock()
	return nil, false
}

func (c *Cached) set(ctx context.Context, key string, resp *Response) {
	c.mu.Lock()
	c.setMemoryLocked(key, *resp)
	c.mu.Unlock()

	if c.redis == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, cachePrefix+key, data, c.config.TTL).Err(); err != nil {
		c.logger.Debug("advice cache store failed", zap.Error(err))
	}
}

// setMemoryLocked stores resp, evicting the oldest tenth of the entries when
// the cache is full.
func (c *Cached) setMemoryLocked(key string, resp Response) {
	if _, ok := c.mem[key]; !ok {
		if len(c.mem) >= c.config.MaxEntries {
			evict := c.config.MaxEntries / 10
			if evict < 1 {
				evict = 1
			}
			for i := 0; i < evict && len(c.order) > 0; i++ {
				delete(c.mem, c.order[0])
				c.order = c.order[1:]
			}
		}
		c.order = append(c.order, key)
	}
	c.mem[key] = &cacheEntry{resp: resp, createdAt: c.now()}
}

// cacheKey hashes everything that can change the answer
func cacheKey(req Request) string {
	data, _ := json.Marshal(req)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
