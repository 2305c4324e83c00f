package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

// Cache stores finished results by feature-vector key. Classifiers are
// deterministic, so a hit is always the answer a fresh run would give.
type Cache interface {
	Name() string
	Get(ctx context.Context, key string) (*Result, bool, error)
	Add(ctx context.Context, key string, result *Result) error
}

type LRUCache struct {
	cache *lru.Cache[string, Result]
}

func NewLRUCache(size int) (*LRUCache, error) {
	c, err := lru.New[string, Result](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{cache: c}, nil
}

func (c *LRUCache) Name() string { return "lru" }

func (c *LRUCache) Get(_ context.Context, key string) (*Result, bool, error) {
	r, ok := c.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (c *LRUCache) Add(_ context.Context, key string, result *Result) error {
	c.cache.Add(key, *result)
	return nil
}

func (c *LRUCache) Len() int { return c.cache.Len() }

// RedisCache shares results between replicas.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) Name() string { return "redis" }

func (c *RedisCache) Get(ctx context.Context, key string) (*Result, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var r Result
	if err := json.Unmarshal(val, &r); err != nil {
		return nil, false, err
	}
	return &r, true, nil
}

func (c *RedisCache) Add(ctx context.Context, key string, result *Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, payload, c.ttl).Err()
}

func (c *RedisCache) Close() error { return c.client.Close() }
