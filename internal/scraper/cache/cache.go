// Package cache keeps raw forum API responses in Redis so that re-running a
// scrape within the TTL does not hit the forum again.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/resilience"
)

const keyPrefix = "forum:"

// Backend is the subset of the Redis client the cache uses.
type Backend interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// ResponseCache wraps response fetches with a Redis lookup. Redis errors
// never fail a fetch; after repeated failures the breaker opens and the cache
// is bypassed until it recovers.
type ResponseCache struct {
	backend Backend
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(backend Backend, ttl time.Duration, m *metrics.Metrics) *ResponseCache {
	return &ResponseCache{
		backend: backend,
		ttl:     ttl,
		breaker: resilience.NewCircuitBreaker("redis-response-cache", resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     30 * time.Second,
		}),
		metrics: m,
		logger:  logger.WithComponent("response-cache"),
	}
}

// Get returns the cached body for request, if any.
func (c *ResponseCache) Get(ctx context.Context, request string) ([]byte, bool) {
	key := buildKey(request)
	var data []byte
	err := c.breaker.Execute(func() error {
		v, err := c.backend.GetBytes(ctx, key)
		if err != nil {
			if pkgredis.IsNilError(err) {
				return nil
			}
			return err
		}
		data = v
		return nil
	})
	if err != nil {
		logger.FromContext(ctx, c.logger).Warn("cache get failed", "key", key, "error", err)
	}
	if data == nil {
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "request", request)
	return data, true
}

// Set stores body for request. Failures are logged only.
func (c *ResponseCache) Set(ctx context.Context, request string, body []byte) {
	key := buildKey(request)
	err := c.breaker.Execute(func() error {
		return c.backend.Set(ctx, key, body, c.ttl)
	})
	if err != nil {
		logger.FromContext(ctx, c.logger).Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrFetch serves request from the cache, or runs fetch once for all
// concurrent callers of the same request and caches its result. The bool
// reports a cache hit.
func (c *ResponseCache) GetOrFetch(ctx context.Context, request string, fetch func() ([]byte, error)) ([]byte, bool, error) {
	if data, ok := c.Get(ctx, request); ok {
		return data, true, nil
	}
	val, err, _ := c.group.Do(buildKey(request), func() (interface{}, error) {
		body, err := fetch()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, request, body)
		return body, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]byte), false, nil
}

// Invalidate drops every cached response.
func (c *ResponseCache) Invalidate(ctx context.Context) error {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating response cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *ResponseCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *ResponseCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.FetchCacheHits.Inc()
	}
}

func (c *ResponseCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.FetchCacheMisses.Inc()
	}
}

func buildKey(request string) string {
	hash := sha256.Sum256([]byte(request))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
