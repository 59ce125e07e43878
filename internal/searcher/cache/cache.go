// Package cache stores encoded rerank responses in Redis, keyed on the
// normalized request parameters. Concurrent misses for one key share a
// single computation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/redis"
)

const keyPrefix = "rerank:"

// Store is the byte store behind the cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

var _ Store = (*pkgredis.Client)(nil)

// ComputeFunc produces a response to cache. store=false returns v to the
// caller without caching it, e.g. for degraded results. ctx carries the
// first caller's values but not its cancellation, since the result is
// shared with every concurrent caller for the key.
type ComputeFunc func(ctx context.Context) (v any, store bool, err error)

type ResponseCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(store Store, ttl time.Duration, m *metrics.Metrics) *ResponseCache {
	return &ResponseCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "rerank-cache"),
	}
}

// Get decodes the entry at key into dst and reports whether it was found.
// Store and decode failures count as misses.
func (c *ResponseCache) Get(ctx context.Context, key string, dst any) bool {
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
	}
	if !ok || err != nil {
		c.recordMiss()
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Error("cache decode failed", "key", key, "error", err)
		c.recordMiss()
		return false
	}
	c.recordHit()
	return true
}

func (c *ResponseCache) Set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("cache encode failed", "key", key, "error", err)
		return
	}
	c.set(ctx, key, data)
}

func (c *ResponseCache) set(ctx context.Context, key string, data []byte) {
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute decodes the cached entry at key into dst, or runs compute
// once across concurrent callers and decodes its result into dst. The bool
// reports a cache hit. A caller whose ctx ends stops waiting; the shared
// computation carries on for the others.
func (c *ResponseCache) GetOrCompute(ctx context.Context, key string, dst any, compute ComputeFunc) (bool, error) {
	if c.Get(ctx, key, dst) {
		return true, nil
	}
	ch := c.group.DoChan(key, func() (any, error) {
		shared := context.WithoutCancel(ctx)
		v, store, err := compute(shared)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding response: %w", err)
		}
		if store {
			c.set(shared, key, data)
		}
		return data, nil
	})
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		if err := json.Unmarshal(res.Val.([]byte), dst); err != nil {
			return false, fmt.Errorf("decoding response: %w", err)
		}
		return false, nil
	}
}

// Invalidate drops every cached response. Called when the collection
// changes.
func (c *ResponseCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.DeletePrefix(ctx, keyPrefix)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *ResponseCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *ResponseCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *ResponseCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// Key hashes the request parameters into a cache key. Parameter order,
// the order of repeated values and query whitespace and case do not change
// the key.
func Key(params url.Values) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		values := make([]string, len(params[name]))
		copy(values, params[name])
		if name == "q" {
			for i, v := range values {
				values[i] = normalizeQuery(v)
			}
		}
		sort.Strings(values)
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strings.Join(values, "\x1f"))
		b.WriteByte('&')
	}
	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
