// Redis-backed search result cache.
//
// Information Hiding:
// - Cache key derivation from query parameters
// - Serialized form of cached records
// - Redis failures, which degrade to uncached searches
package search

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/richinex/deepresearch/research"
)

const (
	// DefaultCacheTTL is how long cached results live when no TTL is given.
	DefaultCacheTTL = time.Hour

	cacheKeyPrefix = "deepresearch:search:"
)

var (
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepresearch_search_cache_lookups_total",
			Help: "Search cache lookups by result",
		},
		[]string{"result"},
	)
)

// CachedProvider wraps a SearchProvider with a Redis cache. Only successful
// searches are cached, so provider failures still reach the workflow.
type CachedProvider struct {
	inner  research.SearchProvider
	client redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

var _ research.SearchProvider = (*CachedProvider)(nil)

// NewCachedProvider wraps inner. A non-positive ttl selects DefaultCacheTTL.
func NewCachedProvider(inner research.SearchProvider, client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{inner: inner, client: client, ttl: ttl, logger: logger}
}

// Name reports the wrapped provider's name.
func (c *CachedProvider) Name() string {
	return c.inner.Name()
}

// Search serves from cache when possible and otherwise delegates.
func (c *CachedProvider) Search(ctx context.Context, query string, depth research.SearchDepth, maxResults int) ([]research.RawRecord, error) {
	key := CacheKey(query, depth, maxResults)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var records []research.RawRecord
		if jsonErr := json.Unmarshal(data, &records); jsonErr == nil {
			cacheLookups.WithLabelValues("hit").Inc()
			c.logger.Debug("search cache hit", zap.String("key", key))
			return records, nil
		}
		c.logger.Warn("discarding corrupt search cache entry", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("search cache unavailable", zap.Error(err))
	}
	cacheLookups.WithLabelValues("miss").Inc()

	records, err := c.inner.Search(ctx, query, depth, maxResults)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(records); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("failed to store search results in cache", zap.Error(err))
		}
	}
	return records, nil
}

// CacheKey derives the Redis key for a search.
func CacheKey(query string, depth research.SearchDepth, maxResults int) string {
	d := xxhash.New()
	_, _ = d.WriteString(query)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(string(depth))
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(strconv.Itoa(maxResults))
	return cacheKeyPrefix + strconv.FormatUint(d.Sum64(), 16)
}
