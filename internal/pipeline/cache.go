package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/newswire-data/warehouse-pipeline/internal/warehouse"
	"github.com/newswire-data/warehouse-pipeline/pkg/redis"
)

// KeyCache adapts the Redis client into the resolver's read-only cache and
// absorbs the post-commit key publication. Cache failures degrade to store
// lookups; they never fail a run.
type KeyCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewKeyCache wraps a connected Redis client.
func NewKeyCache(client *redis.Client, ttl time.Duration) *KeyCache {
	return &KeyCache{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "key-cache"),
	}
}

// orNil converts a nil *KeyCache into a nil interface so the resolver's
// cache == nil check behaves.
func (c *KeyCache) orNil() warehouse.KeyCache {
	if c == nil {
		return nil
	}
	return c
}

// LookupKey returns the cached surrogate key for a dimension cache key.
func (c *KeyCache) LookupKey(ctx context.Context, cacheKey string) (string, bool) {
	value, err := c.client.Get(ctx, cacheKey)
	if err != nil {
		if !redis.IsNilError(err) {
			c.logger.Warn("cache read failed, falling through to store", "key", cacheKey, "error", err)
		}
		return "", false
	}
	return value, true
}

// StoreBatch publishes the surrogate keys of a committed batch's dimension
// rows. Called only after the load transaction commits: the cache must never
// hold a key the warehouse does not.
func (c *KeyCache) StoreBatch(ctx context.Context, batch *warehouse.StarBatch) {
	if c == nil {
		return
	}
	pairs := make(map[string]string, len(batch.Times)+len(batch.Sources)+len(batch.Authors))
	for _, r := range batch.Times {
		pairs[warehouse.CacheKeyTime(r.PublishedAt)] = r.ID
	}
	for _, r := range batch.Sources {
		pairs[warehouse.CacheKeySource(r.DomainID)] = r.ID
	}
	for _, r := range batch.Authors {
		pairs[warehouse.CacheKeyAuthor(r.Name)] = r.ID
	}
	if len(pairs) == 0 {
		return
	}
	if err := c.client.SetBatch(ctx, pairs, c.ttl); err != nil {
		c.logger.Warn("cache fill failed", "entries", len(pairs), "error", err)
		return
	}
	c.logger.Debug("cache filled", "entries", len(pairs))
}
