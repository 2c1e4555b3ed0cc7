package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const catalogKey = "catalog:data"

// Catalog caches the serialized catalog payload in Redis so repeated
// storefront reads skip the database. Every operation is best-effort: a
// Redis failure is logged and the caller falls through to the database.
type Catalog struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCatalog creates a catalog cache with the given entry TTL.
func NewCatalog(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Catalog {
	return &Catalog{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached payload, reporting whether an entry was present.
func (c *Catalog) Get(ctx context.Context) ([]byte, bool) {
	payload, err := c.client.Get(ctx, catalogKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Catalog cache read failed", zap.Error(err))
		}
		return nil, false
	}
	return payload, true
}

// Set stores the payload under the configured TTL.
func (c *Catalog) Set(ctx context.Context, payload []byte) {
	if err := c.client.Set(ctx, catalogKey, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("Catalog cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cached entry after a catalog mutation.
func (c *Catalog) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, catalogKey).Err(); err != nil {
		c.logger.Warn("Catalog cache invalidation failed", zap.Error(err))
	}
}
