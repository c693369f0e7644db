// Package rediscache wraps a store.SettingsRepository with a Redis cache
// tier: reads check Redis before falling through to the backing
// repository, writes go to the backing repository and then to Redis. A
// failed Redis write is only logged, so an older cached entry can still be
// served until its TTL expires.
package rediscache

import (
	"context"
	"time"

	"scrapeforge/internal/logging/types"
	"scrapeforge/internal/store"
	"scrapeforge/pkg/models"
	"scrapeforge/pkg/utils"
)

const defaultTTL = 10 * time.Minute

// SettingsCache decorates a store.SettingsRepository with a Redis-backed
// read-through cache for per-job cascade overrides.
type SettingsCache struct {
	backing store.SettingsRepository
	redis   *utils.RedisClient
	ttl     time.Duration
	logger  types.Logger
}

// NewSettingsCache builds a SettingsCache in front of backing.
func NewSettingsCache(backing store.SettingsRepository, redis *utils.RedisClient, logger types.Logger) *SettingsCache {
	return &SettingsCache{backing: backing, redis: redis, ttl: defaultTTL, logger: logger}
}

// GetCascadeConfig tries Redis first, falling back to the backing
// repository and repopulating the cache on a miss.
func (c *SettingsCache) GetCascadeConfig(ctx context.Context, jobID string) (*models.CascadeConfig, error) {
	if cfg, err := c.redis.GetCascadeConfig(ctx, jobID); err == nil {
		return cfg, nil
	}

	cfg, err := c.backing.GetCascadeConfig(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if cerr := c.redis.SetCascadeConfig(ctx, jobID, *cfg, c.ttl); cerr != nil {
		c.logger.Warn("failed to populate cascade config cache", map[string]interface{}{"job_id": jobID, "error": cerr.Error()})
	}
	return cfg, nil
}

// SetCascadeConfig writes through to the backing repository and then to the
// cache, with the cache entry's TTL set to defaultTTL. A failed cache write
// is logged and does not fail the call.
func (c *SettingsCache) SetCascadeConfig(ctx context.Context, jobID string, cfg models.CascadeConfig) error {
	if err := c.backing.SetCascadeConfig(ctx, jobID, cfg); err != nil {
		return err
	}
	if err := c.redis.SetCascadeConfig(ctx, jobID, cfg, c.ttl); err != nil {
		c.logger.Warn("failed to refresh cascade config cache", map[string]interface{}{"job_id": jobID, "error": err.Error()})
	}
	return nil
}
