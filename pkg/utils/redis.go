package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"scrapeforge/internal/config"
	"scrapeforge/pkg/models"
)

// RedisClient wraps the Redis client used for the settings cache tier and
// the cross-worker in-flight fetch dedupe guard.
type RedisClient struct {
	client *redis.Client
	logger *logrus.Logger
}

// NewRedisClient creates a new Redis client instance.
func NewRedisClient(cfg *config.Config) *RedisClient {
	logger := logrus.StandardLogger()

	opt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.WithError(err).Fatal("failed to parse Redis URL")
	}
	if cfg.Redis.Password != "" {
		opt.Password = cfg.Redis.Password
	}
	opt.DB = cfg.Redis.DB
	opt.DialTimeout = cfg.Redis.Timeout
	opt.ReadTimeout = cfg.Redis.Timeout
	opt.WriteTimeout = cfg.Redis.Timeout

	return &RedisClient{
		client: redis.NewClient(opt),
		logger: logger,
	}
}

// Ping tests the Redis connection.
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// IsHealthy checks if Redis is healthy and accessible.
func (r *RedisClient) IsHealthy(ctx context.Context) error {
	return r.Ping(ctx)
}

func cascadeConfigKey(jobID string) string {
	return fmt.Sprintf("cascade_config:%s", jobID)
}

// GetCascadeConfig reads a job's cached cascade override, if any.
func (r *RedisClient) GetCascadeConfig(ctx context.Context, jobID string) (*models.CascadeConfig, error) {
	raw, err := r.client.Get(ctx, cascadeConfigKey(jobID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("no cascade config cached for job %s", jobID)
		}
		return nil, fmt.Errorf("failed to read cached cascade config: %w", err)
	}

	var cfg models.CascadeConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached cascade config: %w", err)
	}
	return &cfg, nil
}

// SetCascadeConfig caches a job's cascade override for ttl.
func (r *RedisClient) SetCascadeConfig(ctx context.Context, jobID string, cfg models.CascadeConfig, ttl time.Duration) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal cascade config: %w", err)
	}
	if err := r.client.Set(ctx, cascadeConfigKey(jobID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache cascade config: %w", err)
	}
	return nil
}

// InvalidateCascadeConfig drops a job's cached cascade override.
func (r *RedisClient) InvalidateCascadeConfig(ctx context.Context, jobID string) error {
	return r.client.Del(ctx, cascadeConfigKey(jobID)).Err()
}

func fetchLockKey(fetcherName, rawURL string) string {
	return fmt.Sprintf("fetch_lock:%s:%s", fetcherName, rawURL)
}

// AcquireFetchLock is a SETNX-with-TTL dedupe guard: it reports true the
// first time it is called for a given fetcher+URL within ttl, and false on
// every call thereafter until the lock expires. No code in this repository
// calls it, so fetches are not de-duplicated across workers.
func (r *RedisClient) AcquireFetchLock(ctx context.Context, fetcherName, rawURL string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, fetchLockKey(fetcherName, rawURL), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire fetch lock: %w", err)
	}
	return ok, nil
}

// ReleaseFetchLock releases a dedupe guard early, e.g. once a fetch
// completes well inside its ttl.
func (r *RedisClient) ReleaseFetchLock(ctx context.Context, fetcherName, rawURL string) error {
	return r.client.Del(ctx, fetchLockKey(fetcherName, rawURL)).Err()
}
