package business

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/receptionly/platform/pkg/logging"
)

const directoryCacheKey = "business:agent-directory"

// DirectoryCache keeps the agent->business directory in Redis with a short
// TTL. Cache failures degrade to a direct database load, never an error.
type DirectoryCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewDirectoryCache creates the cache. A zero ttl disables expiry.
func NewDirectoryCache(redisClient *redis.Client, ttl time.Duration, logger *logging.Logger) *DirectoryCache {
	if redisClient == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DirectoryCache{redis: redisClient, ttl: ttl, logger: logger}
}

// Get returns the cached directory and whether it was present.
func (c *DirectoryCache) Get(ctx context.Context) (Directory, bool) {
	data, err := c.redis.Get(ctx, directoryCacheKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("directory cache read failed", "error", err)
		return nil, false
	}
	var dir Directory
	if err := json.Unmarshal(data, &dir); err != nil {
		c.logger.Warn("directory cache corrupt, ignoring", "error", err)
		return nil, false
	}
	return dir, true
}

// Set stores the directory.
func (c *DirectoryCache) Set(ctx context.Context, dir Directory) {
	data, err := json.Marshal(dir)
	if err != nil {
		c.logger.Warn("directory cache marshal failed", "error", err)
		return
	}
	if err := c.redis.Set(ctx, directoryCacheKey, data, c.ttl).Err(); err != nil {
		c.logger.Warn("directory cache write failed", "error", err)
	}
}

// Delete drops the cached directory.
func (c *DirectoryCache) Delete(ctx context.Context) {
	if err := c.redis.Del(ctx, directoryCacheKey).Err(); err != nil {
		c.logger.Warn("directory cache delete failed", "error", err)
	}
}
