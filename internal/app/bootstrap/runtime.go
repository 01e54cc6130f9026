// Package bootstrap wires optional runtime dependencies from configuration.
package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/receptionly/platform/internal/business"
	appconfig "github.com/receptionly/platform/internal/config"
	"github.com/receptionly/platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil so the
// service falls back to uncached directory loads.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildDirectoryLoader wires the agent directory with a Redis cache when a
// client is available, otherwise every load hits Postgres.
func BuildDirectoryLoader(repo business.AssignmentLister, redisClient *redis.Client, cfg *appconfig.Config, logger *logging.Logger) *business.DirectoryLoader {
	var cache *business.DirectoryCache
	if redisClient != nil {
		cache = business.NewDirectoryCache(redisClient, cfg.DirectoryCacheTTL, logger)
	}
	return business.NewDirectoryLoader(repo, cache, logger)
}
