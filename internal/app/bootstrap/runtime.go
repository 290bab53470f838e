package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/olx-poli-relay/internal/config"
	"github.com/wolfman30/olx-poli-relay/internal/poli"
	"github.com/wolfman30/olx-poli-relay/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
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
		logger.Warn("redis not available, contact cache disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildContactCache returns the Redis contact cache, or nil when Redis is off.
// The nil is an untyped interface so the pipeline skips the cache entirely.
func BuildContactCache(redisClient *redis.Client, cfg *appconfig.Config) poli.ContactCache {
	if redisClient == nil || cfg == nil {
		return nil
	}
	return poli.NewRedisContactCache(redisClient, cfg.ContactCacheTTL)
}
