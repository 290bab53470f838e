package poli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const contactKeyPrefix = "poli:contact:"

// ContactCache remembers the Poli contact id created for a phone so repeat
// leads skip create-contact.
type ContactCache interface {
	Lookup(ctx context.Context, phone string) (string, bool, error)
	Remember(ctx context.Context, phone, contactID string) error
}

// RedisContactCache stores contact ids as plain keys with a TTL.
type RedisContactCache struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisContactCache returns nil when no client is configured.
func NewRedisContactCache(client *redis.Client, ttl time.Duration) *RedisContactCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisContactCache{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("olxrelay.internal.poli.contact_cache"),
	}
}

func (c *RedisContactCache) Lookup(ctx context.Context, phone string) (string, bool, error) {
	if c == nil || c.redis == nil {
		return "", false, nil
	}
	if strings.TrimSpace(phone) == "" {
		return "", false, errors.New("poli: contact cache phone required")
	}

	ctx, span := c.tracer.Start(ctx, "poli.contact_cache.lookup")
	defer span.End()

	id, err := c.redis.Get(ctx, contactKey(phone)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		span.RecordError(err)
		return "", false, fmt.Errorf("poli: contact cache lookup: %w", err)
	}
	return id, id != "", nil
}

func (c *RedisContactCache) Remember(ctx context.Context, phone, contactID string) error {
	if c == nil || c.redis == nil {
		return nil
	}
	if strings.TrimSpace(phone) == "" || strings.TrimSpace(contactID) == "" {
		return errors.New("poli: contact cache phone and id required")
	}

	ctx, span := c.tracer.Start(ctx, "poli.contact_cache.remember")
	defer span.End()

	if err := c.redis.Set(ctx, contactKey(phone), contactID, c.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("poli: contact cache store: %w", err)
	}
	return nil
}

func contactKey(phone string) string {
	return contactKeyPrefix + strings.TrimSpace(phone)
}
