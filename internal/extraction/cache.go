package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Extraction is the /ocr response body and the cached value.
type Extraction struct {
	ExtractedText  string         `json:"extracted_text"`
	MedicationInfo MedicationInfo `json:"medication_info"`
}

// Cache stores successful extractions keyed by image digest.
type Cache interface {
	Get(ctx context.Context, digest string) (Extraction, bool, error)
	Set(ctx context.Context, digest string, value Extraction) error
}

const cacheKeyPrefix = "ocr_extraction:"

// DefaultCacheTTL applies when RedisCache is built with a zero TTL.
const DefaultCacheTTL = 24 * time.Hour

// RedisCache keeps extractions in Redis with a TTL.
type RedisCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisCache returns nil when redisClient is nil so callers can treat the
// cache as disabled.
func NewRedisCache(redisClient *redis.Client, ttl time.Duration) *RedisCache {
	if redisClient == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{redis: redisClient, ttl: ttl}
}

func (c *RedisCache) key(digest string) string {
	return cacheKeyPrefix + digest
}

func (c *RedisCache) Get(ctx context.Context, digest string) (Extraction, bool, error) {
	if c == nil {
		return Extraction{}, false, nil
	}
	data, err := c.redis.Get(ctx, c.key(digest)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Extraction{}, false, nil
	}
	if err != nil {
		return Extraction{}, false, fmt.Errorf("extraction: cache get: %w", err)
	}
	var value Extraction
	if err := json.Unmarshal(data, &value); err != nil {
		return Extraction{}, false, fmt.Errorf("extraction: decode cached value: %w", err)
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, digest string, value Extraction) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("extraction: encode cache value: %w", err)
	}
	if err := c.redis.Set(ctx, c.key(digest), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("extraction: cache set: %w", err)
	}
	return nil
}
