package clinics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/klinikai/internal/triage"
)

// Cache stores ranked results per specialty and urgency.
type Cache interface {
	Get(ctx context.Context, specialty string, urgency triage.Urgency) (*RecommendationResult, bool, error)
	Set(ctx context.Context, specialty string, urgency triage.Urgency, result *RecommendationResult) error
}

// RedisCache keeps recommendation results in Redis with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a cache. A non-positive ttl defaults to five minutes.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if client == nil {
		panic("clinics: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, specialty string, urgency triage.Urgency) (*RecommendationResult, bool, error) {
	data, err := c.client.Get(ctx, recommendationKey(specialty, urgency)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("clinics: cache get: %w", err)
	}
	var result RecommendationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, fmt.Errorf("clinics: cache decode: %w", err)
	}
	return &result, true, nil
}

func (c *RedisCache) Set(ctx context.Context, specialty string, urgency triage.Urgency, result *RecommendationResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("clinics: cache encode: %w", err)
	}
	if err := c.client.Set(ctx, recommendationKey(specialty, urgency), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("clinics: cache set: %w", err)
	}
	return nil
}

func recommendationKey(specialty string, urgency triage.Urgency) string {
	return fmt.Sprintf("recommendations:%s:%s", strings.ToLower(specialty), urgency)
}
