package classifier

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// Cache stores model classifications keyed by complaint text.
type Cache interface {
	Get(ctx context.Context, text string) (domain.Classification, bool, error)
	Set(ctx context.Context, text string, c domain.Classification) error
}

// RedisCache keeps classifications in Redis under a hash of the normalized text.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache constructs a cache. A zero ttl keeps entries without expiry.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

type cachedClassification struct {
	Category   string `json:"category"`
	Priority   string `json:"priority"`
	Department string `json:"department"`
	Summary    string `json:"summary,omitempty"`
}

// CacheKey derives the Redis key for text.
func CacheKey(text string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	sum := blake2b.Sum256([]byte(normalized))
	return "classify:" + hex.EncodeToString(sum[:])
}

// Get implements Cache.
func (r *RedisCache) Get(ctx context.Context, text string) (domain.Classification, bool, error) {
	raw, err := r.client.Get(ctx, CacheKey(text)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Classification{}, false, nil
	}
	if err != nil {
		return domain.Classification{}, false, fmt.Errorf("redis get: %w", err)
	}

	var cached cachedClassification
	if err := json.Unmarshal(raw, &cached); err != nil {
		return domain.Classification{}, false, fmt.Errorf("decode cached classification: %w", err)
	}
	priority, ok := domain.ParsePriority(cached.Priority)
	if !ok {
		return domain.Classification{}, false, nil
	}
	return domain.Classification{
		Category:   cached.Category,
		Priority:   priority,
		Department: cached.Department,
		Summary:    cached.Summary,
	}, true, nil
}

// Set implements Cache.
func (r *RedisCache) Set(ctx context.Context, text string, c domain.Classification) error {
	payload, err := json.Marshal(cachedClassification{
		Category:   c.Category,
		Priority:   string(c.Priority),
		Department: c.Department,
		Summary:    c.Summary,
	})
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, CacheKey(text), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
