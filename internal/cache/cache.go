// Package cache provides a Redis-backed cache for generated query
// results. Cache keys are always scoped by company ID so one tenant
// can never observe another tenant's cached results.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	apperrors "github.com/impactlens/nlq-engine/internal/errors"
	"github.com/impactlens/nlq-engine/internal/generator"
	"github.com/impactlens/nlq-engine/internal/observability"
)

const keyPrefix = "nlq:result:"

// ResultCache caches generation results keyed by template, tenant, and
// the canonical parameter fingerprint.
type ResultCache struct {
	redis      *redis.Client
	defaultTTL time.Duration
	logger     *observability.Logger
}

// NewResultCache creates a new result cache
func NewResultCache(redisClient *redis.Client, defaultTTL time.Duration) *ResultCache {
	return &ResultCache{
		redis:      redisClient,
		defaultTTL: defaultTTL,
		logger:     observability.NewLogger("cache"),
	}
}

// Key builds the cache key for a template/tenant/parameter combination.
// Parameters are hashed over their canonical JSON encoding, so the same
// logical request always maps to the same key.
func Key(templateID, companyID string, params generator.QueryParameters) string {
	data, err := json.Marshal(params)
	if err != nil {
		// QueryParameters contains only strings and maps; this cannot
		// happen in practice but a degraded key beats a panic.
		data = []byte(fmt.Sprintf("%v", params))
	}
	sum := sha256.Sum256(data)
	return keyPrefix + templateID + ":" + companyID + ":" + hex.EncodeToString(sum[:])
}

// Get retrieves a cached generation result. A cache miss returns
// (nil, nil); only transport failures return an error.
func (rc *ResultCache) Get(ctx context.Context, templateID, companyID string, params generator.QueryParameters) (*generator.QueryGenerationResult, error) {
	key := Key(templateID, companyID, params)

	data, err := rc.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		observability.RecordCacheResult(false)
		return nil, nil
	}
	if err != nil {
		observability.RecordCacheResult(false)
		return nil, apperrors.Wrap(err, apperrors.ErrCodeCacheRead, "failed to read cached result")
	}

	var result generator.QueryGenerationResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		// Treat a corrupt entry as a miss and drop it.
		rc.logger.Warn(ctx, "Dropping corrupt cache entry", map[string]interface{}{
			"template_id": templateID,
		})
		rc.redis.Del(ctx, key)
		observability.RecordCacheResult(false)
		return nil, nil
	}

	observability.RecordCacheResult(true)
	return &result, nil
}

// Set stores a generation result. Results that failed safety validation
// are never cached: a failed result must be re-derived, not replayed.
func (rc *ResultCache) Set(ctx context.Context, result *generator.QueryGenerationResult) error {
	if result == nil || !result.Executable() {
		return nil
	}

	ttl := rc.defaultTTL
	if result.CacheTTLSeconds > 0 {
		ttl = time.Duration(result.CacheTTLSeconds) * time.Second
	}
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeCacheWrite, "failed to marshal result")
	}

	key := Key(result.TemplateID, result.Parameters.CompanyID, result.Parameters)
	if err := rc.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeCacheWrite, "failed to store result")
	}

	return nil
}

// InvalidateTemplate removes all cached results for one template and
// tenant. Used when a tenant's underlying data is restated.
func (rc *ResultCache) InvalidateTemplate(ctx context.Context, templateID, companyID string) error {
	pattern := keyPrefix + templateID + ":" + companyID + ":*"

	iter := rc.redis.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeCacheRead, "failed to scan cache keys")
	}

	if len(keys) > 0 {
		if err := rc.redis.Del(ctx, keys...).Err(); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeCacheWrite, "failed to delete cache keys")
		}
	}

	return nil
}

// Ping checks Redis connectivity for health reporting
func (rc *ResultCache) Ping(ctx context.Context) error {
	return rc.redis.Ping(ctx).Err()
}
