package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/talimhub/edu-admin-api/internal/models"
)

const conflictCacheKeyPrefix = "availability:conflicts:"

// RedisConflictCache stores per-teacher conflict sets in Redis. Cache errors
// degrade to misses; the detector always recomputes on a miss.
type RedisConflictCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisConflictCache constructs the cache.
func NewRedisConflictCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisConflictCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisConflictCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached conflicts for a teacher, reporting a miss on any
// cache failure.
func (c *RedisConflictCache) Get(ctx context.Context, teacherID string) ([]models.AvailabilityConflict, bool) {
	raw, err := c.client.Get(ctx, conflictCacheKeyPrefix+teacherID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("conflict cache read failed", zap.String("teacher_id", teacherID), zap.Error(err))
		}
		return nil, false
	}
	var conflicts []models.AvailabilityConflict
	if err := json.Unmarshal(raw, &conflicts); err != nil {
		c.logger.Warn("conflict cache entry corrupt", zap.String("teacher_id", teacherID), zap.Error(err))
		return nil, false
	}
	return conflicts, true
}

// Set stores a teacher's conflicts with the configured TTL. An empty set is
// cached too, so conflict-free teachers also get cache hits.
func (c *RedisConflictCache) Set(ctx context.Context, teacherID string, conflicts []models.AvailabilityConflict) {
	if conflicts == nil {
		conflicts = []models.AvailabilityConflict{}
	}
	raw, err := json.Marshal(conflicts)
	if err != nil {
		c.logger.Warn("conflict cache marshal failed", zap.String("teacher_id", teacherID), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, conflictCacheKeyPrefix+teacherID, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("conflict cache write failed", zap.String("teacher_id", teacherID), zap.Error(err))
	}
}

// Invalidate drops the cached conflicts for the given teachers.
func (c *RedisConflictCache) Invalidate(ctx context.Context, teacherIDs ...string) {
	if len(teacherIDs) == 0 {
		return
	}
	keys := make([]string, len(teacherIDs))
	for i, id := range teacherIDs {
		keys[i] = conflictCacheKeyPrefix + id
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("conflict cache invalidation failed", zap.Strings("teacher_ids", teacherIDs), zap.Error(err))
	}
}
