// Package cache holds the Redis-backed result cache. Entries are keyed by
// content hash, so re-uploads of the same file skip the DSP pipeline.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/benzaid32/virtuoso-ai-music-lab/db"
	"github.com/benzaid32/virtuoso-ai-music-lab/logger"
	"github.com/benzaid32/virtuoso-ai-music-lab/model"
)

// analysisKey builds the cache key for a content hash.
func analysisKey(contentHash string) string {
	return fmt.Sprintf("analysis:sha256:%s", contentHash)
}

// SetAnalysis caches a finished record under its content hash. Failures are
// logged and swallowed; the cache accelerates requests but never fails them.
func SetAnalysis(ctx context.Context, record *model.AnalysisRecord, ttl time.Duration) {
	if db.RedisClient == nil || record.ContentHash == "" {
		return
	}
	payload, err := json.Marshal(record)
	if err != nil {
		logger.Warn("failed to encode analysis for cache",
			logger.String("id", record.ID),
			logger.ErrorField(err))
		return
	}
	key := analysisKey(record.ContentHash)
	if err := db.RedisClient.Set(ctx, key, payload, ttl).Err(); err != nil {
		logger.Warn("failed to cache analysis",
			logger.String("key", key),
			logger.ErrorField(err))
		return
	}
	logger.Debug("analysis cached",
		logger.String("key", key),
		logger.Int("bytes", len(payload)))
}

// GetAnalysis returns the cached record for a content hash, or nil on a miss.
func GetAnalysis(ctx context.Context, contentHash string) *model.AnalysisRecord {
	if db.RedisClient == nil || contentHash == "" {
		return nil
	}
	key := analysisKey(contentHash)
	data, err := db.RedisClient.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("failed to read analysis cache",
				logger.String("key", key),
				logger.ErrorField(err))
		}
		return nil
	}
	var record model.AnalysisRecord
	if err := json.Unmarshal(data, &record); err != nil {
		logger.Warn("dropping corrupt analysis cache entry",
			logger.String("key", key),
			logger.ErrorField(err))
		db.RedisClient.Del(ctx, key)
		return nil
	}
	return &record
}

// InvalidateAnalysis removes the cached entry for a content hash.
func InvalidateAnalysis(ctx context.Context, contentHash string) {
	if db.RedisClient == nil || contentHash == "" {
		return
	}
	if err := db.RedisClient.Del(ctx, analysisKey(contentHash)).Err(); err != nil {
		logger.Warn("failed to invalidate analysis cache",
			logger.String("hash", contentHash),
			logger.ErrorField(err))
	}
}
