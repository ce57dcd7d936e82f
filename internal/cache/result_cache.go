package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/retenio/churnguard-go/internal/models"
)

const resultKeyPrefix = "churn:prediction:"

// ResultCacheStats tracks cache effectiveness.
type ResultCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
}

// ResultCache memoizes prediction results in Redis, keyed by a fingerprint of
// the encoded feature vector and model version. Identical inputs against the
// same model always score identically, so a hit is exact, never stale. Cache
// failures degrade to a recompute; they are logged, not returned.
type ResultCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

// NewResultCache creates a prediction result cache with the given TTL.
func NewResultCache(redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *ResultCache {
	return &ResultCache{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

// Fingerprint derives the cache key material from the feature vector and the
// model version, so a model swap naturally invalidates all prior entries.
func Fingerprint(vector models.FeatureVector, modelVersion string) string {
	h := sha256.New()
	h.Write([]byte(modelVersion))
	var buf [8]byte
	for _, v := range vector {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(v*1e9)))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached prediction for a fingerprint, if present.
func (c *ResultCache) Get(ctx context.Context, fingerprint string) (*models.PredictionResult, bool) {
	data, err := c.redis.Get(ctx, resultKeyPrefix+fingerprint).Result()
	if err == redis.Nil {
		c.misses.Add(1)
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).Warn("Prediction cache read failed")
		c.misses.Add(1)
		return nil, false
	}

	var result models.PredictionResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.WithError(err).Warn("Prediction cache entry corrupt, discarding")
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return &result, true
}

// Set stores a prediction result under its fingerprint.
func (c *ResultCache) Set(ctx context.Context, fingerprint string, result *models.PredictionResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.WithError(err).Warn("Prediction cache serialization failed")
		return
	}

	if err := c.redis.Set(ctx, resultKeyPrefix+fingerprint, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("Prediction cache write failed")
		return
	}
	c.sets.Add(1)
}

// Stats returns a point-in-time copy of the cache counters.
func (c *ResultCache) Stats() ResultCacheStats {
	return ResultCacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Sets:   c.sets.Load(),
	}
}
