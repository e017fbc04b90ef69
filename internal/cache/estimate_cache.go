package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aditya/ridequote/internal/models"
	"github.com/redis/go-redis/v9"
)

const estimateKeyPrefix = "estimate:"

// EstimateCache stores corridor estimates. Entries are never served once they
// are older than the TTL, even if Redis has not evicted them yet.
type EstimateCache interface {
	Get(ctx context.Context, key string) (*models.EstimateResponse, error)
	Set(ctx context.Context, key string, estimate *models.EstimateResponse) error
}

type estimateCache struct {
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time
}

func NewEstimateCache(redisClient *redis.Client, ttl time.Duration) EstimateCache {
	return &estimateCache{redis: redisClient, ttl: ttl, now: time.Now}
}

// CorridorKey rounds both ends of the trip to three decimals (~110m) so nearby
// searches for the same trip share an entry.
func CorridorKey(pickupLat, pickupLng, destLat, destLng float64, rideClass string) string {
	return fmt.Sprintf("%s%.3f:%.3f:%.3f:%.3f:%s", estimateKeyPrefix, pickupLat, pickupLng, destLat, destLng, rideClass)
}

func (c *estimateCache) Get(ctx context.Context, key string) (*models.EstimateResponse, error) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var estimate models.EstimateResponse
	if err := json.Unmarshal(data, &estimate); err != nil {
		return nil, err
	}
	if IsStale(estimate.GeneratedAt, c.now(), c.ttl) {
		return nil, nil
	}

	estimate.Cached = true
	return &estimate, nil
}

func (c *estimateCache) Set(ctx context.Context, key string, estimate *models.EstimateResponse) error {
	data, err := json.Marshal(estimate)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, key, data, c.ttl).Err()
}

func IsStale(generatedAt, now time.Time, ttl time.Duration) bool {
	return now.Sub(generatedAt) >= ttl
}
