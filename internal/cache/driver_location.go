package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	driverGeoKey          = "drivers:geo"
	driverMetaKeyPrefix   = "driver:meta:"
	driverActiveRideKey   = "driver:active:"
	locationTTL           = 5 * time.Minute
	activeRideTTL         = 6 * time.Hour
	maxNearbyCacheResults = 100
)

type DriverLocation struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Heading   float64 `json:"heading,omitempty"`
	Speed     float64 `json:"speed,omitempty"`
	UpdatedAt int64   `json:"updated_at"`
}

// DriverLocationCache is a fast, possibly stale index of driver positions.
// Callers must confirm availability against the database.
type DriverLocationCache interface {
	UpdateLocation(ctx context.Context, driverID string, lat, lng float64, heading, speed *float64) error
	GetDriverLocation(ctx context.Context, driverID string) (*DriverLocation, error)
	GetNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]DriverWithDistance, error)
	RemoveDriver(ctx context.Context, driverID string) error
	SetDriverStatus(ctx context.Context, driverID, status string) error
	GetDriverStatus(ctx context.Context, driverID string) (string, error)
	SetActiveRide(ctx context.Context, driverID, rideID string) error
	GetActiveRide(ctx context.Context, driverID string) (string, error)
	ClearActiveRide(ctx context.Context, driverID string) error
}

type DriverWithDistance struct {
	DriverID string
	Distance float64
}

type driverLocationCache struct {
	redis *redis.Client
}

func NewDriverLocationCache(redisClient *redis.Client) DriverLocationCache {
	return &driverLocationCache{redis: redisClient}
}

func (c *driverLocationCache) UpdateLocation(ctx context.Context, driverID string, lat, lng float64, heading, speed *float64) error {
	loc := DriverLocation{
		Lat:       lat,
		Lng:       lng,
		UpdatedAt: time.Now().Unix(),
	}
	if heading != nil {
		loc.Heading = *heading
	}
	if speed != nil {
		loc.Speed = *speed
	}

	locJSON, err := json.Marshal(loc)
	if err != nil {
		return err
	}

	pipe := c.redis.TxPipeline()
	pipe.GeoAdd(ctx, driverGeoKey, &redis.GeoLocation{
		Name:      driverID,
		Longitude: lng,
		Latitude:  lat,
	})
	pipe.Set(ctx, driverMetaKeyPrefix+driverID+":location", locJSON, locationTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *driverLocationCache) GetDriverLocation(ctx context.Context, driverID string) (*DriverLocation, error) {
	data, err := c.redis.Get(ctx, driverMetaKeyPrefix+driverID+":location").Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var loc DriverLocation
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil, err
	}

	return &loc, nil
}

// GetNearbyDrivers returns indexed drivers within radius, nearest first.
func (c *driverLocationCache) GetNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]DriverWithDistance, error) {
	locations, err := c.redis.GeoRadius(ctx, driverGeoKey, lng, lat, &redis.GeoRadiusQuery{
		Radius:   radiusKm,
		Unit:     "km",
		WithDist: true,
		Count:    maxNearbyCacheResults,
		Sort:     "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	result := make([]DriverWithDistance, 0, len(locations))
	for _, loc := range locations {
		result = append(result, DriverWithDistance{
			DriverID: loc.Name,
			Distance: loc.Dist,
		})
	}

	return result, nil
}

func (c *driverLocationCache) RemoveDriver(ctx context.Context, driverID string) error {
	return c.redis.ZRem(ctx, driverGeoKey, driverID).Err()
}

// SetDriverStatus records the status and drops drivers that are not online
// from the geo index so they stop showing up as candidates.
func (c *driverLocationCache) SetDriverStatus(ctx context.Context, driverID, status string) error {
	pipe := c.redis.TxPipeline()
	pipe.HSet(ctx, driverMetaKeyPrefix+driverID, "status", status)
	if status != "online" {
		pipe.ZRem(ctx, driverGeoKey, driverID)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *driverLocationCache) GetDriverStatus(ctx context.Context, driverID string) (string, error) {
	status, err := c.redis.HGet(ctx, driverMetaKeyPrefix+driverID, "status").Result()
	if err == redis.Nil {
		return "", nil
	}
	return status, err
}

func (c *driverLocationCache) SetActiveRide(ctx context.Context, driverID, rideID string) error {
	return c.redis.Set(ctx, driverActiveRideKey+driverID, rideID, activeRideTTL).Err()
}

func (c *driverLocationCache) GetActiveRide(ctx context.Context, driverID string) (string, error) {
	result, err := c.redis.Get(ctx, driverActiveRideKey+driverID).Result()
	if err == redis.Nil {
		return "", nil
	}
	return result, err
}

func (c *driverLocationCache) ClearActiveRide(ctx context.Context, driverID string) error {
	return c.redis.Del(ctx, driverActiveRideKey+driverID).Err()
}
