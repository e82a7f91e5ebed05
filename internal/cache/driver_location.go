package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	driverLocationKeyPrefix = "driver:location:"
	locationTTL             = 5 * time.Minute
)

type DriverLocation struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Speed     *float64 `json:"speed,omitempty"`
	UpdatedAt int64    `json:"updated_at"`
}

// DriverLocationCache keeps each driver's last reported position for a short TTL.
type DriverLocationCache interface {
	UpdateLocation(ctx context.Context, driverID string, lat, lng float64, speed *float64, at time.Time) error
	GetDriverLocation(ctx context.Context, driverID string) (*DriverLocation, error)
	RemoveDriver(ctx context.Context, driverID string) error
}

type driverLocationCache struct {
	redis *redis.Client
}

func NewDriverLocationCache(redisClient *redis.Client) DriverLocationCache {
	return &driverLocationCache{redis: redisClient}
}

func (c *driverLocationCache) UpdateLocation(ctx context.Context, driverID string, lat, lng float64, speed *float64, at time.Time) error {
	loc := DriverLocation{
		Latitude:  lat,
		Longitude: lng,
		Speed:     speed,
		UpdatedAt: at.Unix(),
	}

	locJSON, err := json.Marshal(loc)
	if err != nil {
		return err
	}

	return c.redis.Set(ctx, driverLocationKeyPrefix+driverID, locJSON, locationTTL).Err()
}

// GetDriverLocation returns nil when nothing was reported within the TTL.
func (c *driverLocationCache) GetDriverLocation(ctx context.Context, driverID string) (*DriverLocation, error) {
	data, err := c.redis.Get(ctx, driverLocationKeyPrefix+driverID).Bytes()
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

func (c *driverLocationCache) RemoveDriver(ctx context.Context, driverID string) error {
	return c.redis.Del(ctx, driverLocationKeyPrefix+driverID).Err()
}
