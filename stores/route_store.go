package stores

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ThalefangN/get-more-bw-87-sub000/db"
	"github.com/ThalefangN/get-more-bw-87-sub000/models"

	"github.com/mmcloughlin/geohash"
	"github.com/redis/go-redis/v9"
)

const (
	RouteLayerKeyPrefix      = "routes:layer:"
	DirectionsCacheKeyPrefix = "routes:directions:"

	routeLayerTTL      = 15 * time.Minute
	directionsCacheTTL = 10 * time.Minute
	// 8 characters is roughly a 38m x 19m cell
	directionsCellPrecision = 8
)

var ErrRouteNotFound = errors.New("route not found")

// RouteLayer is the path currently drawn for one driver.
type RouteLayer struct {
	DriverID    string              `json:"driverId"`
	Points      []models.Coordinate `json:"points"`
	Approximate bool                `json:"approximate"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// RouteLayers stores at most one layer per driver.
type RouteLayers struct{}

// Replace drops any previous layer for the driver before writing the new one,
// inside one MULTI so readers never see two.
func (RouteLayers) Replace(ctx context.Context, driverID string, points []models.Coordinate, approximate bool) error {
	val, err := json.Marshal(RouteLayer{
		DriverID:    driverID,
		Points:      points,
		Approximate: approximate,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	key := RouteLayerKeyPrefix + driverID
	_, err = db.RedisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.Set(ctx, key, val, routeLayerTTL)
		return nil
	})
	return err
}

func (RouteLayers) Get(ctx context.Context, driverID string) (*RouteLayer, error) {
	val, err := db.RedisClient.Get(ctx, RouteLayerKeyPrefix+driverID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRouteNotFound
	}
	if err != nil {
		return nil, err
	}

	var layer RouteLayer
	if err := json.Unmarshal([]byte(val), &layer); err != nil {
		return nil, err
	}
	return &layer, nil
}

func (RouteLayers) Remove(ctx context.Context, driverID string) error {
	return db.RedisClient.Del(ctx, RouteLayerKeyPrefix+driverID).Err()
}

// DirectionsCache keeps provider geometry keyed by the geohash cells of both
// endpoints, so nearby repeated lookups share one provider call.
type DirectionsCache struct{}

func DirectionsCacheKey(origin, destination models.Coordinate) string {
	return DirectionsCacheKeyPrefix +
		geohash.EncodeWithPrecision(origin.Lat, origin.Lng, directionsCellPrecision) + "|" +
		geohash.EncodeWithPrecision(destination.Lat, destination.Lng, directionsCellPrecision)
}

func (DirectionsCache) Get(ctx context.Context, origin, destination models.Coordinate) ([]models.Coordinate, bool) {
	val, err := db.RedisClient.Get(ctx, DirectionsCacheKey(origin, destination)).Result()
	if err != nil {
		return nil, false
	}
	var points []models.Coordinate
	if err := json.Unmarshal([]byte(val), &points); err != nil || len(points) < 2 {
		return nil, false
	}
	return points, true
}

func (DirectionsCache) Put(ctx context.Context, origin, destination models.Coordinate, points []models.Coordinate) error {
	val, err := json.Marshal(points)
	if err != nil {
		return err
	}
	return db.RedisClient.Set(ctx, DirectionsCacheKey(origin, destination), val, directionsCacheTTL).Err()
}
