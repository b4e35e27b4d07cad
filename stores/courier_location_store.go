package stores

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThalefangN/get-more-bw-87-sub000/db"

	"github.com/redis/go-redis/v9"
)

type CourierLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	CourierID string  `json:"courierId"`
	UpdatedAt int64   `json:"updatedAt"`
	Distance  float64 `json:"distance,omitempty"`
}

const (
	CourierGeoKey        = "couriers:geo"
	CourierDataKeyPrefix = "couriers:data:"
)

func UpdateCourierLocation(ctx context.Context, courierID string, lat, lon float64) error {
	err := db.RedisClient.GeoAdd(ctx, CourierGeoKey, &redis.GeoLocation{
		Name:      courierID,
		Longitude: lon,
		Latitude:  lat,
	}).Err()
	if err != nil {
		return err
	}

	val, _ := json.Marshal(CourierLocation{
		Latitude:  lat,
		Longitude: lon,
		CourierID: courierID,
		UpdatedAt: time.Now().Unix(),
	})

	// expire stale positions after an hour of silence
	return db.RedisClient.Set(ctx, CourierDataKeyPrefix+courierID, val, time.Hour).Err()
}

func RemoveCourierLocation(ctx context.Context, courierID string) error {
	db.RedisClient.ZRem(ctx, CourierGeoKey, courierID)
	return db.RedisClient.Del(ctx, CourierDataKeyPrefix+courierID).Err()
}

// GetNearbyCouriers returns couriers within radiusKm, nearest first. GEO members
// whose metadata has expired are skipped.
func GetNearbyCouriers(ctx context.Context, lat, lon, radiusKm float64) ([]CourierLocation, error) {
	locs, err := db.RedisClient.GeoRadius(ctx, CourierGeoKey, lon, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	couriers := []CourierLocation{}
	for _, loc := range locs {
		val, err := db.RedisClient.Get(ctx, CourierDataKeyPrefix+loc.Name).Result()
		if err != nil {
			continue
		}
		var cl CourierLocation
		if json.Unmarshal([]byte(val), &cl) == nil {
			cl.Latitude = loc.Latitude
			cl.Longitude = loc.Longitude
			cl.Distance = loc.Dist
			couriers = append(couriers, cl)
		}
	}
	return couriers, nil
}
