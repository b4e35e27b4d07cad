// Package routing turns a driver/user pair into a drawable path, preferring
// live directions and degrading to a synthetic curve.
package routing

import (
	"context"
	"math/rand/v2"

	"github.com/ThalefangN/get-more-bw-87-sub000/models"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"

	"go.uber.org/zap"
)

const approximateNotice = "Live directions unavailable, showing an approximate path"

type Directions interface {
	Route(ctx context.Context, origin, destination models.Coordinate) ([]models.Coordinate, error)
}

type Cache interface {
	Get(ctx context.Context, origin, destination models.Coordinate) ([]models.Coordinate, bool)
	Put(ctx context.Context, origin, destination models.Coordinate, points []models.Coordinate) error
}

// LayerStore holds the one drawn path per driver.
type LayerStore interface {
	Replace(ctx context.Context, driverID string, points []models.Coordinate, approximate bool) error
}

type Notifier interface {
	Notify(ctx context.Context, userID string, n models.Notice)
}

type Request struct {
	UserID      string
	DriverID    string
	Origin      models.Coordinate
	Destination models.Coordinate
}

type Result struct {
	Points      []models.Coordinate `json:"points"`
	Approximate bool                `json:"approximate"`
}

type Service struct {
	Directions Directions
	Cache      Cache
	Layers     LayerStore
	Notifier   Notifier
	// Rand feeds the fallback jitter; nil uses the global source.
	Rand func() float64
}

// ComputeRoute never fails. The returned path always starts at the origin and
// ends at the destination.
func (s *Service) ComputeRoute(ctx context.Context, req Request) Result {
	var res Result
	if points, ok := s.primary(ctx, req); ok {
		res.Points = anchor(points, req.Origin, req.Destination)
	} else {
		rnd := s.Rand
		if rnd == nil {
			rnd = rand.Float64
		}
		res.Points = Fallback(req.Origin, req.Destination, rnd)
		res.Approximate = true
		if s.Notifier != nil && req.UserID != "" {
			s.Notifier.Notify(ctx, req.UserID, models.Notice{Level: models.NoticeInfo, Message: approximateNotice})
		}
	}

	if s.Layers != nil && req.DriverID != "" {
		if err := s.Layers.Replace(ctx, req.DriverID, res.Points, res.Approximate); err != nil {
			utils.Logger.Warn("Failed to store route layer", zap.String("driverId", req.DriverID), zap.Error(err))
		}
	}
	return res
}

func (s *Service) primary(ctx context.Context, req Request) ([]models.Coordinate, bool) {
	if s.Cache != nil {
		if points, ok := s.Cache.Get(ctx, req.Origin, req.Destination); ok {
			return points, true
		}
	}
	if s.Directions == nil {
		return nil, false
	}

	points, err := s.Directions.Route(ctx, req.Origin, req.Destination)
	if err != nil {
		utils.Logger.Warn("Directions failed, using fallback path",
			zap.String("driverId", req.DriverID), zap.Error(err))
		return nil, false
	}
	if s.Cache != nil {
		if err := s.Cache.Put(ctx, req.Origin, req.Destination, points); err != nil {
			utils.Logger.Warn("Failed to cache directions", zap.Error(err))
		}
	}
	return points, true
}

// anchor keeps the provider geometry as returned and adds the true endpoints
// where the provider snapped them to the road network.
func anchor(points []models.Coordinate, origin, destination models.Coordinate) []models.Coordinate {
	out := make([]models.Coordinate, 0, len(points)+2)
	if points[0] != origin {
		out = append(out, origin)
	}
	out = append(out, points...)
	if points[len(points)-1] != destination {
		out = append(out, destination)
	}
	return out
}
