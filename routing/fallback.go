package routing

import (
	"math"

	"github.com/ThalefangN/get-more-bw-87-sub000/models"
)

const (
	FallbackPoints = 201

	curveOffsetRatio = 0.25
	curveJitterRatio = 0.05
)

// Fallback builds a curved stand-in path from origin to destination: a cubic
// Bezier whose two control points sit at 1/3 and 2/3 of the chord, pushed to
// the same side by a quarter of the distance plus up to ±5% jitter. rnd must
// return values in [0, 1).
//
// Work is done in raw degree space, which is fine at city scale.
func Fallback(origin, destination models.Coordinate, rnd func() float64) []models.Coordinate {
	points := make([]models.Coordinate, FallbackPoints)

	dx := destination.Lng - origin.Lng
	dy := destination.Lat - origin.Lat
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		for i := range points {
			points[i] = origin
		}
		return points
	}

	jitter := 0.0
	if rnd != nil {
		jitter = (rnd()*2 - 1) * curveJitterRatio
	}
	offset := (curveOffsetRatio + jitter) * dist

	// unit normal to the chord
	nx, ny := -dy/dist, dx/dist

	p0x, p0y := origin.Lng, origin.Lat
	p3x, p3y := destination.Lng, destination.Lat
	p1x, p1y := p0x+dx/3+nx*offset, p0y+dy/3+ny*offset
	p2x, p2y := p0x+2*dx/3+nx*offset, p0y+2*dy/3+ny*offset

	last := FallbackPoints - 1
	for i := range points {
		t := float64(i) / float64(last)
		u := 1 - t
		b0 := u * u * u
		b1 := 3 * u * u * t
		b2 := 3 * u * t * t
		b3 := t * t * t
		points[i] = models.Coordinate{
			Lng: b0*p0x + b1*p1x + b2*p2x + b3*p3x,
			Lat: b0*p0y + b1*p1y + b2*p2y + b3*p3y,
		}
	}
	points[0] = origin
	points[last] = destination
	return points
}
