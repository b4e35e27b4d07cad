package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/ThalefangN/get-more-bw-87-sub000/models"
)

const earthRadiusKm = 6371.0

func ParseLatLng(latLngStr string) (float64, float64) {
	parts := strings.Split(latLngStr, ",")
	if len(parts) != 2 {
		return 0, 0
	}
	lat, _ := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, _ := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	return lat, lon
}

// CalculateDistance returns the distance between two points in KM (Haversine formula)
func CalculateDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(toRad(lat1))*math.Cos(toRad(lat2))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// Bearing is the initial great-circle azimuth from a to b in degrees, [0, 360).
func Bearing(a, b models.Coordinate) float64 {
	lat1, lat2 := toRad(a.Lat), toRad(b.Lat)
	dLng := toRad(b.Lng - a.Lng)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)

	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// Euclidean is the straight-line distance in degree space. Used for
// presentation geometry only, never for fares or ETAs.
func Euclidean(a, b models.Coordinate) float64 {
	return math.Hypot(b.Lat-a.Lat, b.Lng-a.Lng)
}

// OffsetByBearing moves origin radiusDeg degrees along bearingDeg (0 = north)
// on a flat degree plane.
func OffsetByBearing(origin models.Coordinate, bearingDeg, radiusDeg float64) models.Coordinate {
	rad := toRad(bearingDeg)
	return models.Coordinate{
		Lat: origin.Lat + radiusDeg*math.Cos(rad),
		Lng: origin.Lng + radiusDeg*math.Sin(rad),
	}
}

func toRad(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}
