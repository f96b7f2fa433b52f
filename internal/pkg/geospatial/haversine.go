package geospatial

import (
	"math"

	"github.com/para-cebu/para/internal/core/domain"
)

// EarthRadiusMeters is the mean Earth radius used by all distance math.
const EarthRadiusMeters = 6371000.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// Rounding can push a past 1 for near-antipodal points.
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// Distance is Haversine over coordinates.
func Distance(a, b domain.Coordinate) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// MinDistance returns the smallest distance from p to any of points.
// ok is false when points is empty.
func MinDistance(points []domain.Coordinate, p domain.Coordinate) (d float64, ok bool) {
	if len(points) == 0 {
		return 0, false
	}
	d = math.Inf(1)
	for _, q := range points {
		if dq := Distance(p, q); dq < d {
			d = dq
		}
	}
	return d, true
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
