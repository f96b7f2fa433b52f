// Package geoexport renders route geometries in interchange formats.
package geoexport

import (
	"errors"
	"fmt"

	"github.com/twpayne/go-polyline"

	"github.com/para-cebu/para/internal/core/domain"
)

// EncodePolyline encodes points with the Google encoded polyline algorithm
// (precision 1e-5).
func EncodePolyline(points []domain.Coordinate) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Lat, p.Lon}
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodePolyline decodes an encoded polyline back into coordinates.
func DecodePolyline(encoded string) ([]domain.Coordinate, error) {
	if encoded == "" {
		return nil, errors.New("encoded polyline is empty")
	}
	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("decode polyline: %d trailing bytes", len(rest))
	}
	points := make([]domain.Coordinate, len(coords))
	for i, c := range coords {
		points[i] = domain.Coordinate{Lat: c[0], Lon: c[1]}
	}
	return points, nil
}
