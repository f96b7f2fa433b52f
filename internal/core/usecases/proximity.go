package usecases

import (
	"context"
	"log/slog"

	"github.com/para-cebu/para/internal/core/domain"
	"github.com/para-cebu/para/internal/pkg/geospatial"
)

// cancelCheckInterval is how many points are tested between context checks.
const cancelCheckInterval = 256

// ProximityTester checks whether a route passes within a radius of a point.
type ProximityTester struct {
	geometries *GeometryService
}

// NewProximityTester creates a new ProximityTester.
func NewProximityTester(geometries *GeometryService) *ProximityTester {
	return &ProximityTester{geometries: geometries}
}

// PassesNear reports whether any point of the route lies within
// maxDistanceMeters of point (inclusive). A cancelled context or a failed
// geometry fetch yields false.
func (p *ProximityTester) PassesNear(ctx context.Context, routeID string, point domain.Coordinate, maxDistanceMeters float64) bool {
	if ctx.Err() != nil {
		return false
	}

	points, err := p.geometries.Geometry(ctx, routeID)
	if err != nil {
		if ctx.Err() == nil {
			slog.WarnContext(ctx, "route geometry unavailable", "route_id", routeID, "error", err)
		}
		return false
	}

	return anyWithin(ctx, points, point, maxDistanceMeters)
}

func anyWithin(ctx context.Context, points []domain.Coordinate, point domain.Coordinate, maxDistanceMeters float64) bool {
	for i, q := range points {
		if i%cancelCheckInterval == 0 && ctx.Err() != nil {
			return false
		}
		if geospatial.Distance(point, q) <= maxDistanceMeters {
			return true
		}
	}
	return false
}
