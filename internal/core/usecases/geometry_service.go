package usecases

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/para-cebu/para/internal/core/domain"
	"github.com/para-cebu/para/internal/core/ports"
	"github.com/para-cebu/para/internal/pkg/metrics"
	"github.com/para-cebu/para/internal/pkg/telemetry"
)

var tracer = otel.Tracer("github.com/para-cebu/para/internal/core/usecases")

// geometryFetchTimeout bounds a shared provider call, which outlives the
// cancellation of any single caller.
const geometryFetchTimeout = 60 * time.Second

var (
	errEmptyRouteID  = errors.New("route id is empty")
	errEmptyGeometry = errors.New("provider returned no coordinates")
)

// GeometryService resolves route ids to flattened polylines, reading through
// an injected cache.
type GeometryService struct {
	provider ports.GeometryProvider
	cache    ports.GeometryCache
	inflight singleflight.Group
}

// NewGeometryService creates a new GeometryService.
func NewGeometryService(provider ports.GeometryProvider, cache ports.GeometryCache) *GeometryService {
	return &GeometryService{provider: provider, cache: cache}
}

// Geometry returns the ordered coordinates of a route. On failure it returns
// an empty sequence and a *domain.GeometryFetchError; the cache is left untouched.
func (s *GeometryService) Geometry(ctx context.Context, routeID string) ([]domain.Coordinate, error) {
	if routeID == "" {
		return nil, &domain.GeometryFetchError{RouteID: routeID, Err: errEmptyRouteID}
	}

	if points, ok := s.cache.Get(ctx, routeID); ok {
		metrics.CacheHits.WithLabelValues("geometry").Inc()
		return points, nil
	}
	metrics.CacheMisses.WithLabelValues("geometry").Inc()
	if err := ctx.Err(); err != nil {
		return nil, &domain.GeometryFetchError{RouteID: routeID, Err: err}
	}

	// Concurrent misses for one route share a single provider call, detached
	// from ctx. A caller whose ctx ends stops waiting; the others still get
	// the result.
	ch := s.inflight.DoChan(routeID, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), geometryFetchTimeout)
		defer cancel()
		return s.fetch(fetchCtx, routeID)
	})
	select {
	case <-ctx.Done():
		return nil, &domain.GeometryFetchError{RouteID: routeID, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.Coordinate), nil
	}
}

func (s *GeometryService) fetch(ctx context.Context, routeID string) ([]domain.Coordinate, error) {
	ctx, span := tracer.Start(ctx, "GeometryService.fetch",
		trace.WithAttributes(attribute.String(telemetry.AttrRouteID, routeID)))
	defer span.End()

	start := time.Now()
	segments, err := s.provider.FetchSegments(ctx, routeID)
	metrics.GeometryFetchDuration.Observe(time.Since(start).Seconds())
	if err == nil {
		if points := FlattenSegments(segments); len(points) > 0 {
			s.cache.Put(ctx, routeID, points)
			metrics.GeometryFetches.WithLabelValues("ok").Inc()
			span.SetAttributes(attribute.Int("route.points", len(points)))
			return points, nil
		}
		err = errEmptyGeometry
	}

	metrics.GeometryFetches.WithLabelValues("error").Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return nil, &domain.GeometryFetchError{RouteID: routeID, Err: err}
}

// FlattenSegments concatenates line segments in the order given.
func FlattenSegments(segments [][]domain.Coordinate) []domain.Coordinate {
	n := 0
	for _, seg := range segments {
		n += len(seg)
	}
	points := make([]domain.Coordinate, 0, n)
	for _, seg := range segments {
		points = append(points, seg...)
	}
	return points
}
