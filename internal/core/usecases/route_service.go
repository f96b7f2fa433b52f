package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/para-cebu/para/internal/core/domain"
	"github.com/para-cebu/para/internal/core/ports"
)

// RouteService handles the jeepney route catalog.
type RouteService struct {
	routes     ports.RouteRepository
	geometries *GeometryService
	publisher  ports.EventPublisher
}

// NewRouteService creates a new RouteService. publisher may be nil.
func NewRouteService(routes ports.RouteRepository, geometries *GeometryService, publisher ports.EventPublisher) *RouteService {
	return &RouteService{routes: routes, geometries: geometries, publisher: publisher}
}

// List returns every route in catalog order.
func (s *RouteService) List(ctx context.Context) ([]domain.RouteDescriptor, error) {
	return s.routes.FetchAll(ctx)
}

// GetByRouteNumber looks a route up by its public number, case-insensitively.
func (s *RouteService) GetByRouteNumber(ctx context.Context, routeNumber string) (*domain.RouteDescriptor, error) {
	n := NormalizeRouteNumber(routeNumber)
	if n == "" {
		return nil, fmt.Errorf("%w: route number is required", domain.ErrInvalidRoute)
	}
	return s.routes.GetByRouteNumber(ctx, n)
}

// GetByRouteID returns a route by its relation id.
func (s *RouteService) GetByRouteID(ctx context.Context, routeID string) (*domain.RouteDescriptor, error) {
	return s.routes.GetByRouteID(ctx, routeID)
}

// Create validates and upserts a single route.
func (s *RouteService) Create(ctx context.Context, route domain.RouteDescriptor) (*domain.RouteDescriptor, error) {
	route, err := normalizeRoute(route)
	if err != nil {
		return nil, err
	}
	if err := s.routes.Upsert(ctx, &route); err != nil {
		return nil, fmt.Errorf("upsert route: %w", err)
	}
	s.publishUpdate(ctx, []string{route.RouteID})
	return &route, nil
}

// Import upserts a batch of routes. Invalid entries abort the whole batch.
func (s *RouteService) Import(ctx context.Context, routes []domain.RouteDescriptor) (int, error) {
	if len(routes) == 0 {
		return 0, nil
	}
	clean := make([]domain.RouteDescriptor, 0, len(routes))
	ids := make([]string, 0, len(routes))
	for i, r := range routes {
		r, err := normalizeRoute(r)
		if err != nil {
			return 0, fmt.Errorf("route %d: %w", i, err)
		}
		clean = append(clean, r)
		ids = append(ids, r.RouteID)
	}
	if err := s.routes.UpsertBatch(ctx, clean); err != nil {
		return 0, fmt.Errorf("upsert routes: %w", err)
	}
	s.publishUpdate(ctx, ids)
	return len(clean), nil
}

// Geometry returns the flattened polyline of a catalog route.
func (s *RouteService) Geometry(ctx context.Context, routeID string) (*domain.RouteGeometry, error) {
	if _, err := s.routes.GetByRouteID(ctx, routeID); err != nil {
		return nil, err
	}
	points, err := s.geometries.Geometry(ctx, routeID)
	if err != nil {
		return nil, err
	}
	return &domain.RouteGeometry{RouteID: routeID, Points: points, Bounds: domain.BoundsOf(points)}, nil
}

func (s *RouteService) publishUpdate(ctx context.Context, ids []string) {
	if s.publisher == nil {
		return
	}
	update := &domain.CatalogUpdate{RouteIDs: ids, UpdatedAt: time.Now().UTC()}
	if err := s.publisher.PublishCatalogUpdated(ctx, update); err != nil {
		slog.WarnContext(ctx, "publish catalog update", "routes", len(ids), "error", err)
	}
}

// NormalizeRouteNumber trims and upper-cases a route number.
func NormalizeRouteNumber(n string) string {
	return strings.ToUpper(strings.TrimSpace(n))
}

func normalizeRoute(r domain.RouteDescriptor) (domain.RouteDescriptor, error) {
	r.RouteNumber = NormalizeRouteNumber(r.RouteNumber)
	r.RouteID = strings.TrimSpace(r.RouteID)
	r.Locations = strings.TrimSpace(r.Locations)

	var missing []string
	if r.RouteNumber == "" {
		missing = append(missing, "route_number")
	}
	if r.RouteID == "" {
		missing = append(missing, "route_id")
	}
	if r.Locations == "" {
		missing = append(missing, "locations")
	}
	if len(missing) > 0 {
		return r, fmt.Errorf("%w: missing %s", domain.ErrInvalidRoute, strings.Join(missing, ", "))
	}
	return r, nil
}

// IsNotFound reports whether err means the requested record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
