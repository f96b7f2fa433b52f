package ports

import (
	"context"

	"github.com/para-cebu/para/internal/core/domain"
)

// RouteCatalog supplies the candidate routes for a scan. FetchAll must fail
// loudly rather than return a partial catalog.
type RouteCatalog interface {
	FetchAll(ctx context.Context) ([]domain.RouteDescriptor, error)
}

// RouteRepository persists the jeepney route catalog.
type RouteRepository interface {
	RouteCatalog
	Upsert(ctx context.Context, route *domain.RouteDescriptor) error
	UpsertBatch(ctx context.Context, routes []domain.RouteDescriptor) error
	GetByRouteNumber(ctx context.Context, routeNumber string) (*domain.RouteDescriptor, error)
	GetByRouteID(ctx context.Context, routeID string) (*domain.RouteDescriptor, error)
}

// SavedRouteRepository persists user bookmarks.
type SavedRouteRepository interface {
	ListByUser(ctx context.Context, userID string) ([]domain.SavedRoute, error)
	Create(ctx context.Context, saved *domain.SavedRoute) error
	Delete(ctx context.Context, userID, relationID string) error
	Exists(ctx context.Context, userID, relationID string) (bool, error)
}
