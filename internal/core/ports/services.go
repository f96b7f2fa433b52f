package ports

import (
	"context"

	"github.com/para-cebu/para/internal/core/domain"
)

// GeometryProvider fetches a route's polyline from an external source as
// ordered line segments.
type GeometryProvider interface {
	FetchSegments(ctx context.Context, routeID string) ([][]domain.Coordinate, error)
}

// GeometryCache holds flattened route geometries by route id. Implementations
// decide eviction; callers never mutate returned slices.
type GeometryCache interface {
	Get(ctx context.Context, routeID string) ([]domain.Coordinate, bool)
	Put(ctx context.Context, routeID string, points []domain.Coordinate)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishScanCompleted(ctx context.Context, summary *domain.ScanSummary) error
	PublishCatalogUpdated(ctx context.Context, update *domain.CatalogUpdate) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeCatalogUpdated(ctx context.Context, handler func(ctx context.Context, update *domain.CatalogUpdate) error) error
}

// CacheService provides raw key/value caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// ErrorReporter forwards unexpected failures to an error tracker.
type ErrorReporter interface {
	CaptureError(ctx context.Context, err error, tags map[string]string)
}
