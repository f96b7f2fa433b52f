package valkey

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/para-cebu/para/internal/core/domain"
	"github.com/para-cebu/para/internal/core/ports"
)

const geometryKeyPrefix = "para:geometry:"

// GeometryCache layers a process-local cache over a shared key/value store so
// geometries fetched by one instance are reused by the others.
type GeometryCache struct {
	local  ports.GeometryCache
	shared ports.CacheService
	ttl    time.Duration
}

// NewGeometryCache creates a two-level geometry cache. A ttl of zero keeps
// shared entries forever.
func NewGeometryCache(local ports.GeometryCache, shared ports.CacheService, ttl time.Duration) *GeometryCache {
	return &GeometryCache{local: local, shared: shared, ttl: ttl}
}

func (c *GeometryCache) Get(ctx context.Context, routeID string) ([]domain.Coordinate, bool) {
	if points, ok := c.local.Get(ctx, routeID); ok {
		return points, true
	}

	data, err := c.shared.Get(ctx, geometryKeyPrefix+routeID)
	if err != nil {
		if !IsMiss(err) {
			slog.WarnContext(ctx, "geometry cache read failed", "route_id", routeID, "error", err)
		}
		return nil, false
	}

	var points []domain.Coordinate
	if err := json.Unmarshal(data, &points); err != nil || len(points) == 0 {
		slog.WarnContext(ctx, "geometry cache entry corrupt", "route_id", routeID)
		_ = c.shared.Delete(ctx, geometryKeyPrefix+routeID)
		return nil, false
	}

	c.local.Put(ctx, routeID, points)
	return points, true
}

func (c *GeometryCache) Put(ctx context.Context, routeID string, points []domain.Coordinate) {
	c.local.Put(ctx, routeID, points)

	data, err := json.Marshal(points)
	if err != nil {
		return
	}
	if err := c.shared.Set(ctx, geometryKeyPrefix+routeID, data, int(c.ttl/time.Second)); err != nil {
		slog.WarnContext(ctx, "geometry cache write failed", "route_id", routeID, "error", err)
	}
}
