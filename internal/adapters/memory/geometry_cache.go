package memory

import (
	"context"
	"sync"

	"github.com/para-cebu/para/internal/core/domain"
)

// GeometryCache implements ports.GeometryCache with an unbounded map. Entries
// live for the lifetime of the process.
type GeometryCache struct {
	mu      sync.RWMutex
	entries map[string][]domain.Coordinate
}

// NewGeometryCache creates an empty cache.
func NewGeometryCache() *GeometryCache {
	return &GeometryCache{entries: make(map[string][]domain.Coordinate)}
}

func (c *GeometryCache) Get(_ context.Context, routeID string) ([]domain.Coordinate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	points, ok := c.entries[routeID]
	return points, ok
}

// Put stores points under routeID. Writes for the same id are idempotent;
// the last one wins.
func (c *GeometryCache) Put(_ context.Context, routeID string, points []domain.Coordinate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[routeID] = points
}

// Len returns the number of cached routes.
func (c *GeometryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
