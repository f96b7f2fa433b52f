package usecases

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// CacheWarmer prefetches route geometries so scans start from a warm cache.
type CacheWarmer struct {
	geometries  *GeometryService
	concurrency int
}

// NewCacheWarmer creates a new CacheWarmer fetching at most concurrency
// geometries at a time.
func NewCacheWarmer(geometries *GeometryService, concurrency int) *CacheWarmer {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &CacheWarmer{geometries: geometries, concurrency: concurrency}
}

// Warm fetches the geometry of every route id. Individual failures are
// counted, not returned; the error is non-nil only when ctx ends first.
func (w *CacheWarmer) Warm(ctx context.Context, routeIDs []string) (warmed, failed int, err error) {
	start := time.Now()
	var ok, bad atomic.Int64

	var g errgroup.Group
	g.SetLimit(w.concurrency)
	for _, id := range routeIDs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if _, err := w.geometries.Geometry(ctx, id); err != nil {
				bad.Add(1)
				if ctx.Err() == nil {
					slog.Warn("cache warm: geometry fetch failed", "route_id", id, "error", err)
				}
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	warmed, failed = int(ok.Load()), int(bad.Load())
	slog.Info("cache warm finished", "routes", len(routeIDs), "warmed", warmed,
		"failed", failed, "elapsed", time.Since(start).String())
	return warmed, failed, ctx.Err()
}
