package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/para-cebu/para/internal/adapters/memory"
	"github.com/para-cebu/para/internal/core/domain"
	"github.com/para-cebu/para/internal/core/usecases"
)

func TestCacheWarmer_Warm(t *testing.T) {
	rs := routes(6)
	provider := allOnLine(rs)
	segments := provider.segments
	provider.fetchFn = func(ctx context.Context, id string) ([][]domain.Coordinate, error) {
		if id == rs[3].RouteID {
			return nil, errors.New("HTTP 504")
		}
		return segments[id], nil
	}
	cache := memory.NewGeometryCache()
	geo := usecases.NewGeometryService(provider, cache)

	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.RouteID
	}

	warmed, failed, err := usecases.NewCacheWarmer(geo, 2).Warm(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, 5, warmed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 5, cache.Len())

	// A scan after warming does not go back to the provider for warmed routes.
	before := provider.calls.Load()
	svc := usecases.NewScanService(catalogOf(rs[0]), geo, nil, nil, usecases.ScanOptions{})
	_, err = svc.FindNearbyRoutes(context.Background(), domain.ScanRequest{Origin: ayala, Destination: fuente}, nil)
	require.NoError(t, err)
	assert.Equal(t, before, provider.calls.Load())
}

func TestCacheWarmer_Cancelled(t *testing.T) {
	rs := routes(3)
	geo := usecases.NewGeometryService(allOnLine(rs), memory.NewGeometryCache())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	warmed, _, err := usecases.NewCacheWarmer(geo, 0).Warm(ctx, []string{rs[0].RouteID, rs[1].RouteID})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, warmed)
}
