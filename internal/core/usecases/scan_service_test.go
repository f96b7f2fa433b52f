package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/para-cebu/para/internal/adapters/memory"
	"github.com/para-cebu/para/internal/core/domain"
	"github.com/para-cebu/para/internal/core/usecases"
	"github.com/para-cebu/para/internal/pkg/geospatial"
)

var (
	ayala   = domain.Coordinate{Lat: 10.30, Lon: 123.90}
	fuente  = domain.Coordinate{Lat: 10.31, Lon: 123.91}
	cebuOne = []domain.Coordinate{ayala, fuente}
)

type progressLog struct {
	mu     sync.Mutex
	values []int
}

func (p *progressLog) record(v int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, v)
}

func (p *progressLog) snapshot() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.values...)
}

func newScanner(catalog *mockRouteRepo, provider *stubProvider) *usecases.ScanService {
	geo := usecases.NewGeometryService(provider, memory.NewGeometryCache())
	return usecases.NewScanService(catalog, geo, nil, nil, usecases.ScanOptions{})
}

func routes(n int) []domain.RouteDescriptor {
	out := make([]domain.RouteDescriptor, n)
	for i := range out {
		out[i] = domain.RouteDescriptor{RouteID: fmt.Sprintf("%d", 1000+i), RouteNumber: fmt.Sprintf("%02dA", i)}
	}
	return out
}

func allOnLine(rs []domain.RouteDescriptor) *stubProvider {
	segs := make(map[string][][]domain.Coordinate, len(rs))
	for _, r := range rs {
		segs[r.RouteID] = [][]domain.Coordinate{cebuOne}
	}
	return &stubProvider{segments: segs}
}

func assertProgressContract(t *testing.T, values []int) {
	t.Helper()
	require.NotEmpty(t, values)
	hundreds := 0
	for i, v := range values {
		assert.GreaterOrEqual(t, v, 0)
		assert.LessOrEqual(t, v, 100)
		if i > 0 {
			assert.GreaterOrEqual(t, v, values[i-1], "progress decreased: %v", values)
		}
		if v == 100 {
			hundreds++
		}
	}
	assert.Equal(t, 100, values[len(values)-1])
	assert.Equal(t, 1, hundreds, "100 must be reported exactly once: %v", values)
}

// Scenario 1: both endpoints sit on the route.
func TestFindNearbyRoutes_SingleMatch(t *testing.T) {
	route := domain.RouteDescriptor{RouteID: "1", RouteNumber: "04L", Locations: "Ayala - Fuente"}
	svc := newScanner(catalogOf(route), &stubProvider{segments: map[string][][]domain.Coordinate{"1": {cebuOne}}})

	var progress progressLog
	got, err := svc.FindNearbyRoutes(context.Background(), domain.ScanRequest{
		Origin: ayala, Destination: fuente, OriginLabel: "Ayala", DestinationLabel: "Fuente",
		MaxDistanceMeters: 100,
	}, progress.record)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, route, got[0].RouteDescriptor)
	assert.InDelta(t, 0, got[0].Distance, 1e-9)
	assert.Equal(t, "Ayala", got[0].OriginLabel)
	assert.Equal(t, "Fuente", got[0].DestinationLabel)
	assertProgressContract(t, progress.snapshot())
}

// Scenario 2: origin far away, destination never tested.
func TestFindNearbyRoutes_OriginFar(t *testing.T) {
	provider := &stubProvider{segments: map[string][][]domain.Coordinate{"1": {cebuOne}}}
	svc := newScanner(catalogOf(domain.RouteDescriptor{RouteID: "1"}), provider)

	got, err := svc.FindNearbyRoutes(context.Background(), domain.ScanRequest{
		Origin: domain.Coordinate{Lat: 0, Lon: 0}, Destination: fuente,
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.EqualValues(t, 1, provider.calls.Load(), "geometry is fetched once and cached")
}

// Scenario 3: empty catalog.
func TestFindNearbyRoutes_EmptyCatalog(t *testing.T) {
	provider := &stubProvider{}
	svc := newScanner(catalogOf(), provider)

	var progress progressLog
	got, err := svc.FindNearbyRoutes(context.Background(), domain.ScanRequest{Origin: ayala, Destination: fuente}, progress.record)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, []int{100}, progress.snapshot())
	assert.Zero(t, provider.calls.Load())
}

// Scenario 4: the only route's geometry cannot be fetched.
func TestFindNearbyRoutes_GeometryFailureExcludesRoute(t *testing.T) {
	provider := &stubProvider{fetchFn: func(ctx context.Context, id string) ([][]domain.Coordinate, error) {
		return nil, errors.New("HTTP 504")
	}}
	svc := newScanner(catalogOf(domain.RouteDescriptor{RouteID: "1"}), provider)

	got, err := svc.FindNearbyRoutes(context.Background(), domain.ScanRequest{Origin: ayala, Destination: fuente}, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindNearbyRoutes_CatalogFailure(t *testing.T) {
	boom := errors.New("connection refused")
	catalog := &mockRouteRepo{fetchAllFn: func(ctx context.Context) ([]domain.RouteDescriptor, error) {
		return nil, boom
	}}
	reporter := &mockReporter{}
	geo := usecases.NewGeometryService(&stubProvider{}, memory.NewGeometryCache())
	svc := usecases.NewScanService(catalog, geo, nil, reporter, usecases.ScanOptions{})

	var progress progressLog
	got, err := svc.FindNearbyRoutes(context.Background(), domain.ScanRequest{Origin: ayala, Destination: fuente}, progress.record)
	assert.Nil(t, got)

	var cerr *domain.CatalogFetchError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, progress.snapshot(), "failed scans report no progress")
	assert.Len(t, reporter.errs, 1)
}

func TestFindNearbyRoutes_ProgressMonotonic(t *testing.T) {
	for _, n := range []int{1, 3, 7, 250} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			rs := routes(n)
			svc := newScanner(catalogOf(rs...), allOnLine(rs))

			var progress progressLog
			got, err := svc.FindNearbyRoutes(context.Background(), domain.ScanRequest{Origin: ayala, Destination: fuente}, progress.record)
			require.NoError(t, err)
			assert.Len(t, got, n)
			assertProgressContract(t, progress.snapshot())
		})
	}
}

func TestFindNearbyRoutes_KeepsCatalogOrder(t *testing.T) {
	rs := routes(5)
	provider := allOnLine(rs)
	// Route 2 only touches the origin.
	provider.segments[rs[2].RouteID] = [][]domain.Coordinate{{ayala}}
	svc := newScanner(catalogOf(rs...), provider)

	got, err := svc.FindNearbyRoutes(context.Background(), domain.ScanRequest{Origin: ayala, Destination: fuente}, nil)
	require.NoError(t, err)

	var ids []string
	for _, m := range got {
		ids = append(ids, m.RouteID)
	}
	assert.Equal(t, []string{rs[0].RouteID, rs[1].RouteID, rs[3].RouteID, rs[4].RouteID}, ids)
}

func TestFindNearbyRoutes_CancelAfterK(t *testing.T) {
	const n, k = 10, 4
	rs := routes(n)
	publisher := &mockPublisher{}
	geo := usecases.NewGeometryService(allOnLine(rs), memory.NewGeometryCache())
	svc := usecases.NewScanService(catalogOf(rs...), geo, publisher, nil, usecases.ScanOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var progress progressLog
	calls := 0
	got, err := svc.FindNearbyRoutes(ctx, domain.ScanRequest{Origin: ayala, Destination: fuente}, func(v int) {
		progress.record(v)
		calls++
		// Progress for iteration k+1 arrives after k iterations finished.
		if calls == k+1 {
			cancel()
		}
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, len(got), k)
	assertProgressContract(t, progress.snapshot())

	require.Len(t, publisher.summaries, 1)
	assert.Equal(t, domain.ScanCancelled, publisher.summaries[0].State)
	assert.Equal(t, n, publisher.summaries[0].RoutesTotal)
}

func TestFindNearbyRoutes_CancelledBeforeStart(t *testing.T) {
	rs := routes(3)
	provider := allOnLine(rs)
	svc := newScanner(catalogOf(rs...), provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var progress progressLog
	got, err := svc.FindNearbyRoutes(ctx, domain.ScanRequest{Origin: ayala, Destination: fuente}, progress.record)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, []int{100}, progress.snapshot())
	assert.Zero(t, provider.calls.Load())
}

func TestFindNearbyRoutes_IterationDelayIsCancellable(t *testing.T) {
	rs := routes(3)
	geo := usecases.NewGeometryService(allOnLine(rs), memory.NewGeometryCache())
	svc := usecases.NewScanService(catalogOf(rs...), geo, nil, nil, usecases.ScanOptions{IterationDelay: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	got, err := svc.FindNearbyRoutes(ctx, domain.ScanRequest{Origin: ayala, Destination: fuente}, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFindNearbyRoutes_DistanceIsSumOfNearestPoints(t *testing.T) {
	origin := domain.Coordinate{Lat: 10.3004, Lon: 123.9001}
	dest := domain.Coordinate{Lat: 10.3097, Lon: 123.9102}
	svc := newScanner(catalogOf(domain.RouteDescriptor{RouteID: "1"}),
		&stubProvider{segments: map[string][][]domain.Coordinate{"1": {cebuOne}}})

	got, err := svc.FindNearbyRoutes(context.Background(), domain.ScanRequest{Origin: origin, Destination: dest}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)

	want := geospatial.Distance(origin, ayala) + geospatial.Distance(dest, fuente)
	assert.InDelta(t, want, got[0].Distance, 1e-6)
	assert.GreaterOrEqual(t, got[0].Distance, 0.0)
}

func TestFindNearbyRoutes_FallsBackToStraightLine(t *testing.T) {
	// Without caching, the third lookup (distance estimate) hits the failing provider.
	provider := &stubProvider{}
	provider.fetchFn = func(ctx context.Context, id string) ([][]domain.Coordinate, error) {
		if provider.calls.Load() > 2 {
			return nil, errors.New("rate limited")
		}
		return [][]domain.Coordinate{cebuOne}, nil
	}
	geo := usecases.NewGeometryService(provider, nopCache{})
	svc := usecases.NewScanService(catalogOf(domain.RouteDescriptor{RouteID: "1"}), geo, nil, nil, usecases.ScanOptions{})

	got, err := svc.FindNearbyRoutes(context.Background(), domain.ScanRequest{Origin: ayala, Destination: fuente}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, geospatial.Distance(ayala, fuente), got[0].Distance, 1e-9)
}

func TestFindNearbyRoutes_RecoversFromPanic(t *testing.T) {
	rs := routes(4)
	provider := allOnLine(rs)
	inner := provider.segments
	provider.fetchFn = func(ctx context.Context, id string) ([][]domain.Coordinate, error) {
		if id == rs[2].RouteID {
			panic("corrupt geometry")
		}
		return inner[id], nil
	}
	reporter := &mockReporter{}
	geo := usecases.NewGeometryService(provider, memory.NewGeometryCache())
	svc := usecases.NewScanService(catalogOf(rs...), geo, nil, reporter, usecases.ScanOptions{})

	var progress progressLog
	got, err := svc.FindNearbyRoutes(context.Background(), domain.ScanRequest{Origin: ayala, Destination: fuente}, progress.record)
	require.NoError(t, err)
	assert.Len(t, got, 2, "matches found before the panic are kept")
	assertProgressContract(t, progress.snapshot())
	assert.Len(t, reporter.errs, 1)
}

func TestFindNearbyRoutes_DefaultRadius(t *testing.T) {
	// 150 m off the route: outside the 100 m default, inside an explicit 200 m.
	origin := domain.Coordinate{Lat: 10.30 + 150.0/111195.0, Lon: 123.90}
	rs := []domain.RouteDescriptor{{RouteID: "1"}}
	svc := newScanner(catalogOf(rs...), allOnLine(rs))

	got, err := svc.FindNearbyRoutes(context.Background(), domain.ScanRequest{Origin: origin, Destination: fuente}, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = svc.FindNearbyRoutes(context.Background(), domain.ScanRequest{Origin: origin, Destination: fuente, MaxDistanceMeters: 200}, nil)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFindNearbyRoutes_PublishesSummary(t *testing.T) {
	rs := routes(2)
	publisher := &mockPublisher{}
	geo := usecases.NewGeometryService(allOnLine(rs), memory.NewGeometryCache())
	svc := usecases.NewScanService(catalogOf(rs...), geo, publisher, nil, usecases.ScanOptions{})

	_, err := svc.FindNearbyRoutes(context.Background(), domain.ScanRequest{Origin: ayala, Destination: fuente}, nil)
	require.NoError(t, err)

	require.Len(t, publisher.summaries, 1)
	s := publisher.summaries[0]
	assert.Equal(t, domain.ScanCompleted, s.State)
	assert.Equal(t, 2, s.RoutesScanned)
	assert.Equal(t, 2, s.Matches)
	assert.NotEmpty(t, s.ScanID)
}
