package usecases_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/para-cebu/para/internal/core/domain"
)

// --- Mock RouteCatalog / RouteRepository ---

type mockRouteRepo struct {
	fetchAllFn    func(ctx context.Context) ([]domain.RouteDescriptor, error)
	upsertFn      func(ctx context.Context, r *domain.RouteDescriptor) error
	upsertBatchFn func(ctx context.Context, rs []domain.RouteDescriptor) error
	byNumberFn    func(ctx context.Context, n string) (*domain.RouteDescriptor, error)
	byIDFn        func(ctx context.Context, id string) (*domain.RouteDescriptor, error)
}

func (m *mockRouteRepo) FetchAll(ctx context.Context) ([]domain.RouteDescriptor, error) {
	if m.fetchAllFn != nil {
		return m.fetchAllFn(ctx)
	}
	return nil, nil
}

func (m *mockRouteRepo) Upsert(ctx context.Context, r *domain.RouteDescriptor) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, r)
	}
	return nil
}

func (m *mockRouteRepo) UpsertBatch(ctx context.Context, rs []domain.RouteDescriptor) error {
	if m.upsertBatchFn != nil {
		return m.upsertBatchFn(ctx, rs)
	}
	return nil
}

func (m *mockRouteRepo) GetByRouteNumber(ctx context.Context, n string) (*domain.RouteDescriptor, error) {
	if m.byNumberFn != nil {
		return m.byNumberFn(ctx, n)
	}
	return nil, domain.ErrNotFound
}

func (m *mockRouteRepo) GetByRouteID(ctx context.Context, id string) (*domain.RouteDescriptor, error) {
	if m.byIDFn != nil {
		return m.byIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func catalogOf(routes ...domain.RouteDescriptor) *mockRouteRepo {
	return &mockRouteRepo{
		fetchAllFn: func(ctx context.Context) ([]domain.RouteDescriptor, error) { return routes, nil },
	}
}

// --- Stub GeometryProvider ---

type stubProvider struct {
	calls    atomic.Int64
	fetchFn  func(ctx context.Context, routeID string) ([][]domain.Coordinate, error)
	segments map[string][][]domain.Coordinate
}

func (p *stubProvider) FetchSegments(ctx context.Context, routeID string) ([][]domain.Coordinate, error) {
	p.calls.Add(1)
	if p.fetchFn != nil {
		return p.fetchFn(ctx, routeID)
	}
	return p.segments[routeID], nil
}

// nopCache never retains anything.
type nopCache struct{}

func (nopCache) Get(context.Context, string) ([]domain.Coordinate, bool) { return nil, false }
func (nopCache) Put(context.Context, string, []domain.Coordinate)        {}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu        sync.Mutex
	summaries []domain.ScanSummary
	updates   []domain.CatalogUpdate
}

func (m *mockPublisher) PublishScanCompleted(ctx context.Context, s *domain.ScanSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = append(m.summaries, *s)
	return nil
}

func (m *mockPublisher) PublishCatalogUpdated(ctx context.Context, u *domain.CatalogUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, *u)
	return nil
}

// --- Mock ErrorReporter ---

type mockReporter struct {
	mu   sync.Mutex
	errs []error
}

func (m *mockReporter) CaptureError(ctx context.Context, err error, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, err)
}

// --- Mock SavedRouteRepository ---

type mockSavedRepo struct {
	listFn   func(ctx context.Context, userID string) ([]domain.SavedRoute, error)
	createFn func(ctx context.Context, s *domain.SavedRoute) error
	deleteFn func(ctx context.Context, userID, relationID string) error
	existsFn func(ctx context.Context, userID, relationID string) (bool, error)
}

func (m *mockSavedRepo) ListByUser(ctx context.Context, userID string) ([]domain.SavedRoute, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockSavedRepo) Create(ctx context.Context, s *domain.SavedRoute) error {
	if m.createFn != nil {
		return m.createFn(ctx, s)
	}
	return nil
}

func (m *mockSavedRepo) Delete(ctx context.Context, userID, relationID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, relationID)
	}
	return nil
}

func (m *mockSavedRepo) Exists(ctx context.Context, userID, relationID string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, userID, relationID)
	}
	return false, nil
}
