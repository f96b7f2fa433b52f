package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/para-cebu/para/internal/adapters/memory"
	"github.com/para-cebu/para/internal/core/domain"
	"github.com/para-cebu/para/internal/core/usecases"
)

func newRouteService(repo *mockRouteRepo, pub *mockPublisher) *usecases.RouteService {
	geo := usecases.NewGeometryService(&stubProvider{segments: map[string][][]domain.Coordinate{
		"7001": {{{Lat: 10.29, Lon: 123.89}, {Lat: 10.30, Lon: 123.90}}, {{Lat: 10.31, Lon: 123.91}}},
	}}, memory.NewGeometryCache())
	if pub == nil {
		return usecases.NewRouteService(repo, geo, nil)
	}
	return usecases.NewRouteService(repo, geo, pub)
}

func TestRouteService_List(t *testing.T) {
	repo := catalogOf(
		domain.RouteDescriptor{RouteID: "7001", RouteNumber: "01K"},
		domain.RouteDescriptor{RouteID: "7002", RouteNumber: "04L"},
	)

	routes, err := newRouteService(repo, nil).List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(routes) != 2 || routes[0].RouteNumber != "01K" {
		t.Errorf("expected catalog order, got %+v", routes)
	}
}

func TestRouteService_GetByRouteNumber_Normalizes(t *testing.T) {
	var asked string
	repo := &mockRouteRepo{
		byNumberFn: func(ctx context.Context, n string) (*domain.RouteDescriptor, error) {
			asked = n
			return &domain.RouteDescriptor{RouteNumber: n}, nil
		},
	}

	if _, err := newRouteService(repo, nil).GetByRouteNumber(context.Background(), "  04l "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asked != "04L" {
		t.Errorf("expected normalized 04L, got %q", asked)
	}
}

func TestRouteService_GetByRouteNumber_Empty(t *testing.T) {
	_, err := newRouteService(&mockRouteRepo{}, nil).GetByRouteNumber(context.Background(), "   ")
	if !errors.Is(err, domain.ErrInvalidRoute) {
		t.Fatalf("expected ErrInvalidRoute, got %v", err)
	}
}

func TestRouteService_Create(t *testing.T) {
	var stored domain.RouteDescriptor
	repo := &mockRouteRepo{
		upsertFn: func(ctx context.Context, r *domain.RouteDescriptor) error {
			stored = *r
			return nil
		},
	}
	pub := &mockPublisher{}

	got, err := newRouteService(repo, pub).Create(context.Background(), domain.RouteDescriptor{
		RouteID: " 7001 ", RouteNumber: "01k", Locations: "Urgello - Parkmall ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RouteNumber != "01K" || stored.RouteID != "7001" || stored.Locations != "Urgello - Parkmall" {
		t.Errorf("route not normalized: %+v", stored)
	}
	if len(pub.updates) != 1 || pub.updates[0].RouteIDs[0] != "7001" {
		t.Errorf("expected one catalog update, got %+v", pub.updates)
	}
}

func TestRouteService_Create_MissingFields(t *testing.T) {
	called := false
	repo := &mockRouteRepo{
		upsertFn: func(ctx context.Context, r *domain.RouteDescriptor) error {
			called = true
			return nil
		},
	}

	_, err := newRouteService(repo, nil).Create(context.Background(), domain.RouteDescriptor{RouteNumber: "01K"})
	if !errors.Is(err, domain.ErrInvalidRoute) {
		t.Fatalf("expected ErrInvalidRoute, got %v", err)
	}
	if called {
		t.Error("invalid route must not reach the repository")
	}
}

func TestRouteService_Import(t *testing.T) {
	var batch []domain.RouteDescriptor
	repo := &mockRouteRepo{
		upsertBatchFn: func(ctx context.Context, rs []domain.RouteDescriptor) error {
			batch = rs
			return nil
		},
	}
	pub := &mockPublisher{}
	svc := newRouteService(repo, pub)

	n, err := svc.Import(context.Background(), []domain.RouteDescriptor{
		{RouteID: "7001", RouteNumber: "01k", Locations: "Urgello - Parkmall"},
		{RouteID: "7002", RouteNumber: "04l", Locations: "Lahug - Ayala"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 || len(batch) != 2 || batch[1].RouteNumber != "04L" {
		t.Errorf("unexpected import result n=%d batch=%+v", n, batch)
	}
	if len(pub.updates) != 1 || len(pub.updates[0].RouteIDs) != 2 {
		t.Errorf("expected a single catalog update for the batch, got %+v", pub.updates)
	}

	_, err = svc.Import(context.Background(), []domain.RouteDescriptor{
		{RouteID: "7003", RouteNumber: "12L", Locations: "Labangon - Ayala"},
		{RouteID: "", RouteNumber: "13C", Locations: "Talamban - Colon"},
	})
	if !errors.Is(err, domain.ErrInvalidRoute) {
		t.Fatalf("expected ErrInvalidRoute for a bad entry, got %v", err)
	}
}

func TestRouteService_Geometry(t *testing.T) {
	repo := &mockRouteRepo{
		byIDFn: func(ctx context.Context, id string) (*domain.RouteDescriptor, error) {
			if id != "7001" {
				return nil, domain.ErrNotFound
			}
			return &domain.RouteDescriptor{RouteID: id}, nil
		},
	}
	svc := newRouteService(repo, nil)

	g, err := svc.Geometry(context.Background(), "7001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(g.Points) != 3 {
		t.Fatalf("expected 3 flattened points, got %d", len(g.Points))
	}
	if g.Bounds == nil || g.Bounds.MinLat != 10.29 || g.Bounds.MaxLon != 123.91 {
		t.Errorf("unexpected bounds: %+v", g.Bounds)
	}

	if _, err := svc.Geometry(context.Background(), "9999"); !usecases.IsNotFound(err) {
		t.Errorf("expected not found for unknown route, got %v", err)
	}
}
