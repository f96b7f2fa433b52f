package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/para-cebu/para/internal/core/domain"
)

// RouteRepo implements ports.RouteRepository over the jeepney_routes table.
type RouteRepo struct {
	db *DB
}

func NewRouteRepo(db *DB) *RouteRepo { return &RouteRepo{db: db} }

const upsertRouteSQL = `
	INSERT INTO jeepney_routes (route_number, relation_id, locations)
	VALUES ($1, $2, $3)
	ON CONFLICT (relation_id) DO UPDATE
	SET route_number = EXCLUDED.route_number, locations = EXCLUDED.locations, updated_at = now()
`

// FetchAll returns the catalog in insertion order, which is the scan order.
func (r *RouteRepo) FetchAll(ctx context.Context) ([]domain.RouteDescriptor, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT relation_id, route_number, locations
		FROM jeepney_routes ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanRoute)
}

func (r *RouteRepo) Upsert(ctx context.Context, route *domain.RouteDescriptor) error {
	_, err := r.db.Pool.Exec(ctx, upsertRouteSQL, route.RouteNumber, route.RouteID, route.Locations)
	return err
}

func (r *RouteRepo) UpsertBatch(ctx context.Context, routes []domain.RouteDescriptor) error {
	batch := &pgx.Batch{}
	for _, rt := range routes {
		batch.Queue(upsertRouteSQL, rt.RouteNumber, rt.RouteID, rt.Locations)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range routes {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// GetByRouteNumber returns the first route with the given number.
func (r *RouteRepo) GetByRouteNumber(ctx context.Context, routeNumber string) (*domain.RouteDescriptor, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT relation_id, route_number, locations
		FROM jeepney_routes WHERE upper(route_number) = upper($1)
		ORDER BY id LIMIT 1
	`, routeNumber)
	return scanOne(row)
}

func (r *RouteRepo) GetByRouteID(ctx context.Context, routeID string) (*domain.RouteDescriptor, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT relation_id, route_number, locations
		FROM jeepney_routes WHERE relation_id = $1
	`, routeID)
	return scanOne(row)
}

func scanRoute(row pgx.CollectableRow) (domain.RouteDescriptor, error) {
	var rt domain.RouteDescriptor
	err := row.Scan(&rt.RouteID, &rt.RouteNumber, &rt.Locations)
	return rt, err
}

func scanOne(row pgx.Row) (*domain.RouteDescriptor, error) {
	var rt domain.RouteDescriptor
	if err := row.Scan(&rt.RouteID, &rt.RouteNumber, &rt.Locations); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &rt, nil
}
