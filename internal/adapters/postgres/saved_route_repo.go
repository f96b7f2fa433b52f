package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/para-cebu/para/internal/core/domain"
)

const uniqueViolation = "23505"

// SavedRouteRepo implements ports.SavedRouteRepository.
type SavedRouteRepo struct {
	db *DB
}

func NewSavedRouteRepo(db *DB) *SavedRouteRepo { return &SavedRouteRepo{db: db} }

func (r *SavedRouteRepo) ListByUser(ctx context.Context, userID string) ([]domain.SavedRoute, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id, relation_id, initial_lat, initial_lon, final_lat, final_lon, created_at
		FROM saved_routes WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	saved := []domain.SavedRoute{}
	for rows.Next() {
		var s domain.SavedRoute
		if err := rows.Scan(&s.ID, &s.UserID, &s.RelationID, &s.InitialLat, &s.InitialLon,
			&s.FinalLat, &s.FinalLon, &s.CreatedAt); err != nil {
			return nil, err
		}
		saved = append(saved, s)
	}
	return saved, rows.Err()
}

// Create inserts s and fills in its id and creation time. A duplicate
// (user, relation) pair returns domain.ErrAlreadySaved.
func (r *SavedRouteRepo) Create(ctx context.Context, s *domain.SavedRoute) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO saved_routes (user_id, relation_id, initial_lat, initial_lon, final_lat, final_lon)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, s.UserID, s.RelationID, s.InitialLat, s.InitialLon, s.FinalLat, s.FinalLon).Scan(&s.ID, &s.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadySaved
	}
	return err
}

func (r *SavedRouteRepo) Delete(ctx context.Context, userID, relationID string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM saved_routes WHERE user_id = $1 AND relation_id = $2`, userID, relationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SavedRouteRepo) Exists(ctx context.Context, userID, relationID string) (bool, error) {
	var one int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT 1 FROM saved_routes WHERE user_id = $1 AND relation_id = $2`, userID, relationID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
