package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/para-cebu/para/internal/core/domain"
	"github.com/para-cebu/para/internal/core/ports"
)

var errMissingUser = errors.New("user id is required")

// SavedRouteService manages per-user route bookmarks.
type SavedRouteService struct {
	saved ports.SavedRouteRepository
}

// NewSavedRouteService creates a new SavedRouteService.
func NewSavedRouteService(saved ports.SavedRouteRepository) *SavedRouteService {
	return &SavedRouteService{saved: saved}
}

// List returns a user's saved routes, newest first.
func (s *SavedRouteService) List(ctx context.Context, userID string) ([]domain.SavedRoute, error) {
	if userID == "" {
		return nil, errMissingUser
	}
	return s.saved.ListByUser(ctx, userID)
}

// Save bookmarks a route for a user. Saving the same relation twice returns
// domain.ErrAlreadySaved.
func (s *SavedRouteService) Save(ctx context.Context, userID string, in domain.SavedRoute) (*domain.SavedRoute, error) {
	if userID == "" {
		return nil, errMissingUser
	}
	in.UserID = userID
	in.RelationID = strings.TrimSpace(in.RelationID)
	if in.RelationID == "" {
		return nil, fmt.Errorf("%w: relation_id is required", domain.ErrInvalidRoute)
	}
	if err := in.Origin().Validate(); err != nil {
		return nil, fmt.Errorf("origin: %w", err)
	}
	if err := in.Destination().Validate(); err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}

	exists, err := s.saved.Exists(ctx, userID, in.RelationID)
	if err != nil {
		return nil, fmt.Errorf("check saved route: %w", err)
	}
	if exists {
		return nil, domain.ErrAlreadySaved
	}

	if err := s.saved.Create(ctx, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// Delete removes a bookmark. A missing bookmark returns domain.ErrNotFound.
func (s *SavedRouteService) Delete(ctx context.Context, userID, relationID string) error {
	if userID == "" {
		return errMissingUser
	}
	if relationID == "" {
		return fmt.Errorf("%w: relation_id is required", domain.ErrInvalidRoute)
	}
	return s.saved.Delete(ctx, userID, relationID)
}

// IsSaved reports whether the user has bookmarked the relation.
func (s *SavedRouteService) IsSaved(ctx context.Context, userID, relationID string) (bool, error) {
	if userID == "" || relationID == "" {
		return false, nil
	}
	return s.saved.Exists(ctx, userID, relationID)
}
