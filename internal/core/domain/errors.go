package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadySaved      = errors.New("route already saved")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrInvalidRoute      = errors.New("invalid route")
)

// CatalogFetchError means the route catalog could not be read. It aborts a scan.
type CatalogFetchError struct {
	Err error
}

func (e *CatalogFetchError) Error() string {
	return fmt.Sprintf("fetch route catalog: %v", e.Err)
}

func (e *CatalogFetchError) Unwrap() error { return e.Err }

// GeometryFetchError means a single route's geometry could not be read.
// Scans treat the route as having no points.
type GeometryFetchError struct {
	RouteID string
	Err     error
}

func (e *GeometryFetchError) Error() string {
	return fmt.Sprintf("fetch geometry for route %s: %v", e.RouteID, e.Err)
}

func (e *GeometryFetchError) Unwrap() error { return e.Err }
