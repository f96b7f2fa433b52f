package domain

import (
	"time"
)

// RouteDescriptor identifies a jeepney route in the catalog. Geometry is
// fetched lazily by route id.
type RouteDescriptor struct {
	RouteID     string `json:"route_id"`     // OSM relation id
	RouteNumber string `json:"route_number"` // e.g. "04L"
	Locations   string `json:"locations,omitempty"`
}

// MatchResult is a route that passes near both ends of a query.
type MatchResult struct {
	RouteDescriptor
	Distance         float64 `json:"distance"` // meters
	OriginLabel      string  `json:"origin_label,omitempty"`
	DestinationLabel string  `json:"destination_label,omitempty"`
}

// ScanRequest describes one origin/destination query.
type ScanRequest struct {
	// ScanID is optional; a random id is assigned when empty.
	ScanID            string     `json:"scan_id,omitempty"`
	Origin            Coordinate `json:"origin"`
	Destination       Coordinate `json:"destination"`
	OriginLabel       string     `json:"origin_label,omitempty"`
	DestinationLabel  string     `json:"destination_label,omitempty"`
	MaxDistanceMeters float64    `json:"max_distance_meters,omitempty"`
}

// ScanState is the lifecycle state of a single scan.
type ScanState string

const (
	ScanIdle      ScanState = "idle"
	ScanScanning  ScanState = "scanning"
	ScanCompleted ScanState = "completed"
	ScanCancelled ScanState = "cancelled"
	ScanFailed    ScanState = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s ScanState) Terminal() bool {
	return s == ScanCompleted || s == ScanCancelled || s == ScanFailed
}

// ScanSummary is published when a scan finishes.
type ScanSummary struct {
	ScanID        string    `json:"scan_id"`
	State         ScanState `json:"state"`
	RoutesScanned int       `json:"routes_scanned"`
	RoutesTotal   int       `json:"routes_total"`
	Matches       int       `json:"matches"`
	DurationMs    int64     `json:"duration_ms"`
	FinishedAt    time.Time `json:"finished_at"`
}

// CatalogUpdate is published when routes are created or imported.
type CatalogUpdate struct {
	RouteIDs  []string  `json:"route_ids"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SavedRoute is a route bookmarked by a user together with the query endpoints.
type SavedRoute struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	RelationID string    `json:"relation_id"`
	InitialLat float64   `json:"initial_lat"`
	InitialLon float64   `json:"initial_lon"`
	FinalLat   float64   `json:"final_lat"`
	FinalLon   float64   `json:"final_lon"`
	CreatedAt  time.Time `json:"created_at"`
}

// Origin returns the saved starting point.
func (s SavedRoute) Origin() Coordinate { return Coordinate{Lat: s.InitialLat, Lon: s.InitialLon} }

// Destination returns the saved end point.
func (s SavedRoute) Destination() Coordinate { return Coordinate{Lat: s.FinalLat, Lon: s.FinalLon} }
