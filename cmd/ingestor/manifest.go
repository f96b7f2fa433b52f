package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/para-cebu/para/internal/core/domain"
)

// Manifest is the route list handed to the ingestor.
type Manifest struct {
	Source string       `json:"source"`
	Routes []RouteEntry `json:"routes"`
}

type RouteEntry struct {
	RouteNumber string `json:"route_number"`
	// Accepts either a JSON string or number.
	RelationID json.Number `json:"relation_id"`
	Locations  string      `json:"locations"`
}

// parseManifest decodes a manifest and converts it to catalog descriptors.
// Entries with a non-numeric relation id are rejected; a relation listed
// twice keeps its last entry.
func parseManifest(r io.Reader) (*Manifest, []domain.RouteDescriptor, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Routes) == 0 {
		return &m, nil, fmt.Errorf("manifest %q lists no routes", m.Source)
	}

	index := make(map[string]int, len(m.Routes))
	routes := make([]domain.RouteDescriptor, 0, len(m.Routes))
	for i, e := range m.Routes {
		id := strings.TrimSpace(e.RelationID.String())
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			return &m, nil, fmt.Errorf("route %d (%s): relation_id %q is not numeric", i, e.RouteNumber, id)
		}
		d := domain.RouteDescriptor{
			RouteID:     id,
			RouteNumber: e.RouteNumber,
			Locations:   e.Locations,
		}
		if j, ok := index[id]; ok {
			routes[j] = d
			continue
		}
		index[id] = len(routes)
		routes = append(routes, d)
	}
	return &m, routes, nil
}
