package main

import (
	"strings"
	"testing"
)

func TestParseManifest(t *testing.T) {
	in := `{
	  "source": "cebu-jeepneys",
	  "routes": [
	    {"route_number": "04L", "relation_id": "2411233", "locations": "Lahug - Carbon"},
	    {"route_number": "17B", "relation_id": 2411240, "locations": "Apas - Carbon"},
	    {"route_number": "04l", "relation_id": "2411233", "locations": "Lahug - Carbon via JY"}
	  ]
	}`

	m, routes, err := parseManifest(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Source != "cebu-jeepneys" {
		t.Errorf("source = %q", m.Source)
	}
	if len(routes) != 2 {
		t.Fatalf("expected 2 unique relations, got %d", len(routes))
	}
	if routes[0].RouteID != "2411233" || routes[0].Locations != "Lahug - Carbon via JY" {
		t.Errorf("duplicate relation should keep the last entry in first position, got %+v", routes[0])
	}
	if routes[1].RouteID != "2411240" {
		t.Errorf("numeric relation id not converted, got %q", routes[1].RouteID)
	}
}

func TestParseManifest_Errors(t *testing.T) {
	cases := map[string]string{
		"malformed":   `{"routes": [`,
		"empty":       `{"source": "x", "routes": []}`,
		"non-numeric": `{"routes": [{"route_number": "04L", "relation_id": "r-1", "locations": "x"}]}`,
	}
	for name, in := range cases {
		if _, _, err := parseManifest(strings.NewReader(in)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
