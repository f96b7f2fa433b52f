package overpass

import (
	"strings"

	"github.com/para-cebu/para/internal/core/domain"
)

type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type     string   `json:"type"`
	ID       int64    `json:"id"`
	Members  []member `json:"members,omitempty"`
	Geometry []point  `json:"geometry,omitempty"`
}

type member struct {
	Type string `json:"type"`
	Ref  int64  `json:"ref"`
	Role string `json:"role"`
}

type point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// segments orders way geometries by the relation's member list, skipping
// platform members and reversing ways with role backward. Consecutive
// segments that share an endpoint are joined. If the member list yields
// nothing, every way is used in response order.
func (r *response) segments(relationID int64) [][]domain.Coordinate {
	ways := make(map[int64][]domain.Coordinate)
	var wayOrder []int64
	var relation *element
	for i := range r.Elements {
		el := &r.Elements[i]
		switch el.Type {
		case "way":
			if len(el.Geometry) == 0 {
				continue
			}
			if _, seen := ways[el.ID]; !seen {
				wayOrder = append(wayOrder, el.ID)
			}
			ways[el.ID] = toCoordinates(el.Geometry)
		case "relation":
			if el.ID == relationID {
				relation = el
			}
		}
	}

	var segments [][]domain.Coordinate
	if relation != nil {
		for _, m := range relation.Members {
			if m.Type != "way" || strings.HasPrefix(m.Role, "platform") {
				continue
			}
			seg, ok := ways[m.Ref]
			if !ok {
				continue
			}
			if m.Role == "backward" {
				seg = reversed(seg)
			}
			segments = appendJoined(segments, seg)
		}
	}
	if len(segments) > 0 {
		return segments
	}

	for _, id := range wayOrder {
		segments = append(segments, ways[id])
	}
	return segments
}

// appendJoined appends seg, merging it into the last segment when that one
// ends where seg starts.
func appendJoined(segments [][]domain.Coordinate, seg []domain.Coordinate) [][]domain.Coordinate {
	if n := len(segments); n > 0 {
		last := segments[n-1]
		if last[len(last)-1] == seg[0] {
			merged := make([]domain.Coordinate, 0, len(last)+len(seg)-1)
			merged = append(merged, last...)
			segments[n-1] = append(merged, seg[1:]...)
			return segments
		}
	}
	return append(segments, seg)
}

func reversed(pts []domain.Coordinate) []domain.Coordinate {
	out := make([]domain.Coordinate, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

func toCoordinates(pts []point) []domain.Coordinate {
	out := make([]domain.Coordinate, len(pts))
	for i, p := range pts {
		out[i] = domain.Coordinate{Lat: p.Lat, Lon: p.Lon}
	}
	return out
}
