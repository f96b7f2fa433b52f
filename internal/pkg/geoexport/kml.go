package geoexport

import (
	"errors"
	"fmt"
	"io"

	"github.com/twpayne/go-kml"

	"github.com/para-cebu/para/internal/core/domain"
)

// WriteKML writes the route as a KML document holding a single LineString
// placemark.
func WriteKML(w io.Writer, r domain.RouteDescriptor, points []domain.Coordinate) error {
	if len(points) == 0 {
		return errors.New("kml: route has no points")
	}
	coords := make([]kml.Coordinate, len(points))
	for i, p := range points {
		coords[i] = kml.Coordinate{Lon: p.Lon, Lat: p.Lat}
	}

	doc := kml.KML(
		kml.Document(
			kml.Name(r.RouteNumber),
			kml.Placemark(
				kml.Name(r.RouteNumber),
				kml.Description(r.Locations),
				kml.LineString(
					kml.Tessellate(true),
					kml.Coordinates(coords...),
				),
			),
		),
	)
	if err := doc.WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("kml: %w", err)
	}
	return nil
}
