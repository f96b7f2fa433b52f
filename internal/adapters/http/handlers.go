package http

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/para-cebu/para/internal/core/domain"
	"github.com/para-cebu/para/internal/pkg/geoexport"
)

// ListRoutesHandler returns the route catalog, paginated.
func ListRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		routes, err := deps.Routes.List(c.UserContext())
		if err != nil {
			return errFromDomain(c, deps, err)
		}

		page, pg := paginate(c, routes, 100, 500)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// LookupRouteHandler finds a route by its public number.
func LookupRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		number := c.Query("route_number")
		if strings.TrimSpace(number) == "" {
			return errBadRequest(c, "route_number query parameter is required")
		}
		route, err := deps.Routes.GetByRouteNumber(c.UserContext(), number)
		if err != nil {
			return errFromDomain(c, deps, err)
		}
		return c.JSON(route)
	}
}

type createRouteRequest struct {
	RouteNumber string `json:"route_number"`
	RelationID  string `json:"relation_id"`
	Locations   string `json:"locations"`
}

// CreateRouteHandler adds or replaces a catalog route keyed by relation id.
func CreateRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createRouteRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if _, err := strconv.ParseInt(strings.TrimSpace(req.RelationID), 10, 64); err != nil {
			return errBadRequest(c, "relation_id must be a numeric OSM relation id")
		}

		route, err := deps.Routes.Create(c.UserContext(), domain.RouteDescriptor{
			RouteID:     req.RelationID,
			RouteNumber: req.RouteNumber,
			Locations:   req.Locations,
		})
		if err != nil {
			return errFromDomain(c, deps, err)
		}
		return c.Status(fiber.StatusCreated).JSON(route)
	}
}

// RouteGeometryHandler returns a route's flattened polyline as JSON points,
// or as an encoded polyline with ?format=polyline.
func RouteGeometryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		format := c.Query("format", "json")
		if format != "json" && format != "polyline" {
			return errBadRequest(c, "format must be json or polyline")
		}

		geom, err := deps.Routes.Geometry(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, deps, err)
		}

		if format == "polyline" {
			return c.JSON(fiber.Map{
				"route_id": geom.RouteID,
				"polyline": geoexport.EncodePolyline(geom.Points),
				"bounds":   geom.Bounds,
			})
		}
		return c.JSON(geom)
	}
}

// RouteKMLHandler exports a route as a KML document.
func RouteKMLHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		route, err := deps.Routes.GetByRouteID(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, deps, err)
		}
		geom, err := deps.Routes.Geometry(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, deps, err)
		}

		var buf bytes.Buffer
		if err := geoexport.WriteKML(&buf, *route, geom.Points); err != nil {
			return errFromDomain(c, deps, err)
		}
		c.Set(fiber.HeaderContentType, "application/vnd.google-earth.kml+xml")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="route-`+route.RouteNumber+`.kml"`)
		return c.Send(buf.Bytes())
	}
}

type nearbyResponse struct {
	State   domain.ScanState     `json:"state"`
	Matches []domain.MatchResult `json:"matches"`
}

// NearbyRoutesHandler runs a scan synchronously and returns the matches.
// A request that times out mid-scan returns the partial result with state
// "cancelled".
func NearbyRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := parseScanQuery(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		ctx := c.UserContext()
		matches, err := deps.Scans.FindNearbyRoutes(ctx, req, nil)
		if err != nil {
			return errFromDomain(c, deps, err)
		}

		state := domain.ScanCompleted
		if ctx.Err() != nil {
			state = domain.ScanCancelled
		}
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(nearbyResponse{State: state, Matches: matches})
	}
}

func parseScanQuery(c *fiber.Ctx) (domain.ScanRequest, error) {
	var req domain.ScanRequest
	var err error
	if req.Origin, err = queryCoordinate(c, "from"); err != nil {
		return req, err
	}
	if req.Destination, err = queryCoordinate(c, "to"); err != nil {
		return req, err
	}
	if raw := c.Query("max_distance"); raw != "" {
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil || !validMaxDistance(d) {
			return req, errMaxDistance
		}
		req.MaxDistanceMeters = d
	}
	req.OriginLabel = c.Query("from_label")
	req.DestinationLabel = c.Query("to_label")
	return req, nil
}

func queryCoordinate(c *fiber.Ctx, prefix string) (domain.Coordinate, error) {
	latRaw, lonRaw := c.Query(prefix+"_lat"), c.Query(prefix+"_lon")
	if latRaw == "" || lonRaw == "" {
		return domain.Coordinate{}, errString(prefix + "_lat and " + prefix + "_lon are required")
	}
	lat, err1 := strconv.ParseFloat(latRaw, 64)
	lon, err2 := strconv.ParseFloat(lonRaw, 64)
	if err1 != nil || err2 != nil {
		return domain.Coordinate{}, errString(prefix + "_lat and " + prefix + "_lon must be numbers")
	}
	p := domain.Coordinate{Lat: lat, Lon: lon}
	if err := p.Validate(); err != nil {
		return domain.Coordinate{}, err
	}
	return p, nil
}

// maxScanRadiusMeters caps client-supplied proximity radii.
const maxScanRadiusMeters = 5000

const errMaxDistance = errString("max_distance must be between 0 and 5000 meters")

func validMaxDistance(d float64) bool {
	return !math.IsNaN(d) && !math.IsInf(d, 0) && d > 0 && d <= maxScanRadiusMeters
}

type errString string

func (e errString) Error() string { return string(e) }

type legacyRoute struct {
	RouteNumber string `json:"route_number"`
	RelationID  string `json:"relation_id"`
	Locations   string `json:"locations"`
}

// LegacyAllRoutesHandler serves the unpaginated catalog in its original shape.
func LegacyAllRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		routes, err := deps.Routes.List(c.UserContext())
		if err != nil {
			return errFromDomain(c, deps, err)
		}
		out := make([]legacyRoute, len(routes))
		for i, r := range routes {
			out[i] = legacyRoute{RouteNumber: r.RouteNumber, RelationID: r.RouteID, Locations: r.Locations}
		}
		return c.JSON(out)
	}
}
