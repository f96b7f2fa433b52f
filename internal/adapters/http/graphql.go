package http

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/para-cebu/para/internal/core/domain"
	"github.com/para-cebu/para/internal/pkg/geoexport"
)

const gqlUserKey ctxKey = "gql_user_id"

var errGQLUnauthenticated = errors.New(HeaderUserID + " header is required")

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lon": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lon": &graphql.Field{Type: graphql.Float},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"route_id":     &graphql.Field{Type: graphql.String},
			"route_number": &graphql.Field{Type: graphql.String},
			"locations":    &graphql.Field{Type: graphql.String},
		},
	})

	geometryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteGeometry",
		Fields: graphql.Fields{
			"route_id": &graphql.Field{Type: graphql.String},
			"points":   &graphql.Field{Type: graphql.NewList(coordinateType)},
			"bounds":   &graphql.Field{Type: boundsType},
			"polyline": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					g, _ := p.Source.(*domain.RouteGeometry)
					if g == nil {
						return nil, nil
					}
					return geoexport.EncodePolyline(g.Points), nil
				},
			},
		},
	})

	matchType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteMatch",
		Fields: graphql.Fields{
			"route_id":          &graphql.Field{Type: graphql.String},
			"route_number":      &graphql.Field{Type: graphql.String},
			"locations":         &graphql.Field{Type: graphql.String},
			"distance":          &graphql.Field{Type: graphql.Float},
			"origin_label":      &graphql.Field{Type: graphql.String},
			"destination_label": &graphql.Field{Type: graphql.String},
		},
	})

	savedRouteType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SavedRoute",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.Int},
			"relation_id": &graphql.Field{Type: graphql.String},
			"initial_lat": &graphql.Field{Type: graphql.Float},
			"initial_lon": &graphql.Field{Type: graphql.Float},
			"final_lat":   &graphql.Field{Type: graphql.Float},
			"final_lon":   &graphql.Field{Type: graphql.Float},
			"created_at":  &graphql.Field{Type: graphql.DateTime},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"routes": &graphql.Field{
				Type:        graphql.NewList(routeType),
				Description: "List the route catalog in scan order",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Routes.List(p.Context)
				},
			},
			"route": &graphql.Field{
				Type:        routeType,
				Description: "Look up a route by its number, e.g. 04L",
				Args: graphql.FieldConfigArgument{
					"routeNumber": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Routes.GetByRouteNumber(p.Context, p.Args["routeNumber"].(string))
				},
			},
			"routeGeometry": &graphql.Field{
				Type:        geometryType,
				Description: "Flattened polyline of a route",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Routes.Geometry(p.Context, p.Args["id"].(string))
				},
			},
			"nearbyRoutes": &graphql.Field{
				Type:        graphql.NewList(matchType),
				Description: "Routes passing near both ends of a trip",
				Args: graphql.FieldConfigArgument{
					"fromLat":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"fromLon":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"toLat":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"toLon":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"maxDistance": &graphql.ArgumentConfig{Type: graphql.Float},
					"fromLabel":   &graphql.ArgumentConfig{Type: graphql.String},
					"toLabel":     &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					req := domain.ScanRequest{
						Origin:      domain.Coordinate{Lat: p.Args["fromLat"].(float64), Lon: p.Args["fromLon"].(float64)},
						Destination: domain.Coordinate{Lat: p.Args["toLat"].(float64), Lon: p.Args["toLon"].(float64)},
					}
					if err := req.Origin.Validate(); err != nil {
						return nil, err
					}
					if err := req.Destination.Validate(); err != nil {
						return nil, err
					}
					if d, ok := p.Args["maxDistance"].(float64); ok {
						if !validMaxDistance(d) {
							return nil, errMaxDistance
						}
						req.MaxDistanceMeters = d
					}
					req.OriginLabel, _ = p.Args["fromLabel"].(string)
					req.DestinationLabel, _ = p.Args["toLabel"].(string)

					matches, err := deps.Scans.FindNearbyRoutes(p.Context, req, nil)
					if err != nil {
						return nil, err
					}
					out := make([]map[string]interface{}, len(matches))
					for i, m := range matches {
						out[i] = map[string]interface{}{
							"route_id":          m.RouteID,
							"route_number":      m.RouteNumber,
							"locations":         m.Locations,
							"distance":          m.Distance,
							"origin_label":      m.OriginLabel,
							"destination_label": m.DestinationLabel,
						}
					}
					return out, nil
				},
			},
			"savedRoutes": &graphql.Field{
				Type:        graphql.NewList(savedRouteType),
				Description: "The caller's saved routes; needs the " + HeaderUserID + " header",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					uid, _ := p.Context.Value(gqlUserKey).(string)
					if uid == "" {
						return nil, errGQLUnauthenticated
					}
					return deps.SavedRoutes.List(p.Context, uid)
				},
			},
			"isSaved": &graphql.Field{
				Type: graphql.Boolean,
				Args: graphql.FieldConfigArgument{
					"relationId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					uid, _ := p.Context.Value(gqlUserKey).(string)
					return deps.SavedRoutes.IsSaved(p.Context, uid, p.Args["relationId"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		ctx := c.UserContext()
		if uid := strings.TrimSpace(c.Get(HeaderUserID)); uid != "" {
			ctx = context.WithValue(ctx, gqlUserKey, uid)
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        ctx,
		})

		return c.JSON(result)
	}
}
