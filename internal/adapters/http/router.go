package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/para-cebu/para/internal/pkg/metrics"
)

const (
	requestTimeout  = 15 * time.Second
	geometryTimeout = 45 * time.Second
	// A full catalog scan is paced by the iteration delay.
	scanTimeout     = 120 * time.Second
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(DeprecationMiddleware(legacyRoutes))
	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/routes", timeout.NewWithContext(ListRoutesHandler(deps), requestTimeout))
	v1.Post("/routes", timeout.NewWithContext(CreateRouteHandler(deps), requestTimeout))
	v1.Get("/routes/lookup", timeout.NewWithContext(LookupRouteHandler(deps), requestTimeout))
	v1.Get("/routes/nearby", timeout.NewWithContext(NearbyRoutesHandler(deps), scanTimeout))
	v1.Get("/routes/:id/geometry.kml", timeout.NewWithContext(RouteKMLHandler(deps), geometryTimeout))
	v1.Get("/routes/:id/geometry", timeout.NewWithContext(RouteGeometryHandler(deps), geometryTimeout))

	saved := v1.Group("/saved-routes", RequireUser())
	saved.Get("/", timeout.NewWithContext(ListSavedRoutesHandler(deps), requestTimeout))
	saved.Post("/", timeout.NewWithContext(SaveRouteHandler(deps), requestTimeout))
	saved.Delete("/", timeout.NewWithContext(DeleteSavedRouteHandler(deps), requestTimeout))
	saved.Get("/check", timeout.NewWithContext(CheckSavedRouteHandler(deps), requestTimeout))

	// Legacy unpaginated catalog
	app.Get("/api/routes/all", timeout.NewWithContext(LegacyAllRoutesHandler(deps), requestTimeout))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app, DefaultSpecPath)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/scan", websocket.New(ScanWebSocketHandler(deps)))
}
