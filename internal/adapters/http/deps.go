package http

import (
	"github.com/nats-io/nats.go"

	"github.com/para-cebu/para/internal/adapters/postgres"
	"github.com/para-cebu/para/internal/adapters/valkey"
	"github.com/para-cebu/para/internal/core/ports"
	"github.com/para-cebu/para/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Scans       *usecases.ScanService
	Routes      *usecases.RouteService
	SavedRoutes *usecases.SavedRouteService
	Reporter    ports.ErrorReporter
	NATS        *nats.Conn
	DB          *postgres.DB
	Cache       *valkey.Cache
}
