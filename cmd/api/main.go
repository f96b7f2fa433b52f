package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"github.com/para-cebu/para/internal/adapters/http"
	"github.com/para-cebu/para/internal/adapters/memory"
	natsadapter "github.com/para-cebu/para/internal/adapters/nats"
	"github.com/para-cebu/para/internal/adapters/overpass"
	"github.com/para-cebu/para/internal/adapters/postgres"
	"github.com/para-cebu/para/internal/adapters/valkey"
	"github.com/para-cebu/para/internal/core/ports"
	"github.com/para-cebu/para/internal/core/usecases"
	"github.com/para-cebu/para/internal/pkg/config"
	"github.com/para-cebu/para/internal/pkg/logging"
	"github.com/para-cebu/para/internal/pkg/report"
	"github.com/para-cebu/para/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("para-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	reporter, err := report.New(report.Config{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		Release:     http.Version,
		ServerName:  cfg.Telemetry.ServiceName,
	})
	if err != nil {
		log.Fatalf("sentry: %v", err)
	}
	defer reporter.Flush(2 * time.Second)
	defer reporter.Recover()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	// Geometry cache: process-local, backed by Valkey when reachable
	var geometryCache ports.GeometryCache = memory.NewGeometryCache()
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, geometry cache is process-local", "error", err)
		cache = nil
	} else {
		defer cache.Close()
		geometryCache = valkey.NewGeometryCache(geometryCache, cache, cfg.Valkey.GeometryTTL)
	}

	// NATS
	var (
		publisher ports.EventPublisher
		natsConn  *nats.Conn
	)
	if nc, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, events disabled", "error", err)
	} else {
		defer nc.Close()
		publisher = nc
		natsConn = nc.Conn()
	}

	// Repos
	routeRepo := postgres.NewRouteRepo(db)
	savedRepo := postgres.NewSavedRouteRepo(db)

	// Use cases
	geometries := usecases.NewGeometryService(overpass.NewClient(cfg.Overpass.URL, cfg.Overpass.Timeout), geometryCache)
	scanSvc := usecases.NewScanService(routeRepo, geometries, publisher, reporter, usecases.ScanOptions{
		MaxDistanceMeters: cfg.Scan.MaxDistanceMeters,
		IterationDelay:    cfg.Scan.IterationDelay,
	})
	routeSvc := usecases.NewRouteService(routeRepo, geometries, publisher)
	savedSvc := usecases.NewSavedRouteService(savedRepo)

	deps := &http.Dependencies{
		Scans:       scanSvc,
		Routes:      routeSvc,
		SavedRoutes: savedSvc,
		Reporter:    reporter,
		NATS:        natsConn,
		DB:          db,
		Cache:       cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "PARA API",
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			reporter.CaptureError(c.UserContext(), fmt.Errorf("panic: %v", e), map[string]string{
				"component": "http",
				"route":     c.Path(),
			})
		},
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, " + http.HeaderUserID,
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
