package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/para-cebu/para/internal/adapters/memory"
	natsadapter "github.com/para-cebu/para/internal/adapters/nats"
	"github.com/para-cebu/para/internal/adapters/overpass"
	"github.com/para-cebu/para/internal/adapters/valkey"
	"github.com/para-cebu/para/internal/core/domain"
	"github.com/para-cebu/para/internal/core/usecases"
	"github.com/para-cebu/para/internal/pkg/config"
	"github.com/para-cebu/para/internal/pkg/logging"
	"github.com/para-cebu/para/internal/pkg/metrics"
	"github.com/para-cebu/para/internal/pkg/report"
)

const durableName = "para-cache-warmer"

func main() {
	cfg, err := config.Load("para-warmer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	reporter, err := report.New(report.Config{DSN: cfg.Sentry.DSN, Environment: cfg.Sentry.Environment})
	if err != nil {
		log.Fatalf("sentry: %v", err)
	}
	defer reporter.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The warmer only makes sense with a shared cache.
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer cache.Close()

	geometryCache := valkey.NewGeometryCache(memory.NewGeometryCache(), cache, cfg.Valkey.GeometryTTL)
	geometries := usecases.NewGeometryService(overpass.NewClient(cfg.Overpass.URL, cfg.Overpass.Timeout), geometryCache)
	warmer := usecases.NewCacheWarmer(geometries, cfg.Scan.WarmConcurrency)

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, durableName)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribeCatalogUpdated(ctx, func(ctx context.Context, update *domain.CatalogUpdate) error {
		warmed, failed, err := warmer.Warm(ctx, update.RouteIDs)
		if err != nil {
			return err
		}
		if failed > 0 {
			reporter.CaptureError(ctx, fmt.Errorf("cache warm: %d of %d geometries failed", failed, warmed+failed),
				map[string]string{"component": "warmer"})
		}
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}
	slog.Info("cache warmer listening", "subject", natsadapter.SubjectCatalogUpdated, "durable", durableName)

	// Metrics endpoint
	app := fiber.New(fiber.Config{DisableStartupMessage: true, AppName: "PARA warmer"})
	app.Get("/metrics", metrics.Handler())
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := app.Listen(addr); err != nil {
			slog.Error("metrics listener stopped", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down cache warmer")
	_ = app.ShutdownWithTimeout(5 * time.Second)
}
