package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/para-cebu/para/internal/adapters/memory"
	natsadapter "github.com/para-cebu/para/internal/adapters/nats"
	"github.com/para-cebu/para/internal/adapters/overpass"
	"github.com/para-cebu/para/internal/adapters/postgres"
	"github.com/para-cebu/para/internal/adapters/valkey"
	"github.com/para-cebu/para/internal/core/ports"
	"github.com/para-cebu/para/internal/core/usecases"
	"github.com/para-cebu/para/internal/pkg/config"
)

func main() {
	manifestPath := "manifest.json"
	warm := false
	for _, arg := range os.Args[1:] {
		switch arg {
		case "--warm", "-warm":
			warm = true
		default:
			manifestPath = arg
		}
	}

	cfg, err := config.Load("para-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(manifestPath)
	if err != nil {
		log.Fatalf("read manifest: %v", err)
	}
	manifest, routes, err := parseManifest(f)
	f.Close()
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("PARA route ingestor: %d routes from %s", len(routes), manifest.Source)

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Catalog events are optional for a batch load.
	var publisher ports.EventPublisher
	if nc, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		log.Printf("nats unavailable, no catalog event will be sent: %v", err)
	} else {
		defer nc.Close()
		publisher = nc
	}

	var geometryCache ports.GeometryCache = memory.NewGeometryCache()
	if warm {
		cache, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			log.Fatalf("valkey: %v", err)
		}
		defer cache.Close()
		geometryCache = valkey.NewGeometryCache(geometryCache, cache, cfg.Valkey.GeometryTTL)
	}

	geometries := usecases.NewGeometryService(overpass.NewClient(cfg.Overpass.URL, cfg.Overpass.Timeout), geometryCache)
	routeSvc := usecases.NewRouteService(postgres.NewRouteRepo(db), geometries, publisher)

	start := time.Now()
	n, err := routeSvc.Import(ctx, routes)
	if err != nil {
		log.Fatalf("import: %v", err)
	}
	log.Printf("upserted %d routes in %s", n, time.Since(start).Round(time.Millisecond))

	if !warm {
		return
	}

	ids := make([]string, len(routes))
	for i, r := range routes {
		ids[i] = r.RouteID
	}
	warmed, failed, err := usecases.NewCacheWarmer(geometries, cfg.Scan.WarmConcurrency).Warm(ctx, ids)
	if err != nil {
		log.Fatalf("warm interrupted after %d routes: %v", warmed+failed, err)
	}
	log.Printf("geometry cache warmed: %d ok, %d failed", warmed, failed)
}
