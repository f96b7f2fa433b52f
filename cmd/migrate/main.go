package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/para-cebu/para/internal/adapters/postgres"
	"github.com/para-cebu/para/internal/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down> [dir]")
	}
	dir := "migrations"
	if len(os.Args) > 2 {
		dir = os.Args[2]
	}

	cfg, err := config.Load("para-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	migrations, err := postgres.LoadMigrations(os.DirFS(dir))
	if err != nil {
		log.Fatalf("load %s: %v", dir, err)
	}

	switch os.Args[1] {
	case "up":
		applied, err := db.MigrateUp(ctx, migrations)
		if err != nil {
			log.Fatalf("migrate up: %v", err)
		}
		for _, v := range applied {
			fmt.Printf("OK  %s\n", v)
		}
		log.Printf("%d migrations applied", len(applied))
	case "down":
		v, err := db.MigrateDown(ctx, migrations)
		if err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		if v == "" {
			log.Println("nothing to roll back")
			return
		}
		fmt.Printf("DOWN  %s\n", v)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}
