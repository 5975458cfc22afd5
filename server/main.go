package main

import (
	"context"
	"log"
	_ "time/tzdata"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/procflow"
	"github.com/meikuraledutech/procflow/memory"
	"github.com/meikuraledutech/procflow/postgres"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var store procflow.Store
	switch cfg.Store {
	case "postgres":
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()
		store = postgres.New(pool)
	default:
		store = memory.New()
	}
	log.Printf("procflow: %s store, calendar in %s", cfg.Store, cfg.Location)

	app := newHandler(store, cfg.Location).app()
	log.Fatal(app.Listen(cfg.Addr))
}
