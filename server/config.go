package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config is read from the environment, with a .env file in the working
// directory loaded first when present.
//
//	PROCFLOW_ADDR   listen address (default :3000)
//	PROCFLOW_STORE  postgres|memory (default postgres when DATABASE_URL is set)
//	DATABASE_URL    postgres connection string
//	PROCFLOW_TZ     location used to read date-only due dates (default UTC)
type Config struct {
	Addr        string
	Store       string
	DatabaseURL string
	Location    *time.Location
}

func loadConfig() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, fmt.Errorf(".env: %w", err)
	}

	cfg := Config{
		Addr:        getenv("PROCFLOW_ADDR", ":3000"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
	def := "memory"
	if cfg.DatabaseURL != "" {
		def = "postgres"
	}
	cfg.Store = getenv("PROCFLOW_STORE", def)

	switch cfg.Store {
	case "memory":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return cfg, fmt.Errorf("DATABASE_URL is not set")
		}
	default:
		return cfg, fmt.Errorf("unsupported store type: %s", cfg.Store)
	}

	loc, err := time.LoadLocation(getenv("PROCFLOW_TZ", "UTC"))
	if err != nil {
		return cfg, fmt.Errorf("PROCFLOW_TZ: %w", err)
	}
	cfg.Location = loc
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	return nil
}
