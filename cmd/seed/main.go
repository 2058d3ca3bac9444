package main

import (
	"context"
	"log"
	"os"

	"tortaskeia-api/internal/config"
	"tortaskeia-api/internal/db"
	"tortaskeia-api/internal/migrate"
	"tortaskeia-api/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC)

	_ = godotenv.Load()
	cfg := config.FromEnv()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		logger.Fatalf("apply migrations: %v", err)
	}

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if err := seed.Run(ctx, pool, adminEmail, adminPassword, logger); err != nil {
		logger.Fatalf("seed: %v", err)
	}
	logger.Println("seed complete")
}
