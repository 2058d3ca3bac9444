package main

import (
	"context"
	"log"
	"os"

	"tortaskeia-api/internal/config"
	"tortaskeia-api/internal/db"
	"tortaskeia-api/internal/migrate"

	"github.com/joho/godotenv"
)

func main() {
	logger := log.New(os.Stdout, "[migrate] ", log.LstdFlags|log.LUTC)

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
	logger.Println("migrations applied")
}
