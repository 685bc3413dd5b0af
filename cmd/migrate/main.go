package main

import (
	"context"
	"flag"
	"log"
	"os"

	"coffeeshop/internal/config"
	"coffeeshop/internal/db"
	"coffeeshop/internal/migrate"
)

func main() {
	var down int
	flag.IntVar(&down, "down", 0, "Revert the last N migrations instead of applying")
	flag.Parse()

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[migrate] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, db.PoolOptions{AppName: "coffeeshop-migrate"})
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if down > 0 {
		if err := migrate.Rollback(ctx, pool, down); err != nil {
			logger.Fatalf("rollback migrations: %v", err)
		}
	} else if err := migrate.Apply(ctx, pool); err != nil {
		logger.Fatalf("apply migrations: %v", err)
	}

	version, dirty, err := migrate.Version(ctx, pool)
	if err != nil {
		logger.Fatalf("read schema version: %v", err)
	}
	logger.Printf("schema at version %d dirty=%t", version, dirty)
}
