package main

import (
	"context"
	"log"
	"os"

	"coffeeshop/internal/config"
	"coffeeshop/internal/db"
	accountrepo "coffeeshop/internal/repository/account"
	catalogrepo "coffeeshop/internal/repository/catalog"
	tokenrepo "coffeeshop/internal/repository/token"
	"coffeeshop/internal/seed"
	accountsvc "coffeeshop/internal/service/account"
	catalogsvc "coffeeshop/internal/service/catalog"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, db.PoolOptions{AppName: "coffeeshop-seed"})
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	catalog := catalogsvc.New(catalogrepo.NewPostgres(pool, logger))
	accounts := accountsvc.New(accountrepo.NewPostgres(pool, logger), tokenrepo.NewPostgres(pool), logger)
	staff := accountsvc.SignupInput{
		Email:     cfg.StaffEmail,
		Password:  cfg.StaffPassword,
		FirstName: "Staff",
	}

	if err := seed.Apply(ctx, catalog, accounts, staff, logger); err != nil {
		logger.Fatalf("seed apply: %v", err)
	}

	logger.Println("seed applied")
}
