package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"coffeeshop/internal/config"
	"coffeeshop/internal/db"
	"coffeeshop/internal/importer"
	catalogrepo "coffeeshop/internal/repository/catalog"
	catalogsvc "coffeeshop/internal/service/catalog"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to menu CSV (category,name,description,price,available,image)")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[importer] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString, db.PoolOptions{AppName: "coffeeshop-importer"})
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatalf("open file: %v", err)
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, catalogsvc.New(catalogrepo.NewPostgres(pool, logger)))

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		logger.Fatalf("import failed after %d items: %v", count, err)
	}

	fmt.Printf("Imported %d menu items in %s\n", count, time.Since(start).Truncate(time.Millisecond))
}
